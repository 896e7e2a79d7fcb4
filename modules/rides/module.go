package rides

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/ridechat/domain/ride"
)

// RidesModule is the ride-lookup collaborator: a read-only view of ride
// records backed by GORM + SQLite, exposed as a lookup service. The
// chat module consults it before admitting a member to a channel.
type RidesModule struct {
	db     *gorm.DB
	repo   *Repository
	dbPath string
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*RidesModule)(nil)
	_ mono.ServiceProviderModule = (*RidesModule)(nil)
	_ mono.HealthCheckableModule = (*RidesModule)(nil)
)

// NewModule creates a new RidesModule. DB_PATH overrides the SQLite
// file location.
func NewModule() *RidesModule {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "rides.db"
	}
	return &RidesModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *RidesModule) Name() string {
	return "rides"
}

// RegisterServices registers the lookup request-reply service.
func (m *RidesModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "lookup", json.Unmarshal, json.Marshal, m.lookup,
	); err != nil {
		return fmt.Errorf("failed to register lookup service: %w", err)
	}
	log.Printf("[rides] Registered services: lookup")
	return nil
}

// lookup handles the lookup service request.
func (m *RidesModule) lookup(_ context.Context, req LookupRequest, _ *mono.Msg) (LookupResponse, error) {
	ride, err := m.repo.FindByID(req.RideID)
	if err != nil {
		if err == ErrRideNotFound {
			return LookupResponse{Found: false}, nil
		}
		return LookupResponse{}, fmt.Errorf("ride lookup failed: %w", err)
	}
	return LookupResponse{
		Found:    true,
		Joinable: ride.Joinable(),
		Ride:     *ride,
	}, nil
}

// Start opens the database, runs migrations and seeds demo rides when
// the table is empty.
func (m *RidesModule) Start(_ context.Context) error {
	log.Printf("[rides] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&domain.Ride{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.repo = NewRepository(m.db)

	count, err := m.repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count rides: %w", err)
	}
	if count == 0 {
		if err := m.repo.Seed(demoRides()); err != nil {
			return fmt.Errorf("failed to seed rides: %w", err)
		}
		log.Println("[rides] Seeded demo rides")
	}

	log.Println("[rides] Module started successfully")
	return nil
}

// Stop gracefully closes the database connection.
func (m *RidesModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[rides] Database connection closed")
	return nil
}

// Health performs a database ping.
func (m *RidesModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// demoRides returns the rides seeded into an empty database so the
// service is usable out of the box.
func demoRides() []domain.Ride {
	now := time.Now()
	return []domain.Ride{
		{ID: "ride-42", RiderID: "user-alice", DriverID: "driver-bob", Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "ride-1001", RiderID: "user-carol", DriverID: "driver-dan", Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: "ride-7", RiderID: "user-eve", DriverID: "driver-bob", Status: domain.StatusCompleted, CreatedAt: now.Add(-24 * time.Hour), UpdatedAt: now},
	}
}
