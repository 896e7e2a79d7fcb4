package rides

import (
	"errors"

	"gorm.io/gorm"

	domain "github.com/example/ridechat/domain/ride"
)

// ErrRideNotFound is returned when a ride does not exist.
var ErrRideNotFound = errors.New("ride not found")

// Repository reads ride records via GORM. The chat service only ever
// looks rides up; ride management lives upstream.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID finds a ride by ID.
func (r *Repository) FindByID(id string) (*domain.Ride, error) {
	var ride domain.Ride
	result := r.db.First(&ride, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, result.Error
	}
	return &ride, nil
}

// Count returns the number of ride records.
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&domain.Ride{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Seed inserts the given rides, skipping any that already exist.
func (r *Repository) Seed(rides []domain.Ride) error {
	for i := range rides {
		result := r.db.Where("id = ?", rides[i].ID).FirstOrCreate(&rides[i])
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
