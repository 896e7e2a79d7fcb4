package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/example/ridechat/modules/auth"
	"github.com/example/ridechat/modules/broadcast"
	"github.com/example/ridechat/modules/chat"
	"github.com/example/ridechat/modules/rides"
)

// Module is the HTTP and websocket edge: it authenticates connections,
// runs the per-connection protocol sessions, and serves the REST API.
type Module struct {
	app     *fiber.App
	addr    string
	hub     *broadcast.Hub
	limiter SendLimiter

	auth  auth.AuthPort
	chat  chat.ChatPort
	rides rides.RidePort
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the gateway module. PORT overrides the listen
// address.
func NewModule() *Module {
	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	return &Module{
		addr:    addr,
		limiter: newSendLimiter(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gateway"
}

// Dependencies returns the modules this module depends on.
func (m *Module) Dependencies() []string {
	return []string{"auth", "chat", "rides"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "chat":
		m.chat = chat.NewChatAdapter(container)
	case "rides":
		m.rides = rides.NewRideAdapter(container)
	}
}

// SetHub wires in the broadcast hub. Must be called before Start.
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start builds the Fiber app and begins listening.
func (m *Module) Start(ctx context.Context) error {
	if m.auth == nil || m.chat == nil || m.rides == nil {
		return fmt.Errorf("gateway dependencies not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "RideChat Gateway",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			// Websocket upgrades are long-lived; keep them out of the
			// request log.
			return websocket.IsWebSocketUpgrade(c)
		},
	}))

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[gateway] listening on %s", m.addr)
	return nil
}

// Stop gracefully shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	log.Printf("[gateway] stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
	}
}

// registerRoutes sets up the HTTP and websocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.HealthCheck)

	m.app.Use("/ws", m.wsAuth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	api := m.app.Group("/api/v1")
	api.Post("/auth/token", m.IssueToken)
	api.Get("/rides/:id", m.GetRide)
	api.Get("/rides/:id/messages", m.GetRideMessages)
	api.Get("/rides/:id/members", m.GetRideMembers)
}

// wsAuth authenticates the upgrade request. Browsers cannot set headers
// on websocket requests, so the token is accepted from the query string
// as well as the Authorization header.
func (m *Module) wsAuth(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication token is required",
		})
	}

	identity, err := m.auth.ValidateToken(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals("userID", identity.UserID)
	c.Locals("name", identity.Name)
	return c.Next()
}

// handleWebSocket runs one authenticated connection: start the write
// pump, then drive the session until the peer disconnects.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	userID, _ := c.Locals("userID").(string)
	name, _ := c.Locals("name").(string)
	if userID == "" {
		c.Close()
		return
	}
	if name == "" {
		name = userID
	}

	client := broadcast.NewClient(uuid.New().String(), userID, name, c)
	go client.WritePump()

	log.Printf("[gateway] websocket connected: user=%s", userID)

	sess := newSession(client, m.hub, m.chat, m.limiter)
	sess.run(c)

	c.Close()
	log.Printf("[gateway] websocket disconnected: user=%s", userID)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("[gateway] HTTP error %d on %s %s: %v", code, c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
