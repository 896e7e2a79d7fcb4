package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/ridechat/modules/rides"
)

// REST handlers. The websocket protocol lives in session.go; these
// endpoints serve token issuance and read-only ride chat state.

// IssueToken handles POST /api/v1/auth/token.
func (m *Module) IssueToken(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	token, err := m.auth.IssueToken(c.Context(), req.UserID, req.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}
	return c.JSON(TokenResponse{Token: token.Value, ExpiresIn: token.ExpiresIn})
}

// GetRide handles GET /api/v1/rides/:id.
func (m *Module) GetRide(c *fiber.Ctx) error {
	rideID := c.Params("id")

	info, err := m.rides.Lookup(c.Context(), rideID)
	if err != nil {
		if errors.Is(err, rides.ErrRideNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Ride not found",
			})
		}
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"ride":     info.Ride,
		"joinable": info.Joinable,
	})
}

// GetRideMessages handles GET /api/v1/rides/:id/messages.
func (m *Module) GetRideMessages(c *fiber.Ctx) error {
	rideID := c.Params("id")

	limit := c.QueryInt("limit", 50)
	if limit > 200 {
		limit = 200
	}

	messages, err := m.chat.Backlog(c.Context(), rideID, limit)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"rideId":   rideID,
		"messages": messages,
		"total":    len(messages),
	})
}

// GetRideMembers handles GET /api/v1/rides/:id/members.
func (m *Module) GetRideMembers(c *fiber.Ctx) error {
	rideID := c.Params("id")

	members, err := m.chat.Members(c.Context(), rideID)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"rideId":  rideID,
		"members": members,
		"total":   len(members),
	})
}

// HealthCheck handles GET /health.
func (m *Module) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "ridechat",
	})
}
