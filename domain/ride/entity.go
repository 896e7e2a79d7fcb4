package ride

import "time"

// Status is the lifecycle state of a ride.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Ride is the minimal ride record the chat service needs: enough to
// decide whether a ride-scoped channel is joinable. Ride management
// itself lives upstream.
type Ride struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RiderID   string    `json:"rider_id"`
	DriverID  string    `json:"driver_id"`
	Status    Status    `gorm:"index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Joinable reports whether the ride's chat channel accepts members.
func (r *Ride) Joinable() bool {
	return r.Status == StatusActive
}
