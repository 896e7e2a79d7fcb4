package rides

import domain "github.com/example/ridechat/domain/ride"

// LookupRequest asks whether a ride exists and is joinable.
type LookupRequest struct {
	RideID string `json:"ride_id"`
}

// LookupResponse carries the ride record when found. Joinable is
// precomputed so callers need no knowledge of ride status semantics.
type LookupResponse struct {
	Found    bool        `json:"found"`
	Joinable bool        `json:"joinable"`
	Ride     domain.Ride `json:"ride,omitempty"`
}
