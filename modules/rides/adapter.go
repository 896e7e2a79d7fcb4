package rides

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/ridechat/domain/ride"
)

// RideInfo is the lookup result handed to other modules.
type RideInfo struct {
	Ride     domain.Ride
	Joinable bool
}

// RidePort defines the ride operations available to other modules.
type RidePort interface {
	// Lookup returns the ride record, or ErrRideNotFound.
	Lookup(ctx context.Context, rideID string) (*RideInfo, error)
}

// rideAdapter implements RidePort over the module's service container.
type rideAdapter struct {
	container mono.ServiceContainer
}

// NewRideAdapter creates a RidePort backed by the rides module.
func NewRideAdapter(container mono.ServiceContainer) RidePort {
	if container == nil {
		panic("rides adapter requires non-nil ServiceContainer")
	}
	return &rideAdapter{container: container}
}

func (a *rideAdapter) Lookup(ctx context.Context, rideID string) (*RideInfo, error) {
	req := LookupRequest{RideID: rideID}
	var resp LookupResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "lookup", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("lookup service call failed: %w", err)
	}
	if !resp.Found {
		return nil, ErrRideNotFound
	}
	return &RideInfo{Ride: resp.Ride, Joinable: resp.Joinable}, nil
}
