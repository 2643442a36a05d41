package auth

import (
	"context"
	"errors"

	fleet "fleetcare-cloud/internal/fleet/domain"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("resource not found")

// VehicleChecker validates that a vehicle is registered before a request
// touches per-vehicle resources.
type VehicleChecker interface {
	EnsureVehicle(ctx context.Context, vehicleID string) error
}

// FleetVehicleChecker checks vehicle registration against the fleet
// repository.
type FleetVehicleChecker struct {
	repo fleet.Repository
}

// NewFleetVehicleChecker constructs a FleetVehicleChecker.
func NewFleetVehicleChecker(repo fleet.Repository) *FleetVehicleChecker {
	if repo == nil {
		return nil
	}
	return &FleetVehicleChecker{repo: repo}
}

// EnsureVehicle verifies the vehicle is registered.
func (c *FleetVehicleChecker) EnsureVehicle(ctx context.Context, vehicleID string) error {
	if c == nil || c.repo == nil {
		return errors.New("vehicle checker not configured")
	}
	if vehicleID == "" {
		return ErrNotFound
	}
	if _, err := c.repo.Get(ctx, vehicleID); err != nil {
		if errors.Is(err, fleet.ErrVehicleNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
