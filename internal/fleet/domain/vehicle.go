package fleet

import (
	"context"
	"errors"
)

// ErrVehicleNotFound is returned when a vehicle is not registered.
var ErrVehicleNotFound = errors.New("fleet: vehicle not found")

// Owner holds contact details for a registered vehicle owner.
type Owner struct {
	OwnerID          string `json:"owner_id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	City             string `json:"city"`
	PreferredContact string `json:"preferred_contact,omitempty"`
}

// Vehicle is a registered fleet vehicle with its owner.
type Vehicle struct {
	VehicleID    string `json:"vehicle_id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	VIN          string `json:"vin,omitempty"`
	Registration string `json:"registration,omitempty"`
	MileageKM    int    `json:"mileage_km"`
	Owner        Owner  `json:"owner"`
}

// Validate checks vehicle invariants.
func (v Vehicle) Validate() error {
	if v.VehicleID == "" {
		return errors.New("fleet: empty vehicle id")
	}
	if v.Make == "" || v.Model == "" {
		return errors.New("fleet: empty make/model")
	}
	return nil
}

// Repository provides vehicle lookups.
type Repository interface {
	Get(ctx context.Context, vehicleID string) (Vehicle, error)
	List(ctx context.Context) ([]Vehicle, error)
}
