package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	fleet "fleetcare-cloud/internal/fleet/domain"
)

// VehicleRepository is an in-memory vehicle registry.
type VehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]fleet.Vehicle
}

// NewVehicleRepository constructs an empty registry.
func NewVehicleRepository() *VehicleRepository {
	return &VehicleRepository{vehicles: make(map[string]fleet.Vehicle)}
}

// NewVehicleRepositoryFromFile loads a JSON array of vehicles.
func NewVehicleRepositoryFromFile(path string) (*VehicleRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fleet repository: read %s: %w", path, err)
	}
	var vehicles []fleet.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, fmt.Errorf("fleet repository: decode %s: %w", path, err)
	}
	repo := NewVehicleRepository()
	for _, vehicle := range vehicles {
		if err := repo.Put(vehicle); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// Put inserts or replaces a vehicle.
func (r *VehicleRepository) Put(vehicle fleet.Vehicle) error {
	if err := vehicle.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.vehicles[vehicle.VehicleID] = vehicle
	r.mu.Unlock()
	return nil
}

// Get returns a vehicle by id.
func (r *VehicleRepository) Get(ctx context.Context, vehicleID string) (fleet.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	vehicle, ok := r.vehicles[vehicleID]
	r.mu.RUnlock()
	if !ok {
		return fleet.Vehicle{}, fleet.ErrVehicleNotFound
	}
	return vehicle, nil
}

// List returns all vehicles ordered by id.
func (r *VehicleRepository) List(ctx context.Context) ([]fleet.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	vehicles := make([]fleet.Vehicle, 0, len(r.vehicles))
	for _, vehicle := range r.vehicles {
		vehicles = append(vehicles, vehicle)
	}
	r.mu.RUnlock()
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].VehicleID < vehicles[j].VehicleID })
	return vehicles, nil
}
