package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// Source reads snapshots from a JSON telemetry stream file keyed by vehicle
// id. The file is loaded once; reload requires a new Source.
type Source struct {
	mu        sync.RWMutex
	snapshots map[string]telemetry.Snapshot
}

// NewSource loads the telemetry stream file.
func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, errors.New("telemetry source: empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry source: read %s: %w", path, err)
	}
	var raw map[string]telemetry.Snapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("telemetry source: decode %s: %w", path, err)
	}
	snapshots := make(map[string]telemetry.Snapshot, len(raw))
	for vehicleID, snap := range raw {
		snap.VehicleID = vehicleID
		snapshots[vehicleID] = snap
	}
	return &Source{snapshots: snapshots}, nil
}

// NewSourceFromSnapshots builds a source from in-memory snapshots.
func NewSourceFromSnapshots(snaps []telemetry.Snapshot) *Source {
	snapshots := make(map[string]telemetry.Snapshot, len(snaps))
	for _, snap := range snaps {
		snapshots[snap.VehicleID] = snap
	}
	return &Source{snapshots: snapshots}
}

// GetSnapshot returns the snapshot for a vehicle.
func (s *Source) GetSnapshot(ctx context.Context, vehicleID string) (telemetry.Snapshot, error) {
	_ = ctx
	s.mu.RLock()
	snap, ok := s.snapshots[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return telemetry.Snapshot{}, telemetry.ErrSnapshotNotFound
	}
	return snap, nil
}

// GetFleetSnapshots returns all snapshots ordered by vehicle id.
func (s *Source) GetFleetSnapshots(ctx context.Context) ([]telemetry.Snapshot, error) {
	_ = ctx
	s.mu.RLock()
	snaps := make([]telemetry.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		snaps = append(snaps, snap)
	}
	s.mu.RUnlock()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].VehicleID < snaps[j].VehicleID })
	return snaps, nil
}

// Put inserts or replaces a snapshot. Used by the seed tool and tests.
func (s *Source) Put(snap telemetry.Snapshot) {
	s.mu.Lock()
	s.snapshots[snap.VehicleID] = snap
	s.mu.Unlock()
}
