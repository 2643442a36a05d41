package telemetry

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned when no telemetry exists for a vehicle.
var ErrSnapshotNotFound = errors.New("telemetry: snapshot not found")

// Source supplies vehicle sensor snapshots. Implementations own persistence
// and blocking I/O; callers treat reads as a synchronous boundary.
type Source interface {
	GetSnapshot(ctx context.Context, vehicleID string) (Snapshot, error)
	GetFleetSnapshots(ctx context.Context) ([]Snapshot, error)
}
