package monitor

import (
	"context"
	"time"
)

// ActivityStore is the append-only activity log. Appends are atomic;
// entries from the same worker preserve submission order.
type ActivityStore interface {
	Append(ctx context.Context, entry ActivityLogEntry) error
	// ReadSince returns the worker's entries at or after since, oldest
	// first. Used for frequency windows.
	ReadSince(ctx context.Context, workerID string, since time.Time) ([]ActivityLogEntry, error)
	// All returns every entry, oldest first.
	All(ctx context.Context) ([]ActivityLogEntry, error)
}
