package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	monitor "fleetcare-cloud/internal/monitor/domain"
)

// ActivityStore is an in-memory append-only activity log.
type ActivityStore struct {
	mu      sync.RWMutex
	entries []monitor.ActivityLogEntry
}

// NewActivityStore constructs an empty log.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

// Append adds an entry. Submission order is preserved.
func (s *ActivityStore) Append(ctx context.Context, entry monitor.ActivityLogEntry) error {
	_ = ctx
	if entry.EntryID == "" || entry.WorkerID == "" {
		return errors.New("activity store: missing fields")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// ReadSince returns the worker's entries at or after since, oldest first.
func (s *ActivityStore) ReadSince(ctx context.Context, workerID string, since time.Time) ([]monitor.ActivityLogEntry, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []monitor.ActivityLogEntry
	for _, entry := range s.entries {
		if entry.WorkerID != workerID {
			continue
		}
		if entry.OccurredAt.Before(since) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// All returns every entry, oldest first.
func (s *ActivityStore) All(ctx context.Context) ([]monitor.ActivityLogEntry, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]monitor.ActivityLogEntry(nil), s.entries...), nil
}
