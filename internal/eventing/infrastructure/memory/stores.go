package memory

import (
	"context"
	"sync"
	"time"

	"fleetcare-cloud/internal/eventing"
)

// OutboxStore keeps outbox records in memory. Single-node deployments run on
// it directly; the Postgres store replaces it when durability is required.
type OutboxStore struct {
	mu      sync.Mutex
	records []outboxEntry
}

type outboxEntry struct {
	record eventing.OutboxRecord
	status string
}

// NewOutboxStore constructs an empty outbox.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

// Insert appends a pending envelope and returns its outbox id.
func (s *OutboxStore) Insert(ctx context.Context, env eventing.Envelope) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	id := eventing.NewEventID()
	s.records = append(s.records, outboxEntry{
		record: eventing.OutboxRecord{ID: id, Envelope: env},
		status: "pending",
	})
	return id, nil
}

// ListPending returns up to limit pending records in insertion order.
func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]eventing.OutboxRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []eventing.OutboxRecord
	for _, entry := range s.records {
		if entry.status != "pending" {
			continue
		}
		out = append(out, entry.record)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkSent marks a record as delivered.
func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.mark(ctx, id, "sent")
}

// MarkFailed marks a record as failed.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string) error {
	return s.mark(ctx, id, "failed")
}

func (s *OutboxStore) mark(ctx context.Context, id, status string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].record.ID == id {
			s.records[i].status = status
			return nil
		}
	}
	return nil
}

// ProcessedStore tracks consumed event ids per consumer.
type ProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewProcessedStore constructs an empty processed store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{seen: make(map[string]struct{})}
}

// HasProcessed reports whether the consumer already handled the event.
func (s *ProcessedStore) HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID+"|"+consumerName]
	return ok, nil
}

// MarkProcessed records the event as handled by the consumer.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, eventID, consumerName string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID+"|"+consumerName] = struct{}{}
	return nil
}

// DLQEntry is one dead-lettered envelope.
type DLQEntry struct {
	Envelope eventing.Envelope
	Reason   string
	FailedAt time.Time
}

// DLQStore collects envelopes that could not be delivered.
type DLQStore struct {
	mu      sync.Mutex
	entries []DLQEntry
}

// NewDLQStore constructs an empty DLQ.
func NewDLQStore() *DLQStore {
	return &DLQStore{}
}

// RecordFailure appends a failed envelope.
func (s *DLQStore) RecordFailure(ctx context.Context, env eventing.Envelope, cause error) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	s.entries = append(s.entries, DLQEntry{Envelope: env, Reason: reason, FailedAt: time.Now().UTC()})
	return nil
}

// Entries returns a copy of the dead-lettered envelopes.
func (s *DLQStore) Entries() []DLQEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DLQEntry(nil), s.entries...)
}
