package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	workflow "fleetcare-cloud/internal/workflow/domain"
)

// CaseRepository is an in-memory case store.
type CaseRepository struct {
	mu    sync.RWMutex
	cases map[string]*workflow.Case
}

// NewCaseRepository constructs an empty repository.
func NewCaseRepository() *CaseRepository {
	return &CaseRepository{cases: make(map[string]*workflow.Case)}
}

// Save upserts a case.
func (r *CaseRepository) Save(ctx context.Context, c *workflow.Case) error {
	_ = ctx
	if c == nil {
		return errors.New("case repo: nil case")
	}
	if c.CaseID == "" {
		return errors.New("case repo: empty case id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[c.CaseID] = c.Clone()
	return nil
}

// Get returns a case by id.
func (r *CaseRepository) Get(ctx context.Context, caseID string) (*workflow.Case, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[caseID]
	if !ok {
		return nil, workflow.ErrCaseNotFound
	}
	return c.Clone(), nil
}

// ActiveByVehicle returns the vehicle's open case.
func (r *CaseRepository) ActiveByVehicle(ctx context.Context, vehicleID string) (*workflow.Case, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cases {
		if c.VehicleID == vehicleID && !c.Stage.Terminal() {
			return c.Clone(), nil
		}
	}
	return nil, workflow.ErrCaseNotFound
}

// List returns all cases ordered by creation time.
func (r *CaseRepository) List(ctx context.Context) ([]*workflow.Case, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*workflow.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CaseID < out[j].CaseID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
