package notify

import (
	"context"
	"sync"

	workflow "fleetcare-cloud/internal/workflow/domain"
)

// ConsentProvider resolves an owner's consent decision after contact. A real
// deployment backs this with a call center or owner app; the scripted
// implementation drives demos and tests.
type ConsentProvider interface {
	ConsentDecision(ctx context.Context, vehicleID string) (workflow.Consent, error)
}

// ScriptedConsent answers consent lookups from a fixed script.
type ScriptedConsent struct {
	mu       sync.RWMutex
	script   map[string]workflow.Consent
	fallback workflow.Consent
}

// NewScriptedConsent builds a provider that answers with fallback for
// vehicles not in the script.
func NewScriptedConsent(fallback workflow.Consent) *ScriptedConsent {
	if !fallback.Valid() || fallback == workflow.ConsentUnknown {
		fallback = workflow.ConsentGranted
	}
	return &ScriptedConsent{
		script:   make(map[string]workflow.Consent),
		fallback: fallback,
	}
}

// Set scripts a decision for one vehicle.
func (s *ScriptedConsent) Set(vehicleID string, decision workflow.Consent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[vehicleID] = decision
}

// ConsentDecision returns the scripted decision or the fallback.
func (s *ScriptedConsent) ConsentDecision(ctx context.Context, vehicleID string) (workflow.Consent, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if decision, ok := s.script[vehicleID]; ok {
		return decision, nil
	}
	return s.fallback, nil
}
