package monitor

import (
	"fmt"
	"sync"
)

// ActionKind classifies a recorded worker action.
type ActionKind string

const (
	ActionInvokeCapability ActionKind = "invoke_capability"
	ActionAccessData       ActionKind = "access_data"
	ActionHandOff          ActionKind = "hand_off"
	ActionExternalContact  ActionKind = "external_contact"
)

// Valid returns true for a recognized action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionInvokeCapability, ActionAccessData, ActionHandOff, ActionExternalContact:
		return true
	default:
		return false
	}
}

// Baseline declares a worker's normal behavior: permitted capabilities,
// permitted data scopes, and an hourly call-rate ceiling. Loaded once,
// read-only during operation.
type Baseline struct {
	WorkerID     string   `yaml:"worker_id" json:"worker_id"`
	AllowedTools []string `yaml:"allowed_tools" json:"allowed_tools,omitempty"`
	DataScopes   []string `yaml:"allowed_data_access" json:"allowed_data_access,omitempty"`
	RateCeiling  int      `yaml:"normal_call_frequency" json:"normal_call_frequency,omitempty"`
	// Unrestricted marks the explicit open policy applied to workers with
	// no configured baseline. Nothing is ever blocked for them.
	Unrestricted bool `yaml:"-" json:"unrestricted,omitempty"`
}

// Validate checks baseline invariants.
func (b Baseline) Validate() error {
	if b.WorkerID == "" && !b.Unrestricted {
		return fmt.Errorf("monitor: baseline missing worker id")
	}
	if b.RateCeiling < 0 {
		return fmt.Errorf("monitor: baseline %s negative rate ceiling", b.WorkerID)
	}
	return nil
}

// PermitsTool reports whether the tool is inside the permitted set. An
// empty set permits everything.
func (b Baseline) PermitsTool(tool string) bool {
	if b.Unrestricted || len(b.AllowedTools) == 0 {
		return true
	}
	for _, t := range b.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

// PermitsScope reports whether the data scope is inside the permitted set.
// An empty set permits everything.
func (b Baseline) PermitsScope(scope string) bool {
	if b.Unrestricted || len(b.DataScopes) == 0 {
		return true
	}
	for _, s := range b.DataScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Registry holds baselines keyed by worker identity. Lookups for unknown
// workers return the explicit unrestricted policy instead of treating
// absence as permission implicitly.
type Registry struct {
	mu        sync.RWMutex
	baselines map[string]Baseline
	scopes    map[string]struct{}
}

// NewRegistry constructs a registry from baselines.
func NewRegistry(baselines ...Baseline) (*Registry, error) {
	r := &Registry{
		baselines: make(map[string]Baseline),
		scopes:    make(map[string]struct{}),
	}
	for _, b := range baselines {
		if err := r.Put(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Put registers or replaces a baseline.
func (r *Registry) Put(b Baseline) error {
	if err := b.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baselines[b.WorkerID] = b
	for _, scope := range b.DataScopes {
		r.scopes[scope] = struct{}{}
	}
	return nil
}

// Lookup returns the worker's baseline. Unknown workers get the
// unrestricted policy and known=false so callers can log the gap.
func (r *Registry) Lookup(workerID string) (Baseline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.baselines[workerID]
	if !ok {
		return Baseline{WorkerID: workerID, Unrestricted: true}, false
	}
	return b, true
}

// KnownScope reports whether the target names a data scope declared by any
// baseline. Used to apply the data-scope rule to non-read action kinds.
func (r *Registry) KnownScope(target string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scopes[target]
	return ok
}

// Workers returns the configured worker ids.
func (r *Registry) Workers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.baselines))
	for id := range r.baselines {
		out = append(out, id)
	}
	return out
}

// DefaultBaselines is the stock worker roster.
func DefaultBaselines() []Baseline {
	return []Baseline{
		{
			WorkerID:     "data_analysis_agent",
			AllowedTools: []string{"get_vehicle_telemetry", "get_sensor_history", "detect_anomalies", "get_all_vehicles_status"},
			DataScopes:   []string{"telemetry"},
			RateCeiling:  10,
		},
		{
			WorkerID:     "diagnosis_agent",
			AllowedTools: []string{"get_vehicle_info", "get_maintenance_history", "get_capa_records", "search_similar_issues", "detect_anomalies"},
			DataScopes:   []string{"telemetry", "maintenance", "capa"},
			RateCeiling:  8,
		},
		{
			WorkerID:     "scheduling_agent",
			AllowedTools: []string{"get_available_slots", "book_appointment", "cancel_appointment", "get_nearest_service_center"},
			DataScopes:   []string{"service_centers", "vehicles"},
			RateCeiling:  15,
		},
		{
			WorkerID:     "customer_outreach_agent",
			AllowedTools: []string{"send_voice_notification", "log_conversation", "get_vehicle_info"},
			DataScopes:   []string{"vehicles", "notifications"},
			RateCeiling:  20,
		},
	}
}
