package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	fleet "fleetcare-cloud/internal/fleet/domain"
	history "fleetcare-cloud/internal/history/domain"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// UndeterminedNarrative is used when no defect record matches.
const UndeterminedNarrative = "undetermined, recommend inspection"

// RootCauseRef cites a defect record corroborating an anomaly.
type RootCauseRef struct {
	DefectID         string    `json:"capa_id"`
	Component        string    `json:"component"`
	DefectType       string    `json:"defect_type"`
	Severity         string    `json:"severity"`
	CorrectiveAction string    `json:"corrective_action,omitempty"`
	LastServiced     time.Time `json:"last_serviced,omitempty"`
}

// Diagnosis is the triage output for one vehicle. Priority is derived from
// the anomaly set and history; callers never set it directly.
type Diagnosis struct {
	VehicleID     string                 `json:"vehicle_id"`
	Priority      diagnostics.Priority   `json:"priority"`
	Anomalies     []diagnostics.Anomaly  `json:"anomalies"`
	RootCauses    []RootCauseRef         `json:"root_causes"`
	Narrative     string                 `json:"narrative"`
	FailureWindow string                 `json:"predicted_failure_window"`
	TriagedAt     time.Time              `json:"triaged_at"`
}

// Emergency reports whether the diagnosis must short-circuit to the
// emergency path.
func (d Diagnosis) Emergency() bool {
	return d.Priority == diagnostics.PriorityCritical
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses wall time.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// TriageService combines anomalies with history and defect records into a
// prioritized diagnosis.
type TriageService struct {
	history  history.Store
	defects  history.DefectStore
	vehicles fleet.Repository
	safety   diagnostics.SafetyPolicy
	clock    Clock

	// recentServiceWindow bounds how old a maintenance record may be to
	// count an anomaly as already resolved.
	recentServiceWindow time.Duration
}

// TriageOption customizes the triage service.
type TriageOption func(*TriageService)

// WithClock assigns a clock.
func WithClock(clock Clock) TriageOption {
	return func(s *TriageService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSafetyPolicy overrides the safety-relevant component set.
func WithSafetyPolicy(policy diagnostics.SafetyPolicy) TriageOption {
	return func(s *TriageService) {
		s.safety = policy
	}
}

// WithRecentServiceWindow overrides the resolved-anomaly lookback.
func WithRecentServiceWindow(window time.Duration) TriageOption {
	return func(s *TriageService) {
		if window > 0 {
			s.recentServiceWindow = window
		}
	}
}

// NewTriageService constructs a triage service.
func NewTriageService(historyStore history.Store, defects history.DefectStore, vehicles fleet.Repository, opts ...TriageOption) (*TriageService, error) {
	if historyStore == nil {
		return nil, errors.New("triage: nil history store")
	}
	if defects == nil {
		return nil, errors.New("triage: nil defect store")
	}
	if vehicles == nil {
		return nil, errors.New("triage: nil vehicle repository")
	}
	service := &TriageService{
		history:             historyStore,
		defects:             defects,
		vehicles:            vehicles,
		safety:              diagnostics.DefaultSafetyPolicy(),
		clock:               SystemClock{},
		recentServiceWindow: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Triage evaluates the priority policy top-down, first match wins:
// critical safety-relevant, then any critical or defect-escalated warning,
// then unescalated warnings, then low.
func (s *TriageService) Triage(ctx context.Context, vehicleID string, anomalies []diagnostics.Anomaly) (Diagnosis, error) {
	if s == nil {
		return Diagnosis{}, errors.New("triage: nil service")
	}
	if vehicleID == "" {
		return Diagnosis{}, &telemetry.ValidationError{Field: "vehicle_id"}
	}

	model := ""
	if vehicle, err := s.vehicles.Get(ctx, vehicleID); err == nil {
		model = vehicle.Model
	} else if !errors.Is(err, fleet.ErrVehicleNotFound) {
		return Diagnosis{}, fmt.Errorf("triage: load vehicle: %w", err)
	}

	records, err := s.history.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("triage: load history: %w", err)
	}

	diagnosis := Diagnosis{
		VehicleID: vehicleID,
		Anomalies: anomalies,
		TriagedAt: s.clock.Now(),
	}

	escalated := false
	for _, anomaly := range anomalies {
		refs, err := s.matchDefects(ctx, anomaly, model, records)
		if err != nil {
			return Diagnosis{}, err
		}
		for _, ref := range refs {
			if isHighSeverityOutcome(ref.Severity) {
				escalated = true
			}
		}
		diagnosis.RootCauses = append(diagnosis.RootCauses, refs...)
	}
	diagnosis.RootCauses = dedupeRefs(diagnosis.RootCauses)

	diagnosis.Priority = s.assignPriority(anomalies, records, escalated)
	diagnosis.Narrative = s.narrative(diagnosis.RootCauses)
	diagnosis.FailureWindow = failureWindow(diagnosis.Priority)
	return diagnosis, nil
}

func (s *TriageService) assignPriority(anomalies []diagnostics.Anomaly, records []history.MaintenanceRecord, escalated bool) diagnostics.Priority {
	var hasCritical, hasWarning, unresolved bool
	for _, anomaly := range anomalies {
		switch anomaly.Severity {
		case diagnostics.SeverityCritical:
			hasCritical = true
			if s.safety.Covers(anomaly) {
				return diagnostics.PriorityCritical
			}
		case diagnostics.SeverityWarning:
			hasWarning = true
			if !s.resolvedByHistory(anomaly, records) {
				unresolved = true
			}
		}
	}
	switch {
	case hasCritical:
		return diagnostics.PriorityHigh
	case hasWarning && escalated:
		return diagnostics.PriorityHigh
	case hasWarning && unresolved:
		return diagnostics.PriorityMedium
	default:
		return diagnostics.PriorityLow
	}
}

// resolvedByHistory treats a warning anomaly as addressed when the component
// was serviced within the lookback window.
func (s *TriageService) resolvedByHistory(anomaly diagnostics.Anomaly, records []history.MaintenanceRecord) bool {
	cutoff := s.clock.Now().Add(-s.recentServiceWindow)
	for _, record := range records {
		if record.Date.Before(cutoff) {
			continue
		}
		for _, component := range record.ComponentsServiced {
			if containsFold(component, anomaly.Component) || containsFold(anomaly.Component, component) {
				return true
			}
		}
	}
	return false
}

// matchDefects cross-references an anomaly against defect records using
// case-insensitive substring matching on component and defect type. All
// matches are retained and ranked by recency of corroborating maintenance.
func (s *TriageService) matchDefects(ctx context.Context, anomaly diagnostics.Anomaly, model string, records []history.MaintenanceRecord) ([]RootCauseRef, error) {
	defects, err := s.defects.List(ctx, "", model)
	if err != nil {
		return nil, fmt.Errorf("triage: load defect records: %w", err)
	}
	var refs []RootCauseRef
	for _, defect := range defects {
		if !defectMatches(defect, anomaly) {
			continue
		}
		refs = append(refs, RootCauseRef{
			DefectID:         defect.DefectID,
			Component:        defect.Component,
			DefectType:       defect.DefectType,
			Severity:         defect.Severity,
			CorrectiveAction: defect.CorrectiveAction,
			LastServiced:     lastServiced(records, defect.Component),
		})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].LastServiced.After(refs[j].LastServiced)
	})
	return refs, nil
}

func (s *TriageService) narrative(refs []RootCauseRef) string {
	if len(refs) == 0 {
		return UndeterminedNarrative
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.DefectID)
	}
	return "known defect pattern, see CAPA " + strings.Join(ids, ", ")
}

func defectMatches(defect history.DefectRecord, anomaly diagnostics.Anomaly) bool {
	for _, anomalyText := range []string{anomaly.Component, anomaly.Issue} {
		for _, defectText := range []string{defect.Component, defect.DefectType} {
			if anomalyText == "" || defectText == "" {
				continue
			}
			if containsFold(defectText, anomalyText) || containsFold(anomalyText, defectText) {
				return true
			}
		}
	}
	return false
}

func lastServiced(records []history.MaintenanceRecord, component string) time.Time {
	var latest time.Time
	for _, record := range records {
		for _, serviced := range record.ComponentsServiced {
			if containsFold(serviced, component) || containsFold(component, serviced) {
				if record.Date.After(latest) {
					latest = record.Date
				}
			}
		}
	}
	return latest
}

func dedupeRefs(refs []RootCauseRef) []RootCauseRef {
	seen := make(map[string]struct{}, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if _, ok := seen[ref.DefectID]; ok {
			continue
		}
		seen[ref.DefectID] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func isHighSeverityOutcome(severity string) bool {
	switch strings.ToLower(severity) {
	case "high", "critical":
		return true
	default:
		return false
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func failureWindow(priority diagnostics.Priority) string {
	switch priority {
	case diagnostics.PriorityCritical:
		return "immediate - stop driving"
	case diagnostics.PriorityHigh:
		return "1-3 days"
	case diagnostics.PriorityMedium:
		return "1-2 weeks"
	default:
		return "next scheduled service"
	}
}
