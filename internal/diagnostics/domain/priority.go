package diagnostics

import "strings"

// Priority ranks a diagnosis for scheduling urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// SafetyPolicy declares which components and issue codes are safety relevant.
// A critical anomaly covered by the policy escalates straight to the
// emergency path.
type SafetyPolicy struct {
	Components []string `yaml:"components"`
	Issues     []string `yaml:"issues"`
}

// DefaultSafetyPolicy covers brakes, steering, engine overheat, oil pressure
// loss and imminent battery failure.
func DefaultSafetyPolicy() SafetyPolicy {
	return SafetyPolicy{
		Components: []string{"brakes", "steering"},
		Issues: []string{
			"engine_overheating",
			"oil_pressure_critical",
			"battery_failure_imminent",
		},
	}
}

// Covers reports whether the anomaly touches a safety-relevant component or
// issue. Matching is case-insensitive.
func (p SafetyPolicy) Covers(anomaly Anomaly) bool {
	for _, component := range p.Components {
		if strings.EqualFold(anomaly.Component, component) {
			return true
		}
	}
	for _, issue := range p.Issues {
		if strings.EqualFold(anomaly.Issue, issue) {
			return true
		}
	}
	return false
}
