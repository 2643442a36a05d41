package monitor

import (
	"errors"
	"fmt"
	"time"
)

// AlertKind identifies a behavior alert category.
type AlertKind string

const (
	AlertUnauthorizedDataAccess AlertKind = "UNAUTHORIZED_DATA_ACCESS"
	AlertUnauthorizedToolUse    AlertKind = "UNAUTHORIZED_TOOL_USE"
	AlertUnusualFrequency       AlertKind = "UNUSUAL_FREQUENCY"
	AlertPolicyViolation        AlertKind = "POLICY_VIOLATION"
	AlertEscalationRequired     AlertKind = "ESCALATION_REQUIRED"
)

// Alert is attached to exactly one activity log entry.
type Alert struct {
	Kind     AlertKind `json:"type"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// ActivityLogEntry is one recorded worker action with its computed risk.
// Entries are append-only and never mutated after scoring.
type ActivityLogEntry struct {
	EntryID    string     `json:"log_id"`
	WorkerID   string     `json:"worker_id"`
	Kind       ActionKind `json:"action_kind"`
	Target     string     `json:"target_resource"`
	Details    string     `json:"details,omitempty"`
	RiskScore  int        `json:"risk_score"`
	Alerts     []Alert    `json:"alerts,omitempty"`
	OccurredAt time.Time  `json:"timestamp"`
}

// ErrInvalidActivity is returned for malformed activity submissions.
var ErrInvalidActivity = errors.New("monitor: invalid activity")

// Response maps a risk score to the advisory action for the caller. The
// monitor itself never halts anything.
func Response(risk int) string {
	switch {
	case risk >= 7:
		return "ALERT"
	case risk >= 4:
		return "MONITOR"
	default:
		return "ALLOW"
	}
}

// ScoreInput carries everything scoring needs besides the baseline.
type ScoreInput struct {
	Kind        ActionKind
	Target      string
	DataTarget  bool
	RecentCount int
}

// Score applies the behavior policy. Rules are evaluated in order and the
// highest triggered score wins; scores never sum, and at most one alert is
// produced per entry.
//
// The data-scope rule fires for any action kind whose target names a
// declared data scope, not only for reads.
func Score(b Baseline, in ScoreInput) (int, []Alert) {
	if b.Unrestricted {
		return 0, nil
	}

	type candidate struct {
		risk  int
		alert Alert
	}
	var candidates []candidate

	if (in.Kind == ActionAccessData || in.DataTarget) && len(b.DataScopes) > 0 && !b.PermitsScope(in.Target) {
		candidates = append(candidates, candidate{
			risk: 8,
			alert: Alert{
				Kind:     AlertUnauthorizedDataAccess,
				Severity: "high",
				Message:  fmt.Sprintf("%s attempted to access %s which is outside its normal scope", b.WorkerID, in.Target),
			},
		})
	}
	if in.Kind == ActionInvokeCapability && len(b.AllowedTools) > 0 && !b.PermitsTool(in.Target) {
		candidates = append(candidates, candidate{
			risk: 7,
			alert: Alert{
				Kind:     AlertUnauthorizedToolUse,
				Severity: "medium",
				Message:  fmt.Sprintf("%s attempted to use %s which is not in its allowed tool set", b.WorkerID, in.Target),
			},
		})
	}
	if b.RateCeiling > 0 && float64(in.RecentCount+1) > 1.5*float64(b.RateCeiling) {
		candidates = append(candidates, candidate{
			risk: 5,
			alert: Alert{
				Kind:     AlertUnusualFrequency,
				Severity: "medium",
				Message:  fmt.Sprintf("%s exceeded its normal call frequency of %d per hour", b.WorkerID, b.RateCeiling),
			},
		})
	}

	if len(candidates) == 0 {
		return 0, nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.risk > best.risk {
			best = c
		}
	}
	return best.risk, []Alert{best.alert}
}
