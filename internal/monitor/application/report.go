package application

import (
	"context"
	"time"

	monitor "fleetcare-cloud/internal/monitor/domain"
)

// HighRiskThreshold marks entries that demand operator attention.
const HighRiskThreshold = 7

// ReportRecommendation is the standing operator guidance on the report.
const ReportRecommendation = "Review high-risk activities and adjust agent permissions if needed"

// Report summarizes the activity log for operators.
type Report struct {
	GeneratedAt     time.Time                  `json:"report_generated_at"`
	TotalActivities int                        `json:"total_activities_logged"`
	AlertCount      int                        `json:"total_alerts"`
	HighRiskCount   int                        `json:"high_risk_activities"`
	LastAlerts      []monitor.ActivityLogEntry `json:"alert_details"`
	Recommendation  string                     `json:"recommendation"`
}

// Report aggregates the full log. LastAlerts holds the 10 most recent
// alert-bearing entries in chronological order, most recent last.
func (s *Service) Report(ctx context.Context) (Report, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		GeneratedAt:     s.clock.Now(),
		TotalActivities: len(entries),
		Recommendation:  ReportRecommendation,
	}
	var alerting []monitor.ActivityLogEntry
	for _, entry := range entries {
		if len(entry.Alerts) > 0 {
			alerting = append(alerting, entry)
		}
		if entry.RiskScore >= HighRiskThreshold {
			report.HighRiskCount++
		}
	}
	report.AlertCount = len(alerting)
	if len(alerting) > 10 {
		alerting = alerting[len(alerting)-10:]
	}
	report.LastAlerts = alerting
	return report, nil
}
