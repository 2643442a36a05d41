package events

import "time"

// AnomalyDetected is raised when a vehicle diagnosis finds at least one
// anomaly above the normal tier.
type AnomalyDetected struct {
	VehicleID  string
	Priority   string
	Issues     []string
	OccurredAt time.Time
}

// CaseAdvanced is emitted on every case stage transition.
type CaseAdvanced struct {
	CaseID     string
	VehicleID  string
	FromStage  string
	ToStage    string
	Emergency  bool
	OccurredAt time.Time
}

// ActivityRecorded is emitted for every scored worker activity.
type ActivityRecorded struct {
	WorkerID   string
	Action     string
	RiskScore  int
	AlertKind  string
	OccurredAt time.Time
}
