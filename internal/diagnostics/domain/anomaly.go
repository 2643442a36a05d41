package diagnostics

// Severity grades an anomaly or an overall vehicle status.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparisons; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Anomaly is a sensor reading outside its declared operating envelope.
// Records are immutable after classification.
type Anomaly struct {
	Component      string   `json:"component"`
	Issue          string   `json:"issue"`
	Severity       Severity `json:"severity"`
	Value          float64  `json:"current_value"`
	Threshold      float64  `json:"threshold"`
	Recommendation string   `json:"recommendation"`
}

// Report is the classifier output for one snapshot.
type Report struct {
	VehicleID     string    `json:"vehicle_id"`
	OverallStatus Severity  `json:"overall_status"`
	Anomalies     []Anomaly `json:"anomalies"`
}
