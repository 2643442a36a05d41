package diagnostics

import (
	"errors"

	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// Classifier evaluates snapshots against a threshold table. Classification is
// a pure function of the snapshot and the table: identical input yields an
// identical report.
type Classifier struct {
	table ThresholdTable
}

// NewClassifier constructs a classifier after validating the table.
func NewClassifier(table ThresholdTable) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{table: table}, nil
}

// Classify evaluates every monitored metric in the snapshot. Absent readings
// do not trigger (the envelope fails open for missing metrics). Critical is
// evaluated before warning so at most one anomaly exists per metric.
func (c *Classifier) Classify(snap telemetry.Snapshot) (Report, error) {
	if c == nil {
		return Report{}, errors.New("diagnostics: nil classifier")
	}
	if err := snap.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{VehicleID: snap.VehicleID, OverallStatus: SeverityNormal}
	for _, threshold := range c.table.Metrics {
		value := metricValue(snap, threshold.Metric)
		if value == nil {
			continue
		}
		anomaly, ok := evaluate(threshold, *value)
		if !ok {
			continue
		}
		report.Anomalies = append(report.Anomalies, anomaly)
		if anomaly.Severity.Rank() > report.OverallStatus.Rank() {
			report.OverallStatus = anomaly.Severity
		}
	}
	return report, nil
}

func evaluate(t MetricThreshold, value float64) (Anomaly, bool) {
	if crossed(t.Direction, value, *t.Critical) {
		return Anomaly{
			Component:      t.Component,
			Issue:          t.CriticalIssue,
			Severity:       SeverityCritical,
			Value:          value,
			Threshold:      *t.Critical,
			Recommendation: t.CriticalAdvice,
		}, true
	}
	if t.Warning != nil && crossed(t.Direction, value, *t.Warning) {
		return Anomaly{
			Component:      t.Component,
			Issue:          t.WarningIssue,
			Severity:       SeverityWarning,
			Value:          value,
			Threshold:      *t.Warning,
			Recommendation: t.WarningAdvice,
		}, true
	}
	return Anomaly{}, false
}

func crossed(direction Direction, value, bound float64) bool {
	if direction == DirectionLowBad {
		return value < bound
	}
	return value > bound
}

func metricValue(snap telemetry.Snapshot, metric string) *float64 {
	switch metric {
	case MetricEngineTemperature:
		if snap.Engine != nil {
			return snap.Engine.TemperatureCelsius
		}
	case MetricOilPressure:
		if snap.Engine != nil {
			return snap.Engine.OilPressurePSI
		}
	case MetricCoolantLevel:
		if snap.Engine != nil {
			return snap.Engine.CoolantLevelPct
		}
	case MetricBatteryHealth:
		if snap.Battery != nil {
			return snap.Battery.HealthPct
		}
	case MetricBrakePadWear:
		if snap.Brakes != nil {
			return snap.Brakes.FrontPadWearPct
		}
	case MetricTreadDepth:
		if snap.Tyres != nil {
			return snap.Tyres.TreadDepthMM
		}
	}
	return nil
}
