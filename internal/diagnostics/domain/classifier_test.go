package diagnostics

import (
	"errors"
	"reflect"
	"testing"

	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	classifier, err := NewClassifier(DefaultThresholdTable())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return classifier
}

func TestClassify_EngineOverheatingCriticalBeatsWarning(t *testing.T) {
	classifier := newTestClassifier(t)
	snap := telemetry.Snapshot{
		VehicleID: "VH002",
		Engine:    &telemetry.EngineReadings{TemperatureCelsius: telemetry.Float(111)},
	}

	report, err := classifier.Classify(snap)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(report.Anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(report.Anomalies))
	}
	anomaly := report.Anomalies[0]
	if anomaly.Issue != "engine_overheating" {
		t.Fatalf("expected engine_overheating, got %s", anomaly.Issue)
	}
	if anomaly.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", anomaly.Severity)
	}
	if report.OverallStatus != SeverityCritical {
		t.Fatalf("expected critical overall status, got %s", report.OverallStatus)
	}
}

func TestClassify_EngineTemperatureWarningTier(t *testing.T) {
	classifier := newTestClassifier(t)
	snap := telemetry.Snapshot{
		VehicleID: "VH002",
		Engine:    &telemetry.EngineReadings{TemperatureCelsius: telemetry.Float(105)},
	}

	report, err := classifier.Classify(snap)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(report.Anomalies) != 1 {
		t.Fatalf("expected one anomaly, got %d", len(report.Anomalies))
	}
	if report.Anomalies[0].Issue != "engine_temperature_high" {
		t.Fatalf("expected engine_temperature_high, got %s", report.Anomalies[0].Issue)
	}
	if report.OverallStatus != SeverityWarning {
		t.Fatalf("expected warning overall status, got %s", report.OverallStatus)
	}
}

func TestClassify_OilPressureBounds(t *testing.T) {
	classifier := newTestClassifier(t)

	low, err := classifier.Classify(telemetry.Snapshot{
		VehicleID: "VH006",
		Engine:    &telemetry.EngineReadings{OilPressurePSI: telemetry.Float(19)},
	})
	if err != nil {
		t.Fatalf("classify low: %v", err)
	}
	if low.OverallStatus != SeverityCritical {
		t.Fatalf("oil pressure 19: expected critical, got %s", low.OverallStatus)
	}
	if low.Anomalies[0].Issue != "oil_pressure_critical" {
		t.Fatalf("expected oil_pressure_critical, got %s", low.Anomalies[0].Issue)
	}

	// Oil pressure has no warning tier; 30 is within the envelope.
	ok, err := classifier.Classify(telemetry.Snapshot{
		VehicleID: "VH006",
		Engine:    &telemetry.EngineReadings{OilPressurePSI: telemetry.Float(30)},
	})
	if err != nil {
		t.Fatalf("classify ok: %v", err)
	}
	if ok.OverallStatus != SeverityNormal {
		t.Fatalf("oil pressure 30: expected normal, got %s", ok.OverallStatus)
	}
	if len(ok.Anomalies) != 0 {
		t.Fatalf("oil pressure 30: expected no anomalies, got %d", len(ok.Anomalies))
	}
}

func TestClassify_AbsentMetricsDoNotTrigger(t *testing.T) {
	classifier := newTestClassifier(t)

	report, err := classifier.Classify(telemetry.Snapshot{VehicleID: "VH001"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if report.OverallStatus != SeverityNormal || len(report.Anomalies) != 0 {
		t.Fatalf("empty snapshot must classify normal, got %s with %d anomalies",
			report.OverallStatus, len(report.Anomalies))
	}

	// A present subsystem with absent readings also fails open.
	report, err = classifier.Classify(telemetry.Snapshot{
		VehicleID: "VH001",
		Engine:    &telemetry.EngineReadings{},
		Battery:   &telemetry.BatteryReadings{Voltage: 12.6},
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(report.Anomalies) != 0 {
		t.Fatalf("absent readings must not trigger, got %d anomalies", len(report.Anomalies))
	}
}

func TestClassify_LowBadMetrics(t *testing.T) {
	classifier := newTestClassifier(t)
	snap := telemetry.Snapshot{
		VehicleID: "VH004",
		Engine:    &telemetry.EngineReadings{CoolantLevelPct: telemetry.Float(45)},
		Battery:   &telemetry.BatteryReadings{HealthPct: telemetry.Float(38)},
		Tyres:     &telemetry.TyreReadings{TreadDepthMM: telemetry.Float(1.5)},
		Brakes:    &telemetry.BrakeReadings{FrontPadWearPct: telemetry.Float(80)},
	}

	report, err := classifier.Classify(snap)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := map[string]Severity{
		"coolant_low":              SeverityWarning,
		"battery_failure_imminent": SeverityCritical,
		"tyre_tread_critical":      SeverityCritical,
		"brake_pad_wear_high":      SeverityWarning,
	}
	if len(report.Anomalies) != len(want) {
		t.Fatalf("expected %d anomalies, got %d", len(want), len(report.Anomalies))
	}
	for _, anomaly := range report.Anomalies {
		severity, ok := want[anomaly.Issue]
		if !ok {
			t.Fatalf("unexpected anomaly %s", anomaly.Issue)
		}
		if anomaly.Severity != severity {
			t.Fatalf("%s: expected %s, got %s", anomaly.Issue, severity, anomaly.Severity)
		}
	}
	if report.OverallStatus != SeverityCritical {
		t.Fatalf("expected critical overall status, got %s", report.OverallStatus)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	classifier := newTestClassifier(t)
	snap := telemetry.Snapshot{
		VehicleID: "VH006",
		Engine: &telemetry.EngineReadings{
			TemperatureCelsius: telemetry.Float(118),
			OilPressurePSI:     telemetry.Float(22),
			CoolantLevelPct:    telemetry.Float(40),
		},
		Brakes: &telemetry.BrakeReadings{FrontPadWearPct: telemetry.Float(70)},
	}

	first, err := classifier.Classify(snap)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := classifier.Classify(snap)
		if err != nil {
			t.Fatalf("classify run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, next)
		}
	}
}

func TestClassify_MissingVehicleID(t *testing.T) {
	classifier := newTestClassifier(t)
	_, err := classifier.Classify(telemetry.Snapshot{})
	if err == nil {
		t.Fatal("expected validation error for missing vehicle id")
	}
	var validation *telemetry.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if validation.Field != "vehicle_id" {
		t.Fatalf("expected vehicle_id field, got %q", validation.Field)
	}
}

func TestThresholdTable_Validate(t *testing.T) {
	table := DefaultThresholdTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table must validate: %v", err)
	}

	table.Metrics = append(table.Metrics, table.Metrics[0])
	if err := table.Validate(); err == nil {
		t.Fatal("expected duplicate metric error")
	}

	bad := ThresholdTable{Version: 1, Metrics: []MetricThreshold{{Metric: "x", Component: "y", Direction: "sideways"}}}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid direction error")
	}
}
