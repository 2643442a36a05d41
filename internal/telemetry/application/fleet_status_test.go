package application

import (
	"context"
	"testing"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
	"fleetcare-cloud/internal/telemetry/infrastructure/jsonfile"
)

func TestFleetStatus_RollupOrdersBySeverity(t *testing.T) {
	source := jsonfile.NewSourceFromSnapshots([]telemetry.Snapshot{
		{VehicleID: "VH001", Engine: &telemetry.EngineReadings{TemperatureCelsius: telemetry.Float(90)}},
		{VehicleID: "VH002", Engine: &telemetry.EngineReadings{TemperatureCelsius: telemetry.Float(105)}},
		{VehicleID: "VH003", Engine: &telemetry.EngineReadings{TemperatureCelsius: telemetry.Float(118)}},
	})
	classifier, err := diagnostics.NewClassifier(diagnostics.DefaultThresholdTable())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	svc, err := NewFleetStatusService(source, classifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Total != 3 || status.Critical != 1 || status.Warning != 1 || status.Normal != 1 {
		t.Fatalf("unexpected counts %+v", status)
	}
	if len(status.Vehicles) != 3 || status.Vehicles[0].VehicleID != "VH003" || status.Vehicles[2].VehicleID != "VH001" {
		t.Fatalf("expected severity ordering, got %+v", status.Vehicles)
	}
	if status.Vehicles[0].OverallStatus != diagnostics.SeverityCritical {
		t.Fatalf("expected VH003 critical, got %s", status.Vehicles[0].OverallStatus)
	}
}
