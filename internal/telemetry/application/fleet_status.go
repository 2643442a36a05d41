package application

import (
	"context"
	"errors"
	"sort"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// VehicleStatus is one vehicle's classified health in the fleet rollup.
type VehicleStatus struct {
	VehicleID     string                `json:"vehicle_id"`
	OverallStatus diagnostics.Severity  `json:"overall_status"`
	Anomalies     []diagnostics.Anomaly `json:"anomalies,omitempty"`
}

// FleetStatus is the fleet-wide health rollup.
type FleetStatus struct {
	Total    int             `json:"total_vehicles"`
	Critical int             `json:"critical"`
	Warning  int             `json:"warning"`
	Normal   int             `json:"normal"`
	Vehicles []VehicleStatus `json:"vehicles"`
}

// FleetStatusService classifies every fleet snapshot into a rollup.
type FleetStatusService struct {
	source     telemetry.Source
	classifier *diagnostics.Classifier
}

// NewFleetStatusService constructs the service.
func NewFleetStatusService(source telemetry.Source, classifier *diagnostics.Classifier) (*FleetStatusService, error) {
	if source == nil {
		return nil, errors.New("telemetry: nil source")
	}
	if classifier == nil {
		return nil, errors.New("telemetry: nil classifier")
	}
	return &FleetStatusService{source: source, classifier: classifier}, nil
}

// Status classifies every snapshot. Vehicles are ordered most severe
// first, ties by vehicle id.
func (s *FleetStatusService) Status(ctx context.Context) (FleetStatus, error) {
	snaps, err := s.source.GetFleetSnapshots(ctx)
	if err != nil {
		return FleetStatus{}, err
	}

	status := FleetStatus{Total: len(snaps)}
	for _, snap := range snaps {
		report, err := s.classifier.Classify(snap)
		if err != nil {
			return FleetStatus{}, err
		}
		switch report.OverallStatus {
		case diagnostics.SeverityCritical:
			status.Critical++
		case diagnostics.SeverityWarning:
			status.Warning++
		default:
			status.Normal++
		}
		status.Vehicles = append(status.Vehicles, VehicleStatus{
			VehicleID:     snap.VehicleID,
			OverallStatus: report.OverallStatus,
			Anomalies:     report.Anomalies,
		})
	}
	sort.SliceStable(status.Vehicles, func(i, j int) bool {
		ri, rj := status.Vehicles[i].OverallStatus.Rank(), status.Vehicles[j].OverallStatus.Rank()
		if ri != rj {
			return ri > rj
		}
		return status.Vehicles[i].VehicleID < status.Vehicles[j].VehicleID
	})
	return status, nil
}
