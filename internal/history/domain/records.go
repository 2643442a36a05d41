package history

import (
	"context"
	"errors"
	"time"
)

// MaintenanceRecord describes one completed service visit.
type MaintenanceRecord struct {
	RecordID           string    `json:"record_id"`
	VehicleID          string    `json:"vehicle_id"`
	Date               time.Time `json:"date"`
	ServiceType        string    `json:"service_type"`
	MileageAtService   int       `json:"mileage_at_service,omitempty"`
	ComponentsServiced []string  `json:"components_serviced"`
	IssuesFound        []string  `json:"issues_found"`
	TechnicianID       string    `json:"technician_id,omitempty"`
	ServiceCenterID    string    `json:"service_center_id,omitempty"`
	Cost               float64   `json:"cost,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

// Validate checks record invariants.
func (r MaintenanceRecord) Validate() error {
	if r.RecordID == "" {
		return errors.New("history: empty record id")
	}
	if r.VehicleID == "" {
		return errors.New("history: empty vehicle id")
	}
	if r.Date.IsZero() {
		return errors.New("history: zero date")
	}
	return nil
}

// DefectRecord is a corrective/preventive action (CAPA) record describing a
// known defect and its remedy. Treated as opaque external data.
type DefectRecord struct {
	DefectID         string   `json:"capa_id"`
	Component        string   `json:"component"`
	DefectType       string   `json:"defect_type"`
	Severity         string   `json:"severity"`
	RootCause        string   `json:"root_cause"`
	CorrectiveAction string   `json:"corrective_action"`
	AffectedModels   []string `json:"affected_models,omitempty"`
}

// Store provides maintenance history per vehicle, most recent first.
type Store interface {
	ListByVehicle(ctx context.Context, vehicleID string) ([]MaintenanceRecord, error)
	Append(ctx context.Context, record MaintenanceRecord) error
}

// DefectStore provides defect record lookups. Empty component/model match all.
type DefectStore interface {
	List(ctx context.Context, component, model string) ([]DefectRecord, error)
}
