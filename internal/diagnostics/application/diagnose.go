package application

import (
	"context"
	"errors"
	"log"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	"fleetcare-cloud/internal/eventing/events"
	"fleetcare-cloud/internal/observability/metrics"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// Publisher emits integration events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// DiagnosisService runs the full pipeline for one vehicle: snapshot,
// classification, triage.
type DiagnosisService struct {
	source     telemetry.Source
	classifier *diagnostics.Classifier
	triage     *TriageService
	publisher  Publisher
	logger     *log.Logger
}

// DiagnosisOption configures the service.
type DiagnosisOption func(*DiagnosisService)

// WithDiagnosisPublisher assigns an event publisher.
func WithDiagnosisPublisher(pub Publisher) DiagnosisOption {
	return func(s *DiagnosisService) {
		s.publisher = pub
	}
}

// WithDiagnosisLogger assigns a logger.
func WithDiagnosisLogger(logger *log.Logger) DiagnosisOption {
	return func(s *DiagnosisService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDiagnosisService constructs the pipeline service.
func NewDiagnosisService(source telemetry.Source, classifier *diagnostics.Classifier, triage *TriageService, opts ...DiagnosisOption) (*DiagnosisService, error) {
	if source == nil {
		return nil, errors.New("diagnostics: nil telemetry source")
	}
	if classifier == nil {
		return nil, errors.New("diagnostics: nil classifier")
	}
	if triage == nil {
		return nil, errors.New("diagnostics: nil triage service")
	}
	s := &DiagnosisService{
		source:     source,
		classifier: classifier,
		triage:     triage,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Diagnose classifies the vehicle's latest snapshot and triages the result.
func (s *DiagnosisService) Diagnose(ctx context.Context, vehicleID string) (Diagnosis, error) {
	snap, err := s.source.GetSnapshot(ctx, vehicleID)
	if err != nil {
		return Diagnosis{}, err
	}
	report, err := s.classifier.Classify(snap)
	if err != nil {
		return Diagnosis{}, err
	}
	diagnosis, err := s.triage.Triage(ctx, vehicleID, report.Anomalies)
	if err != nil {
		return Diagnosis{}, err
	}
	for _, a := range diagnosis.Anomalies {
		metrics.IncAnomaly(string(a.Severity))
	}
	if len(diagnosis.Anomalies) > 0 && s.publisher != nil {
		issues := make([]string, 0, len(diagnosis.Anomalies))
		for _, a := range diagnosis.Anomalies {
			issues = append(issues, a.Issue)
		}
		err := s.publisher.Publish(ctx, events.AnomalyDetected{
			VehicleID:  vehicleID,
			Priority:   string(diagnosis.Priority),
			Issues:     issues,
			OccurredAt: diagnosis.TriagedAt,
		})
		if err != nil {
			s.logger.Printf("diagnostics: publish anomaly detected: %v", err)
		}
	}
	return diagnosis, nil
}
