package application

import (
	"context"
	"strings"
	"testing"
	"time"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	fleetmemory "fleetcare-cloud/internal/fleet/infrastructure/memory"
	history "fleetcare-cloud/internal/history/domain"
	historymemory "fleetcare-cloud/internal/history/infrastructure/memory"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

func newTriage(t *testing.T, historyStore history.Store, defects history.DefectStore) *TriageService {
	t.Helper()
	if historyStore == nil {
		historyStore = historymemory.NewHistoryStore()
	}
	if defects == nil {
		defects = historymemory.NewDefectStore()
	}
	service, err := NewTriageService(historyStore, defects, fleetmemory.NewVehicleRepository(),
		WithClock(fixedClock{at: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)}))
	if err != nil {
		t.Fatalf("new triage service: %v", err)
	}
	return service
}

func TestTriage_CriticalSafetyRelevantAnomaly(t *testing.T) {
	service := newTriage(t, nil, nil)

	diagnosis, err := service.Triage(context.Background(), "VH006", []diagnostics.Anomaly{{
		Component: "engine",
		Issue:     "engine_overheating",
		Severity:  diagnostics.SeverityCritical,
		Value:     118,
		Threshold: 110,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityCritical {
		t.Fatalf("expected critical priority, got %s", diagnosis.Priority)
	}
	if !diagnosis.Emergency() {
		t.Fatal("critical diagnosis must flag emergency")
	}
	if diagnosis.Narrative != UndeterminedNarrative {
		t.Fatalf("no defect match must yield undetermined narrative, got %q", diagnosis.Narrative)
	}
}

func TestTriage_CriticalNonSafetyIsHigh(t *testing.T) {
	service := newTriage(t, nil, nil)

	diagnosis, err := service.Triage(context.Background(), "VH004", []diagnostics.Anomaly{{
		Component: "cooling_system",
		Issue:     "coolant_critical_low",
		Severity:  diagnostics.SeverityCritical,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityHigh {
		t.Fatalf("expected high priority, got %s", diagnosis.Priority)
	}
}

func TestTriage_PriorityMonotonicInSeverity(t *testing.T) {
	service := newTriage(t, nil, nil)

	warning, err := service.Triage(context.Background(), "VH003", []diagnostics.Anomaly{{
		Component: "brakes",
		Issue:     "brake_pad_wear_high",
		Severity:  diagnostics.SeverityWarning,
	}})
	if err != nil {
		t.Fatalf("triage warning: %v", err)
	}
	critical, err := service.Triage(context.Background(), "VH003", []diagnostics.Anomaly{{
		Component: "brakes",
		Issue:     "brake_pad_worn_critical",
		Severity:  diagnostics.SeverityCritical,
	}})
	if err != nil {
		t.Fatalf("triage critical: %v", err)
	}
	if critical.Priority.Rank() < warning.Priority.Rank() {
		t.Fatalf("replacing warning with critical lowered priority: %s -> %s",
			warning.Priority, critical.Priority)
	}
	if critical.Priority != diagnostics.PriorityCritical {
		t.Fatalf("critical brake anomaly must be critical priority, got %s", critical.Priority)
	}
}

func TestTriage_DefectEscalationRaisesWarningToHigh(t *testing.T) {
	defects := historymemory.NewDefectStore(history.DefectRecord{
		DefectID:         "CAPA012",
		Component:        "battery",
		DefectType:       "premature degradation",
		Severity:         "high",
		CorrectiveAction: "replace with revised cell pack",
	})
	service := newTriage(t, nil, defects)

	diagnosis, err := service.Triage(context.Background(), "VH004", []diagnostics.Anomaly{{
		Component: "battery",
		Issue:     "battery_degraded",
		Severity:  diagnostics.SeverityWarning,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityHigh {
		t.Fatalf("defect-escalated warning must be high, got %s", diagnosis.Priority)
	}
	if len(diagnosis.RootCauses) != 1 || diagnosis.RootCauses[0].DefectID != "CAPA012" {
		t.Fatalf("expected CAPA012 root cause, got %+v", diagnosis.RootCauses)
	}
	if !strings.Contains(diagnosis.Narrative, "CAPA012") {
		t.Fatalf("narrative must cite the defect record, got %q", diagnosis.Narrative)
	}
}

func TestTriage_WarningWithoutEscalationIsMedium(t *testing.T) {
	defects := historymemory.NewDefectStore(history.DefectRecord{
		DefectID:   "CAPA030",
		Component:  "tyres",
		DefectType: "uneven wear",
		Severity:   "low",
	})
	service := newTriage(t, nil, defects)

	diagnosis, err := service.Triage(context.Background(), "VH005", []diagnostics.Anomaly{{
		Component: "tyres",
		Issue:     "tyre_tread_low",
		Severity:  diagnostics.SeverityWarning,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityMedium {
		t.Fatalf("expected medium priority, got %s", diagnosis.Priority)
	}
}

func TestTriage_ResolvedWarningIsLow(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := historymemory.NewHistoryStore()
	if err := store.Append(context.Background(), history.MaintenanceRecord{
		RecordID:           "MR101",
		VehicleID:          "VH001",
		Date:               now.Add(-5 * 24 * time.Hour),
		ServiceType:        "repair",
		ComponentsServiced: []string{"cooling_system"},
	}); err != nil {
		t.Fatalf("append history: %v", err)
	}
	service := newTriage(t, store, nil)

	diagnosis, err := service.Triage(context.Background(), "VH001", []diagnostics.Anomaly{{
		Component: "cooling_system",
		Issue:     "coolant_low",
		Severity:  diagnostics.SeverityWarning,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityLow {
		t.Fatalf("recently serviced warning must be low, got %s", diagnosis.Priority)
	}
}

func TestTriage_NoAnomaliesIsLow(t *testing.T) {
	service := newTriage(t, nil, nil)
	diagnosis, err := service.Triage(context.Background(), "VH001", nil)
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if diagnosis.Priority != diagnostics.PriorityLow {
		t.Fatalf("expected low priority, got %s", diagnosis.Priority)
	}
	if diagnosis.FailureWindow != "next scheduled service" {
		t.Fatalf("unexpected failure window %q", diagnosis.FailureWindow)
	}
}

func TestTriage_RootCausesRankedByServiceRecency(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := historymemory.NewHistoryStore()
	for _, record := range []history.MaintenanceRecord{
		{RecordID: "MR001", VehicleID: "VH002", Date: now.Add(-90 * 24 * time.Hour), ComponentsServiced: []string{"brakes - pads"}},
		{RecordID: "MR002", VehicleID: "VH002", Date: now.Add(-10 * 24 * time.Hour), ComponentsServiced: []string{"brakes - discs"}},
	} {
		if err := store.Append(context.Background(), record); err != nil {
			t.Fatalf("append history: %v", err)
		}
	}
	defects := historymemory.NewDefectStore(
		history.DefectRecord{DefectID: "CAPA001", Component: "brakes - pads", DefectType: "accelerated wear", Severity: "medium"},
		history.DefectRecord{DefectID: "CAPA002", Component: "brakes - discs", DefectType: "warping", Severity: "medium"},
	)
	service := newTriage(t, store, defects)

	diagnosis, err := service.Triage(context.Background(), "VH002", []diagnostics.Anomaly{{
		Component: "brakes",
		Issue:     "brake_pad_wear_high",
		Severity:  diagnostics.SeverityWarning,
	}})
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if len(diagnosis.RootCauses) != 2 {
		t.Fatalf("expected both defect matches retained, got %d", len(diagnosis.RootCauses))
	}
	if diagnosis.RootCauses[0].DefectID != "CAPA002" {
		t.Fatalf("expected most recently serviced match first, got %s", diagnosis.RootCauses[0].DefectID)
	}
}

func TestTriage_MissingVehicleID(t *testing.T) {
	service := newTriage(t, nil, nil)
	if _, err := service.Triage(context.Background(), "", nil); err == nil {
		t.Fatal("expected validation error")
	}
}
