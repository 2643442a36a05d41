package application

import (
	"context"
	"errors"
	"testing"
	"time"

	diagapp "fleetcare-cloud/internal/diagnostics/application"
	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	fleet "fleetcare-cloud/internal/fleet/domain"
	fleetmem "fleetcare-cloud/internal/fleet/infrastructure/memory"
	historymem "fleetcare-cloud/internal/history/infrastructure/memory"
	"fleetcare-cloud/internal/notify"
	scheduling "fleetcare-cloud/internal/scheduling/domain"
	schedmem "fleetcare-cloud/internal/scheduling/infrastructure/memory"
	workflow "fleetcare-cloud/internal/workflow/domain"
	workflowmem "fleetcare-cloud/internal/workflow/infrastructure/memory"
)

var svcNow = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingContact struct {
	sent []diagapp.Diagnosis
	err  error
}

func (r *recordingContact) NotifyOwner(ctx context.Context, d diagapp.Diagnosis) (notify.Receipt, error) {
	if r.err != nil {
		return notify.Receipt{}, r.err
	}
	r.sent = append(r.sent, d)
	return notify.Receipt{VehicleID: d.VehicleID, Priority: string(d.Priority)}, nil
}

type capturedEvents struct {
	events []any
}

func (c *capturedEvents) Publish(ctx context.Context, event any) error {
	c.events = append(c.events, event)
	return nil
}

type fixture struct {
	svc       *CaseService
	contact   *recordingContact
	consents  *notify.ScriptedConsent
	scheduler *schedmem.Scheduler
	history   *historymem.HistoryStore
	repo      *workflowmem.CaseRepository
	published *capturedEvents
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	vehicles := fleetmem.NewVehicleRepository()
	if err := vehicles.Put(fleet.Vehicle{
		VehicleID: "VH006",
		Make:      "Maruti",
		Model:     "Swift",
		Owner:     fleet.Owner{OwnerID: "OWN006", Name: "Kavita Rao", City: "Mumbai"},
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}

	scheduler := schedmem.NewScheduler(schedmem.WithClock(fixedClock{now: svcNow}))
	scheduler.AddCenter(scheduling.Center{
		CenterID:    "SC001",
		Name:        "AutoCare Express",
		City:        "Mumbai",
		Technicians: []string{"TECH003"},
	},
		scheduling.Slot{SlotID: "SL001", StartsAt: svcNow.Add(2 * time.Hour), Available: true},
		scheduling.Slot{SlotID: "SL002", StartsAt: svcNow.Add(26 * time.Hour), Available: true},
	)
	scheduler.SetInventory("SC001", "brake_pad_set", 1)
	for _, tech := range schedmem.DefaultTechnicians() {
		scheduler.AddTechnician(tech)
	}

	f := &fixture{
		contact:   &recordingContact{},
		consents:  notify.NewScriptedConsent(workflow.ConsentGranted),
		scheduler: scheduler,
		history:   historymem.NewHistoryStore(),
		repo:      workflowmem.NewCaseRepository(),
		published: &capturedEvents{},
	}
	base := []Option{
		WithClock(fixedClock{now: svcNow}),
		WithPublisher(f.published),
	}
	svc, err := NewCaseService(
		f.repo, vehicles, f.history, f.contact, f.consents, scheduler, scheduler,
		append(base, opts...)...,
	)
	if err != nil {
		t.Fatalf("new case service: %v", err)
	}
	f.svc = svc
	return f
}

func brakeDiagnosis(priority diagnostics.Priority) diagapp.Diagnosis {
	return diagapp.Diagnosis{
		VehicleID:     "VH006",
		Priority:      priority,
		FailureWindow: "1-3 days",
		Anomalies: []diagnostics.Anomaly{
			{Component: "brakes", Issue: "brake_pad_wear_high", Severity: diagnostics.SeverityWarning},
		},
	}
}

func TestCaseService_StandardFlowToClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	if c.Stage != workflow.StageOutreach {
		t.Fatalf("expected outreach, got %s", c.Stage)
	}
	if len(f.contact.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.contact.sent))
	}

	if c, err = f.svc.Advance(ctx, c.CaseID, EventContact); err != nil {
		t.Fatalf("advance contact: %v", err)
	}
	if c.Stage != workflow.StageEngaged {
		t.Fatalf("expected engaged, got %s", c.Stage)
	}

	// Granted consent books the first available slot and reserves parts.
	if c, err = f.svc.Advance(ctx, c.CaseID, EventConsent); err != nil {
		t.Fatalf("advance consent: %v", err)
	}
	if c.Stage != workflow.StageScheduled {
		t.Fatalf("expected scheduled, got %s", c.Stage)
	}
	if c.BookingRef == "" || c.PartsRef == "" {
		t.Fatalf("expected booking and parts refs, got %q %q", c.BookingRef, c.PartsRef)
	}
	booking, ok := f.scheduler.Booking(c.BookingRef)
	if !ok || booking.SlotID != "SL001" {
		t.Fatalf("expected SL001 booked, got %+v", booking)
	}

	if c, err = f.svc.Advance(ctx, c.CaseID, EventComplete); err != nil {
		t.Fatalf("advance complete: %v", err)
	}
	if c.Stage != workflow.StageFeedbackPending {
		t.Fatalf("expected feedback_pending, got %s", c.Stage)
	}
	records, err := f.history.ListByVehicle(ctx, "VH006")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected 1 maintenance record, got %v %v", records, err)
	}
	if records[0].ServiceCenterID != "SC001" || records[0].TechnicianID != "TECH003" {
		t.Fatalf("record missing assignment: %+v", records[0])
	}

	if c, err = f.svc.Advance(ctx, c.CaseID, EventClose); err != nil {
		t.Fatalf("advance close: %v", err)
	}
	if c.Stage != workflow.StageClosed {
		t.Fatalf("expected closed, got %s", c.Stage)
	}
	if len(f.published.events) == 0 {
		t.Fatal("expected case advanced events")
	}
}

func TestCaseService_EmergencyBooksEarliestSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d := brakeDiagnosis(diagnostics.PriorityCritical)
	d.Anomalies[0].Issue = "brake_pad_worn_critical"
	d.Anomalies[0].Severity = diagnostics.SeverityCritical
	d.FailureWindow = "immediate - stop driving"

	c, err := f.svc.OpenCase(ctx, d)
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	// Emergency path runs contact, consent and booking in one step.
	if c.Stage != workflow.StageScheduled || !c.Emergency {
		t.Fatalf("expected scheduled emergency case, got %s emergency=%v", c.Stage, c.Emergency)
	}
	booking, ok := f.scheduler.Booking(c.BookingRef)
	if !ok || booking.SlotID != "SL001" {
		t.Fatalf("emergency must book the earliest slot, got %+v", booking)
	}
	if booking.ServiceType != "emergency_repair" {
		t.Fatalf("unexpected service type %q", booking.ServiceType)
	}
}

func TestCaseService_DeclinedParksAndReminds(t *testing.T) {
	f := newFixture(t)
	f.consents.Set("VH006", workflow.ConsentDeclined)
	ctx := context.Background()

	c, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	if _, err = f.svc.Advance(ctx, c.CaseID, EventContact); err != nil {
		t.Fatalf("advance contact: %v", err)
	}
	if c, err = f.svc.Advance(ctx, c.CaseID, EventConsent); err != nil {
		t.Fatalf("advance consent: %v", err)
	}
	if c.Stage != workflow.StageDeclinedFollowup {
		t.Fatalf("expected declined_followup, got %s", c.Stage)
	}

	f.consents.Set("VH006", workflow.ConsentGranted)
	if c, err = f.svc.Advance(ctx, c.CaseID, EventRemind); err != nil {
		t.Fatalf("advance remind: %v", err)
	}
	if c.Stage != workflow.StageOutreach || c.Consent != workflow.ConsentUnknown {
		t.Fatalf("reminder must reopen outreach, got %s consent=%s", c.Stage, c.Consent)
	}
}

func TestCaseService_RetriesExhaustedEscalates(t *testing.T) {
	f := newFixture(t, WithMaxRetries(2))
	f.contact.err = errors.New("channel down")
	ctx := context.Background()

	c, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if err == nil {
		t.Fatal("expected notify failure")
	}
	if c.Stage != workflow.StageOutreach || c.Retries != 1 {
		t.Fatalf("first failure must keep outreach, got %s retries=%d", c.Stage, c.Retries)
	}

	// Second failure exhausts the budget and escalates instead of crashing.
	c, err = f.svc.Advance(ctx, c.CaseID, EventContact)
	if err == nil {
		t.Fatal("expected notify failure")
	}
	if c.Stage != workflow.StageEscalated || c.Retries != 2 {
		t.Fatalf("expected escalated after retries, got %s retries=%d", c.Stage, c.Retries)
	}
}

func TestCaseService_SingleActiveCasePerVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	second, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if !errors.Is(err, ErrActiveCase) {
		t.Fatalf("expected ErrActiveCase, got %v", err)
	}
	if second == nil || second.CaseID != first.CaseID {
		t.Fatalf("expected the existing case back, got %+v", second)
	}
}

func TestCaseService_CancelReleasesBookingAndParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityMedium))
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	if _, err = f.svc.Advance(ctx, c.CaseID, EventContact); err != nil {
		t.Fatalf("advance contact: %v", err)
	}
	if c, err = f.svc.Advance(ctx, c.CaseID, EventConsent); err != nil {
		t.Fatalf("advance consent: %v", err)
	}
	bookingRef := c.BookingRef

	if c, err = f.svc.Advance(ctx, c.CaseID, EventCancel); err != nil {
		t.Fatalf("advance cancel: %v", err)
	}
	if c.Stage != workflow.StageCancelled || c.BookingRef != "" || c.PartsRef != "" {
		t.Fatalf("cancel must clear refs, got %+v", c)
	}
	booking, ok := f.scheduler.Booking(bookingRef)
	if !ok || booking.Status != scheduling.BookingCancelled {
		t.Fatalf("booking must be cancelled, got %+v", booking)
	}
	// Released stock is reservable again.
	okStock, err := f.scheduler.CheckAvailability(ctx, []string{"brake_pad_set"}, "SC001")
	if err != nil || !okStock {
		t.Fatalf("parts must return to stock, got %v %v", okStock, err)
	}
}

func TestCaseService_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.OpenCase(ctx, brakeDiagnosis(diagnostics.PriorityLow))
	if err != nil {
		t.Fatalf("open case: %v", err)
	}
	if _, err := f.svc.Advance(ctx, c.CaseID, "teleport"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := f.svc.Advance(ctx, "CASE-missing", EventClose); !errors.Is(err, workflow.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}
