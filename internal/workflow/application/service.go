package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	diagapp "fleetcare-cloud/internal/diagnostics/application"
	"fleetcare-cloud/internal/eventing"
	"fleetcare-cloud/internal/eventing/events"
	fleet "fleetcare-cloud/internal/fleet/domain"
	history "fleetcare-cloud/internal/history/domain"
	"fleetcare-cloud/internal/notify"
	"fleetcare-cloud/internal/observability/metrics"
	scheduling "fleetcare-cloud/internal/scheduling/domain"
	workflow "fleetcare-cloud/internal/workflow/domain"
)

// Events accepted by Advance.
const (
	EventContact  = "contact"
	EventConsent  = "consent"
	EventBook     = "book"
	EventComplete = "complete"
	EventClose    = "close"
	EventRemind   = "remind"
	EventCancel   = "cancel"
	EventEscalate = "escalate"
)

var (
	// ErrUnknownEvent is returned for unrecognized workflow events.
	ErrUnknownEvent = errors.New("workflow: unknown event")
	// ErrActiveCase is returned when opening a second case for a vehicle.
	ErrActiveCase = errors.New("workflow: vehicle already has an active case")
)

// OwnerContact delivers owner notifications.
type OwnerContact interface {
	NotifyOwner(ctx context.Context, d diagapp.Diagnosis) (notify.Receipt, error)
}

// Publisher emits integration events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// caseState carries per-case working data that does not belong on the
// persisted aggregate.
type caseState struct {
	diagnosis    diagapp.Diagnosis
	centerID     string
	technicianID string
}

// CaseService drives cases through the workflow. All mutation for one
// vehicle is serialized on a per-vehicle lock; concurrent operations on
// distinct vehicles proceed independently.
type CaseService struct {
	repo      workflow.Repository
	vehicles  fleet.Repository
	records   history.Store
	contact   OwnerContact
	consents  notify.ConsentProvider
	scheduler scheduling.Scheduler
	parts     scheduling.PartsService
	publisher Publisher
	logger    *log.Logger

	clock      Clock
	maxRetries int

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	states map[string]*caseState
}

// Option configures the case service.
type Option func(*CaseService)

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(s *CaseService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMaxRetries bounds step retries before escalation.
func WithMaxRetries(n int) Option {
	return func(s *CaseService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithPublisher assigns an event publisher.
func WithPublisher(pub Publisher) Option {
	return func(s *CaseService) {
		s.publisher = pub
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *CaseService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCaseService constructs the service.
func NewCaseService(
	repo workflow.Repository,
	vehicles fleet.Repository,
	records history.Store,
	contact OwnerContact,
	consents notify.ConsentProvider,
	scheduler scheduling.Scheduler,
	parts scheduling.PartsService,
	opts ...Option,
) (*CaseService, error) {
	if repo == nil {
		return nil, errors.New("workflow: nil repository")
	}
	if vehicles == nil {
		return nil, errors.New("workflow: nil vehicle repository")
	}
	if records == nil {
		return nil, errors.New("workflow: nil history store")
	}
	if contact == nil {
		return nil, errors.New("workflow: nil owner contact")
	}
	if consents == nil {
		return nil, errors.New("workflow: nil consent provider")
	}
	if scheduler == nil {
		return nil, errors.New("workflow: nil scheduler")
	}
	if parts == nil {
		return nil, errors.New("workflow: nil parts service")
	}
	s := &CaseService{
		repo:       repo,
		vehicles:   vehicles,
		records:    records,
		contact:    contact,
		consents:   consents,
		scheduler:  scheduler,
		parts:      parts,
		logger:     log.Default(),
		clock:      systemClock{},
		maxRetries: 3,
		locks:      make(map[string]*sync.Mutex),
		states:     make(map[string]*caseState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CaseService) vehicleLock(vehicleID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[vehicleID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[vehicleID] = lock
	}
	return lock
}

func (s *CaseService) state(caseID string) *caseState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[caseID]
	if !ok {
		st = &caseState{}
		s.states[caseID] = st
	}
	return st
}

// OpenCase opens a workflow case from a diagnosis and performs the first
// routing step. Critical diagnoses enter the emergency path: the owner is
// alerted, and on granted consent the earliest slot is booked without
// presenting options.
func (s *CaseService) OpenCase(ctx context.Context, d diagapp.Diagnosis) (*workflow.Case, error) {
	if d.VehicleID == "" {
		return nil, errors.New("workflow: empty vehicle id")
	}
	lock := s.vehicleLock(d.VehicleID)
	lock.Lock()
	defer lock.Unlock()

	if existing, err := s.repo.ActiveByVehicle(ctx, d.VehicleID); err == nil {
		return existing, ErrActiveCase
	} else if !errors.Is(err, workflow.ErrCaseNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	c, err := workflow.NewCase(newCaseID(now), d.VehicleID, d.Priority, now)
	if err != nil {
		return nil, err
	}
	from := c.Stage
	if err := c.Route(d.Emergency(), now); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	st := s.state(c.CaseID)
	st.diagnosis = d
	s.publishAdvance(ctx, c, from)
	s.logger.Printf("workflow: case %s opened for %s stage=%s priority=%s",
		c.CaseID, c.VehicleID, c.Stage, c.Priority)

	// First owner contact happens on open for both paths.
	if _, err := s.contact.NotifyOwner(ctx, d); err != nil {
		return s.stepFailed(ctx, c, fmt.Errorf("notify owner: %w", err))
	}
	if c.Emergency {
		// The emergency path does not wait for a separate contact event.
		return s.collectConsent(ctx, c)
	}
	return c, nil
}

// Advance applies a workflow event to a case. Unknown events and illegal
// transitions return errors without mutating the case.
func (s *CaseService) Advance(ctx context.Context, caseID, event string) (*workflow.Case, error) {
	probe, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	lock := s.vehicleLock(probe.VehicleID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.repo.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(event) {
	case EventContact:
		return s.markContacted(ctx, c)
	case EventConsent:
		return s.collectConsent(ctx, c)
	case EventBook:
		return s.book(ctx, c)
	case EventComplete:
		return s.complete(ctx, c)
	case EventClose:
		return s.applySimple(ctx, c, c.Close)
	case EventRemind:
		return s.remind(ctx, c)
	case EventCancel:
		return s.cancel(ctx, c)
	case EventEscalate:
		return s.applySimple(ctx, c, c.Escalate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// Get returns a case by id.
func (s *CaseService) Get(ctx context.Context, caseID string) (*workflow.Case, error) {
	return s.repo.Get(ctx, caseID)
}

// List returns all cases.
func (s *CaseService) List(ctx context.Context) ([]*workflow.Case, error) {
	return s.repo.List(ctx)
}

func (s *CaseService) markContacted(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	st := s.state(c.CaseID)
	if _, err := s.contact.NotifyOwner(ctx, st.diagnosis); err != nil {
		return s.stepFailed(ctx, c, fmt.Errorf("notify owner: %w", err))
	}
	from := c.Stage
	if err := c.MarkContacted(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	return c, nil
}

func (s *CaseService) collectConsent(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	decision, err := s.consents.ConsentDecision(ctx, c.VehicleID)
	if err != nil {
		return s.stepFailed(ctx, c, fmt.Errorf("consent lookup: %w", err))
	}
	from := c.Stage
	if err := c.RecordConsent(decision, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	if c.Stage != from {
		s.publishAdvance(ctx, c, from)
	}
	s.logger.Printf("workflow: case %s consent=%s stage=%s", c.CaseID, c.Consent, c.Stage)
	if c.Consent == workflow.ConsentGranted {
		return s.book(ctx, c)
	}
	return c, nil
}

func (s *CaseService) book(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	if c.Consent != workflow.ConsentGranted {
		return nil, workflow.ErrConsentRequired
	}
	st := s.state(c.CaseID)

	city := ""
	vehicle, err := s.vehicles.Get(ctx, c.VehicleID)
	if err == nil {
		city = vehicle.Owner.City
	} else if !errors.Is(err, fleet.ErrVehicleNotFound) {
		return s.stepFailed(ctx, c, fmt.Errorf("vehicle lookup: %w", err))
	}

	centers, err := s.scheduler.FindCenters(ctx, city)
	if err != nil || len(centers) == 0 {
		return s.stepFailed(ctx, c, fmt.Errorf("find centers: %w", errOr(err, scheduling.ErrCenterNotFound)))
	}
	center := centers[0]

	var slot scheduling.Slot
	if c.Emergency {
		slot, err = s.scheduler.EarliestSlot(ctx, center.CenterID)
	} else {
		var slots []scheduling.Slot
		slots, err = s.scheduler.ListSlots(ctx, center.CenterID)
		if err == nil {
			if len(slots) == 0 {
				err = scheduling.ErrNoSlots
			} else {
				slot = slots[0]
			}
		}
	}
	if err != nil {
		return s.stepFailed(ctx, c, fmt.Errorf("find slot: %w", err))
	}

	booking, err := s.scheduler.Book(ctx, scheduling.BookingRequest{
		VehicleID:       c.VehicleID,
		SlotID:          slot.SlotID,
		ServiceType:     serviceTypeFor(c),
		Priority:        string(c.Priority),
		PredictedIssues: issuesOf(st.diagnosis),
	})
	if err != nil {
		metrics.IncBooking(metrics.ResultError)
		return s.stepFailed(ctx, c, fmt.Errorf("book slot: %w", err))
	}
	metrics.IncBooking(metrics.ResultSuccess)

	from := c.Stage
	if err := c.AttachBooking(booking.BookingID, s.clock.Now()); err != nil {
		// The booking must not leak when the transition is refused.
		_ = s.scheduler.Cancel(ctx, booking.BookingID)
		return nil, err
	}
	st.centerID = booking.CenterID

	// Parts and technician assignment are best effort; the appointment
	// stands even when stock or staffing lookups fail.
	if partIDs := partsFor(st.diagnosis); len(partIDs) > 0 {
		if ref, err := s.parts.Reserve(ctx, partIDs, booking.BookingID); err == nil {
			c.AttachPartsReservation(ref)
		} else {
			s.logger.Printf("workflow: case %s parts reservation failed: %v", c.CaseID, err)
		}
	}
	if skill := skillFor(st.diagnosis); skill != "" {
		if tech, err := s.parts.FindTechnician(ctx, booking.CenterID, skill); err == nil {
			st.technicianID = tech.TechnicianID
		}
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	s.logger.Printf("workflow: case %s booked %s at %s", c.CaseID, booking.BookingID, booking.CenterID)
	return c, nil
}

func (s *CaseService) complete(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	from := c.Stage
	now := s.clock.Now()
	if err := c.CompleteService(now); err != nil {
		return nil, err
	}
	st := s.state(c.CaseID)
	record := history.MaintenanceRecord{
		RecordID:           "SR" + strings.TrimPrefix(c.CaseID, "CASE"),
		VehicleID:          c.VehicleID,
		Date:               now,
		ServiceType:        serviceTypeFor(c),
		ComponentsServiced: componentsOf(st.diagnosis),
		IssuesFound:        issuesOf(st.diagnosis),
		TechnicianID:       st.technicianID,
		ServiceCenterID:    st.centerID,
	}
	if err := s.records.Append(ctx, record); err != nil {
		s.logger.Printf("workflow: case %s history append failed: %v", c.CaseID, err)
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	return c, nil
}

func (s *CaseService) remind(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	from := c.Stage
	if err := c.Remind(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	st := s.state(c.CaseID)
	if _, err := s.contact.NotifyOwner(ctx, st.diagnosis); err != nil {
		return s.stepFailed(ctx, c, fmt.Errorf("notify owner: %w", err))
	}
	return c, nil
}

func (s *CaseService) cancel(ctx context.Context, c *workflow.Case) (*workflow.Case, error) {
	bookingRef, partsRef := c.BookingRef, c.PartsRef
	from := c.Stage
	if err := c.Cancel(s.clock.Now()); err != nil {
		return nil, err
	}
	if partsRef != "" {
		if err := s.parts.Release(ctx, partsRef); err != nil {
			s.logger.Printf("workflow: case %s parts release failed: %v", c.CaseID, err)
		}
	}
	if bookingRef != "" {
		if err := s.scheduler.Cancel(ctx, bookingRef); err != nil {
			s.logger.Printf("workflow: case %s booking cancel failed: %v", c.CaseID, err)
		}
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	return c, nil
}

func (s *CaseService) applySimple(ctx context.Context, c *workflow.Case, apply func(time.Time) error) (*workflow.Case, error) {
	from := c.Stage
	if err := apply(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.publishAdvance(ctx, c, from)
	return c, nil
}

// stepFailed counts a collaborator failure against the retry budget and
// escalates the case once the budget is exhausted. The case stays in its
// current stage until then so the step can be retried.
func (s *CaseService) stepFailed(ctx context.Context, c *workflow.Case, cause error) (*workflow.Case, error) {
	c.Retries++
	s.logger.Printf("workflow: case %s step failed (attempt %d/%d): %v",
		c.CaseID, c.Retries, s.maxRetries, cause)
	if c.Retries >= s.maxRetries && !c.Stage.Terminal() && c.Stage != workflow.StageEscalated {
		from := c.Stage
		if err := c.Escalate(s.clock.Now()); err == nil {
			s.publishAdvance(ctx, c, from)
		}
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, cause
}

func (s *CaseService) publishAdvance(ctx context.Context, c *workflow.Case, from workflow.Stage) {
	if from == c.Stage {
		return
	}
	metrics.IncCaseTransition(string(c.Stage))
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.CaseAdvanced{
		CaseID:     c.CaseID,
		VehicleID:  c.VehicleID,
		FromStage:  string(from),
		ToStage:    string(c.Stage),
		Emergency:  c.Emergency,
		OccurredAt: c.UpdatedAt,
	})
	if err != nil {
		s.logger.Printf("workflow: publish case advanced: %v", err)
	}
}

func newCaseID(now time.Time) string {
	return "CASE" + now.Format("20060102") + "-" + eventing.NewEventID()[:8]
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

func serviceTypeFor(c *workflow.Case) string {
	switch {
	case c.Emergency:
		return "emergency_repair"
	case c.Priority == "high":
		return "priority_repair"
	default:
		return "preventive_service"
	}
}

func issuesOf(d diagapp.Diagnosis) []string {
	var out []string
	for _, a := range d.Anomalies {
		out = append(out, a.Issue)
	}
	return out
}

func componentsOf(d diagapp.Diagnosis) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range d.Anomalies {
		if _, ok := seen[a.Component]; ok {
			continue
		}
		seen[a.Component] = struct{}{}
		out = append(out, a.Component)
	}
	return out
}

// partsByIssue maps predicted issues to the parts a center should hold.
var partsByIssue = map[string]string{
	"brake_pad_worn_critical":  "brake_pad_set",
	"brake_pad_wear_high":      "brake_pad_set",
	"coolant_critical_low":     "coolant_5l",
	"coolant_low":              "coolant_5l",
	"engine_overheating":       "coolant_5l",
	"oil_pressure_critical":    "oil_filter_kit",
	"battery_failure_imminent": "battery_12v",
	"battery_degraded":         "battery_12v",
	"tyre_tread_critical":      "tyre_set",
	"tyre_tread_low":           "tyre_set",
}

func partsFor(d diagapp.Diagnosis) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range d.Anomalies {
		part, ok := partsByIssue[a.Issue]
		if !ok {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// skillFor derives the technician skill from the highest-severity anomaly.
var skillByComponent = map[string]string{
	"brakes":         "brakes",
	"engine":         "engine",
	"cooling_system": "cooling",
	"battery":        "battery",
	"tyres":          "tyres",
}

func skillFor(d diagapp.Diagnosis) string {
	var top string
	var topRank int
	for _, a := range d.Anomalies {
		if rank := a.Severity.Rank(); top == "" || rank > topRank {
			top = a.Component
			topRank = rank
		}
	}
	return skillByComponent[top]
}
