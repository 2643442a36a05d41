package workflow

import (
	"errors"
	"fmt"
	"time"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
)

// Stage is a case workflow stage.
type Stage string

const (
	StageIntake           Stage = "intake"
	StageEmergency        Stage = "emergency"
	StageOutreach         Stage = "outreach"
	StageEngaged          Stage = "engaged"
	StageScheduled        Stage = "scheduled"
	StageFulfilled        Stage = "fulfilled"
	StageFeedbackPending  Stage = "feedback_pending"
	StageClosed           Stage = "closed"
	StageDeclinedFollowup Stage = "declined_followup"
	StageEscalated        Stage = "escalated"
	StageCancelled        Stage = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Stage) Terminal() bool {
	switch s {
	case StageClosed, StageCancelled:
		return true
	default:
		return false
	}
}

// Consent is the owner's decision on proposed service.
type Consent string

const (
	ConsentUnknown  Consent = "unknown"
	ConsentGranted  Consent = "granted"
	ConsentDeclined Consent = "declined"
	ConsentDeferred Consent = "deferred"
)

// Valid returns true for a recognized consent decision.
func (c Consent) Valid() bool {
	switch c {
	case ConsentUnknown, ConsentGranted, ConsentDeclined, ConsentDeferred:
		return true
	default:
		return false
	}
}

var (
	// ErrCaseNotFound is returned when a case id is unknown.
	ErrCaseNotFound = errors.New("workflow: case not found")
	// ErrCaseTerminal is returned for transitions on closed/cancelled cases.
	ErrCaseTerminal = errors.New("workflow: case is terminal")
	// ErrConsentRequired guards the booking invariant.
	ErrConsentRequired = errors.New("workflow: booking requires granted consent")
)

// InvalidTransitionError reports a workflow event that is not valid from the
// case's current stage.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("workflow: invalid transition %s -> %s", e.From, e.To)
}

// Case tracks one vehicle's journey from anomaly detection to completion.
// One active case exists per vehicle; mutation is serialized by the
// application layer.
type Case struct {
	CaseID     string               `json:"case_id"`
	VehicleID  string               `json:"vehicle_id"`
	Stage      Stage                `json:"stage"`
	Priority   diagnostics.Priority `json:"priority"`
	Consent    Consent              `json:"consent"`
	Emergency  bool                 `json:"emergency"`
	BookingRef string               `json:"booking_ref,omitempty"`
	PartsRef   string               `json:"parts_ref,omitempty"`
	Retries    int                  `json:"retries"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// NewCase opens a case at intake.
func NewCase(caseID, vehicleID string, priority diagnostics.Priority, now time.Time) (*Case, error) {
	if caseID == "" {
		return nil, errors.New("workflow: empty case id")
	}
	if vehicleID == "" {
		return nil, errors.New("workflow: empty vehicle id")
	}
	return &Case{
		CaseID:    caseID,
		VehicleID: vehicleID,
		Stage:     StageIntake,
		Priority:  priority,
		Consent:   ConsentUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// transitions lists the legal stage graph, cancellation aside.
var transitions = map[Stage][]Stage{
	StageIntake:           {StageEmergency, StageOutreach},
	StageEmergency:        {StageScheduled, StageEscalated},
	StageOutreach:         {StageEngaged, StageEscalated},
	StageEngaged:          {StageScheduled, StageDeclinedFollowup, StageOutreach, StageEscalated},
	StageScheduled:        {StageFulfilled, StageEscalated},
	StageFulfilled:        {StageFeedbackPending},
	StageFeedbackPending:  {StageClosed},
	StageDeclinedFollowup: {StageOutreach, StageClosed},
	StageEscalated:        {StageClosed},
}

// emergencyStages are the stages reachable on the emergency path. A case
// that entered emergency never returns to a standard outreach stage.
var emergencyStages = map[Stage]struct{}{
	StageEmergency:       {},
	StageScheduled:       {},
	StageFulfilled:       {},
	StageFeedbackPending: {},
	StageEscalated:       {},
	StageClosed:          {},
	StageCancelled:       {},
}

func (c *Case) transitionTo(stage Stage, now time.Time) error {
	if c.Stage.Terminal() {
		return ErrCaseTerminal
	}
	if stage == StageCancelled {
		c.Stage = StageCancelled
		c.UpdatedAt = now
		return nil
	}
	if c.Emergency {
		if _, ok := emergencyStages[stage]; !ok {
			return &InvalidTransitionError{From: c.Stage, To: stage}
		}
	}
	for _, next := range transitions[c.Stage] {
		if next == stage {
			c.Stage = stage
			c.UpdatedAt = now
			return nil
		}
	}
	return &InvalidTransitionError{From: c.Stage, To: stage}
}

// Route moves the case out of intake: critical safety-relevant diagnoses go
// straight to emergency, everything else to outreach.
func (c *Case) Route(emergency bool, now time.Time) error {
	if c.Stage != StageIntake {
		return &InvalidTransitionError{From: c.Stage, To: StageOutreach}
	}
	if emergency {
		c.Emergency = true
		return c.transitionTo(StageEmergency, now)
	}
	return c.transitionTo(StageOutreach, now)
}

// MarkContacted records a successful contact, no consent decision yet.
func (c *Case) MarkContacted(now time.Time) error {
	return c.transitionTo(StageEngaged, now)
}

// RecordConsent applies the owner's decision. Granted keeps the case in
// place for booking; declined parks it for a later reminder; deferred
// returns it to outreach after a cooldown.
func (c *Case) RecordConsent(decision Consent, now time.Time) error {
	if !decision.Valid() || decision == ConsentUnknown {
		return fmt.Errorf("workflow: invalid consent decision %q", decision)
	}
	if c.Stage != StageEngaged && !(c.Emergency && c.Stage == StageEmergency) {
		return &InvalidTransitionError{From: c.Stage, To: StageScheduled}
	}
	c.Consent = decision
	switch {
	case decision == ConsentGranted:
		c.UpdatedAt = now
		return nil
	case c.Emergency:
		// Emergency cases cannot loop through reminders; anything short of
		// granted consent goes to human review.
		return c.transitionTo(StageEscalated, now)
	case decision == ConsentDeclined:
		return c.transitionTo(StageDeclinedFollowup, now)
	default: // deferred
		return c.transitionTo(StageOutreach, now)
	}
}

// AttachBooking records a confirmed booking. Booking requires granted
// consent; this invariant holds on the emergency path as well.
func (c *Case) AttachBooking(bookingRef string, now time.Time) error {
	if bookingRef == "" {
		return errors.New("workflow: empty booking reference")
	}
	if c.Consent != ConsentGranted {
		return ErrConsentRequired
	}
	if err := c.transitionTo(StageScheduled, now); err != nil {
		return err
	}
	c.BookingRef = bookingRef
	return nil
}

// AttachPartsReservation records a parts reservation for the booking.
func (c *Case) AttachPartsReservation(partsRef string) {
	c.PartsRef = partsRef
}

// CompleteService records the service completion signal.
func (c *Case) CompleteService(now time.Time) error {
	if err := c.transitionTo(StageFulfilled, now); err != nil {
		return err
	}
	return c.transitionTo(StageFeedbackPending, now)
}

// Close completes the case after feedback collection or timeout, or closes
// a declined/escalated case after review.
func (c *Case) Close(now time.Time) error {
	return c.transitionTo(StageClosed, now)
}

// Remind reopens outreach for a declined case.
func (c *Case) Remind(now time.Time) error {
	if c.Stage != StageDeclinedFollowup {
		return &InvalidTransitionError{From: c.Stage, To: StageOutreach}
	}
	c.Consent = ConsentUnknown
	return c.transitionTo(StageOutreach, now)
}

// Escalate parks the case for human review after exhausted retries or a
// safety-relevant processing failure. Graceful-degradation exit, not a crash.
func (c *Case) Escalate(now time.Time) error {
	return c.transitionTo(StageEscalated, now)
}

// Cancel terminates the case from any non-terminal stage. Held bookings and
// parts reservations are released by the application layer.
func (c *Case) Cancel(now time.Time) error {
	if err := c.transitionTo(StageCancelled, now); err != nil {
		return err
	}
	c.BookingRef = ""
	c.PartsRef = ""
	return nil
}

// Clone returns a copy safe for concurrent readers.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}
