package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fleetcare-cloud/internal/eventing"
	"fleetcare-cloud/internal/eventing/events"
	monitor "fleetcare-cloud/internal/monitor/domain"
	"fleetcare-cloud/internal/observability/metrics"
)

// Decision is the advisory answer to a behavior query.
type Decision struct {
	WorkerID       string `json:"worker_id"`
	Action         string `json:"action"`
	Allowed        bool   `json:"is_allowed"`
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Publisher emits integration events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Service records worker activities against the baseline registry and
// answers advisory behavior queries. Recording never blocks the caller's
// own workflow; the output is a recommendation.
type Service struct {
	registry  *monitor.Registry
	store     monitor.ActivityStore
	clock     Clock
	logger    *log.Logger
	publisher Publisher
	window    time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher assigns an event publisher.
func WithPublisher(pub Publisher) Option {
	return func(s *Service) {
		s.publisher = pub
	}
}

// NewService constructs the monitor service.
func NewService(registry *monitor.Registry, store monitor.ActivityStore, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("monitor: nil registry")
	}
	if store == nil {
		return nil, errors.New("monitor: nil activity store")
	}
	s := &Service{
		registry: registry,
		store:    store,
		clock:    systemClock{},
		logger:   log.Default(),
		window:   time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record scores one worker action and appends it to the activity log.
func (s *Service) Record(ctx context.Context, workerID string, kind monitor.ActionKind, target, details string) (monitor.ActivityLogEntry, error) {
	if workerID == "" {
		return monitor.ActivityLogEntry{}, fmt.Errorf("%w: empty worker id", monitor.ErrInvalidActivity)
	}
	if !kind.Valid() {
		return monitor.ActivityLogEntry{}, fmt.Errorf("%w: unknown action kind %q", monitor.ErrInvalidActivity, kind)
	}
	if target == "" {
		return monitor.ActivityLogEntry{}, fmt.Errorf("%w: empty target", monitor.ErrInvalidActivity)
	}

	now := s.clock.Now()
	baseline, known := s.registry.Lookup(workerID)
	if !known {
		// Configuration gap, not an error: unknown workers run under the
		// explicit unrestricted policy.
		s.logger.Printf("monitor: no baseline for worker %q, applying unrestricted policy", workerID)
	}

	recent, err := s.store.ReadSince(ctx, workerID, now.Add(-s.window))
	if err != nil {
		return monitor.ActivityLogEntry{}, err
	}

	risk, alerts := monitor.Score(baseline, monitor.ScoreInput{
		Kind:        kind,
		Target:      target,
		DataTarget:  s.registry.KnownScope(target),
		RecentCount: len(recent),
	})

	entry := monitor.ActivityLogEntry{
		EntryID:    eventing.NewEventID(),
		WorkerID:   workerID,
		Kind:       kind,
		Target:     target,
		Details:    details,
		RiskScore:  risk,
		Alerts:     alerts,
		OccurredAt: now,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return monitor.ActivityLogEntry{}, err
	}
	alertKind := ""
	if len(alerts) > 0 {
		alertKind = string(alerts[0].Kind)
		s.logger.Printf("monitor: %s risk=%d %s", workerID, risk, alerts[0].Message)
	}
	metrics.ObserveActivity(workerID, risk, alertKind)
	s.publish(ctx, entry)
	return entry, nil
}

// Query answers whether an action fits the worker's normal behavior. The
// answer is advisory; callers decide whether to act on BLOCK.
func (s *Service) Query(ctx context.Context, workerID, action string) (Decision, error) {
	_ = ctx
	if workerID == "" || action == "" {
		return Decision{}, fmt.Errorf("%w: empty worker or action", monitor.ErrInvalidActivity)
	}
	baseline, _ := s.registry.Lookup(workerID)
	allowed := baseline.PermitsTool(action)
	decision := Decision{
		WorkerID: workerID,
		Action:   action,
		Allowed:  allowed,
	}
	if allowed {
		decision.Recommendation = "ALLOW"
		decision.Reason = "Action within normal behavior pattern"
	} else {
		decision.Recommendation = "BLOCK"
		decision.Reason = "Action outside normal scope - requires review"
	}
	return decision, nil
}

func (s *Service) publish(ctx context.Context, entry monitor.ActivityLogEntry) {
	if s.publisher == nil {
		return
	}
	alertKind := ""
	if len(entry.Alerts) > 0 {
		alertKind = string(entry.Alerts[0].Kind)
	}
	err := s.publisher.Publish(ctx, events.ActivityRecorded{
		WorkerID:   entry.WorkerID,
		Action:     entry.Target,
		RiskScore:  entry.RiskScore,
		AlertKind:  alertKind,
		OccurredAt: entry.OccurredAt,
	})
	if err != nil {
		s.logger.Printf("monitor: publish activity recorded: %v", err)
	}
}
