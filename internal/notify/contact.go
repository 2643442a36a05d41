package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	diagapp "fleetcare-cloud/internal/diagnostics/application"
	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	"fleetcare-cloud/internal/observability/metrics"
)

// Receipt records one delivered owner notification.
type Receipt struct {
	VehicleID string    `json:"vehicle_id"`
	Priority  string    `json:"priority"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Contact delivers owner notifications over a channel and keeps delivery
// receipts for the case timeline.
type Contact struct {
	channel Channel
	clock   Clock

	mu       sync.Mutex
	receipts []Receipt
}

// ContactOption configures the contact service.
type ContactOption func(*Contact)

// WithClock assigns a clock.
func WithClock(clock Clock) ContactOption {
	return func(c *Contact) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContact constructs the contact service.
func NewContact(channel Channel, opts ...ContactOption) (*Contact, error) {
	if channel == nil {
		return nil, errors.New("notify: nil channel")
	}
	contact := &Contact{channel: channel, clock: systemClock{}}
	for _, opt := range opts {
		opt(contact)
	}
	return contact, nil
}

// NotifyOwner renders the diagnosis into an owner message and delivers it.
func (c *Contact) NotifyOwner(ctx context.Context, d diagapp.Diagnosis) (Receipt, error) {
	message := RenderMessage(d)
	receipt := Receipt{
		VehicleID: d.VehicleID,
		Priority:  string(d.Priority),
		Message:   message,
		SentAt:    c.clock.Now(),
	}
	err := c.channel.Send(ctx, Payload{
		VehicleID: receipt.VehicleID,
		Priority:  receipt.Priority,
		Message:   receipt.Message,
		SentAt:    receipt.SentAt.Format(time.RFC3339),
	})
	if err != nil {
		metrics.IncNotifyDelivery(metrics.ResultError)
		return Receipt{}, err
	}
	metrics.IncNotifyDelivery(metrics.ResultSuccess)
	c.mu.Lock()
	c.receipts = append(c.receipts, receipt)
	c.mu.Unlock()
	return receipt, nil
}

// Receipts returns delivered receipts for a vehicle, oldest first.
func (c *Contact) Receipts(vehicleID string) []Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Receipt
	for _, r := range c.receipts {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out
}

// RenderMessage builds the owner-facing message for a diagnosis. Emergency
// wording tells the owner to stop driving; lower tiers state the issue and
// the recommended window.
func RenderMessage(d diagapp.Diagnosis) string {
	issues := issueSummary(d.Anomalies)
	switch d.Priority {
	case diagnostics.PriorityCritical:
		return fmt.Sprintf(
			"URGENT SAFETY NOTICE for vehicle %s: %s. Please stop driving and pull over safely. We can arrange immediate service at the nearest center.",
			d.VehicleID, issues)
	case diagnostics.PriorityHigh:
		return fmt.Sprintf(
			"Important: vehicle %s needs service within %s. Detected: %s. Reply to book an appointment.",
			d.VehicleID, d.FailureWindow, issues)
	case diagnostics.PriorityMedium:
		return fmt.Sprintf(
			"Vehicle %s shows early signs of wear: %s. We recommend service within %s.",
			d.VehicleID, issues, d.FailureWindow)
	default:
		return fmt.Sprintf(
			"Vehicle %s health check complete. %s. No urgent action needed; we will review at your %s.",
			d.VehicleID, issues, d.FailureWindow)
	}
}

func issueSummary(anomalies []diagnostics.Anomaly) string {
	if len(anomalies) == 0 {
		return "no anomalies detected"
	}
	parts := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		parts = append(parts, strings.ReplaceAll(a.Issue, "_", " "))
	}
	return strings.Join(parts, ", ")
}
