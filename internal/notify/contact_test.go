package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	diagapp "fleetcare-cloud/internal/diagnostics/application"
	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	workflow "fleetcare-cloud/internal/workflow/domain"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func TestWebhookChannel_PostsPayload(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	err = channel.Send(context.Background(), Payload{VehicleID: "VH006", Priority: "high", Message: "m"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.VehicleID != "VH006" || got.Priority != "high" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestWebhookChannel_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	channel, err := NewWebhookChannel(server.URL)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	if err := channel.Send(context.Background(), Payload{VehicleID: "VH006"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestContact_NotifyOwnerKeepsReceipts(t *testing.T) {
	now := time.Date(2026, time.March, 12, 10, 0, 0, 0, time.UTC)
	contact, err := NewContact(NopChannel{}, WithClock(stubClock{now: now}))
	if err != nil {
		t.Fatalf("new contact: %v", err)
	}

	receipt, err := contact.NotifyOwner(context.Background(), diagapp.Diagnosis{
		VehicleID:     "VH006",
		Priority:      diagnostics.PriorityHigh,
		FailureWindow: "1-3 days",
		Anomalies: []diagnostics.Anomaly{
			{Component: "brakes", Issue: "brake_pad_wear_high"},
		},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !receipt.SentAt.Equal(now) {
		t.Fatalf("unexpected sent time %v", receipt.SentAt)
	}
	receipts := contact.Receipts("VH006")
	if len(receipts) != 1 || receipts[0].Priority != "high" {
		t.Fatalf("unexpected receipts %+v", receipts)
	}
}

func TestRenderMessage_PerPriority(t *testing.T) {
	base := diagapp.Diagnosis{
		VehicleID:     "VH003",
		FailureWindow: "1-3 days",
		Anomalies: []diagnostics.Anomaly{
			{Component: "engine", Issue: "engine_overheating"},
		},
	}

	critical := base
	critical.Priority = diagnostics.PriorityCritical
	critical.FailureWindow = "immediate - stop driving"
	msg := RenderMessage(critical)
	if !strings.Contains(msg, "stop driving") || !strings.Contains(msg, "engine overheating") {
		t.Fatalf("critical message missing safety wording: %q", msg)
	}

	high := base
	high.Priority = diagnostics.PriorityHigh
	if msg := RenderMessage(high); !strings.Contains(msg, "within 1-3 days") {
		t.Fatalf("high message missing window: %q", msg)
	}

	low := base
	low.Priority = diagnostics.PriorityLow
	low.Anomalies = nil
	low.FailureWindow = "next scheduled service"
	if msg := RenderMessage(low); !strings.Contains(msg, "no anomalies detected") {
		t.Fatalf("low message missing summary: %q", msg)
	}
}

func TestScriptedConsent(t *testing.T) {
	provider := NewScriptedConsent(workflow.ConsentGranted)
	provider.Set("VH009", workflow.ConsentDeclined)

	decision, err := provider.ConsentDecision(context.Background(), "VH009")
	if err != nil || decision != workflow.ConsentDeclined {
		t.Fatalf("scripted decision: %v %v", decision, err)
	}
	decision, err = provider.ConsentDecision(context.Background(), "VH001")
	if err != nil || decision != workflow.ConsentGranted {
		t.Fatalf("fallback decision: %v %v", decision, err)
	}
}
