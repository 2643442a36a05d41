package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetcare-cloud/internal/telemetry/infrastructure/jsonfile"
)

type capturingPublisher struct {
	events []any
}

func (p *capturingPublisher) Publish(ctx context.Context, event any) error {
	_ = ctx
	p.events = append(p.events, event)
	return nil
}

func TestIngestHandler_AcceptsSnapshot(t *testing.T) {
	source := jsonfile.NewSourceFromSnapshots(nil)
	pub := &capturingPublisher{}
	handler, err := NewHandler(source, pub, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := strings.NewReader(`{
		"vehicle_id": "VH010",
		"engine": {"temperature_celsius": 95.5}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	snap, err := source.GetSnapshot(context.Background(), "VH010")
	if err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	if snap.Engine == nil || snap.Engine.TemperatureCelsius == nil || *snap.Engine.TemperatureCelsius != 95.5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.CapturedAt.IsZero() {
		t.Fatal("expected captured_at to be stamped")
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.events))
	}
}

func TestIngestHandler_RejectsInvalid(t *testing.T) {
	source := jsonfile.NewSourceFromSnapshots(nil)
	handler, err := NewHandler(source, nil, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader("{not json")))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/ingest/telemetry", strings.NewReader(`{"engine":{}}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing vehicle_id, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ingest/telemetry", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}
