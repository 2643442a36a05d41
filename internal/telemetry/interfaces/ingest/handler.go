package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"fleetcare-cloud/internal/telemetry/application/events"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

// SnapshotSink receives ingested snapshots.
type SnapshotSink interface {
	Put(snap telemetry.Snapshot)
}

// Publisher emits integration events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Handler ingests vehicle telemetry snapshots pushed by the edge gateway.
type Handler struct {
	sink      SnapshotSink
	publisher Publisher
	logger    *log.Logger
}

// NewHandler constructs an ingest handler.
func NewHandler(sink SnapshotSink, publisher Publisher, logger *log.Logger) (*Handler, error) {
	if sink == nil {
		return nil, errors.New("telemetry ingest: nil sink")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{sink: sink, publisher: publisher, logger: logger}, nil
}

// ServeHTTP ingests one snapshot per request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("telemetry ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var snap telemetry.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		h.logger.Printf("telemetry ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := snap.Validate(); err != nil {
		h.logger.Printf("telemetry ingest: invalid payload: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}

	h.sink.Put(snap)
	if h.publisher != nil {
		err := h.publisher.Publish(r.Context(), events.SnapshotReceived{
			VehicleID:  snap.VehicleID,
			CapturedAt: snap.CapturedAt,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			h.logger.Printf("telemetry ingest: publish error: %v", err)
		}
	}

	resp := map[string]any{"vehicle_id": snap.VehicleID, "accepted": true}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
