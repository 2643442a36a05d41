package events

import "time"

// SnapshotReceived is raised after a telemetry snapshot is ingested.
type SnapshotReceived struct {
	VehicleID  string    `json:"vehicle_id"`
	CapturedAt time.Time `json:"captured_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
