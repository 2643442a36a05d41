package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	monitor "fleetcare-cloud/internal/monitor/domain"
)

// ActivityStore is a Postgres implementation of the activity log.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore constructs a store.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append inserts one activity entry.
func (s *ActivityStore) Append(ctx context.Context, entry monitor.ActivityLogEntry) error {
	if s == nil || s.db == nil {
		return errors.New("activity store: nil db")
	}
	if entry.EntryID == "" || entry.WorkerID == "" {
		return errors.New("activity store: missing fields")
	}
	alerts, err := json.Marshal(entry.Alerts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO worker_activity_log (
	entry_id, worker_id, action_kind, target_resource, details,
	risk_score, alerts, occurred_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`,
		entry.EntryID,
		entry.WorkerID,
		string(entry.Kind),
		entry.Target,
		entry.Details,
		entry.RiskScore,
		alerts,
		entry.OccurredAt,
	)
	return err
}

const activityColumns = `
	entry_id, worker_id, action_kind, target_resource, details,
	risk_score, alerts, occurred_at`

// ReadSince returns the worker's entries at or after since, oldest first.
func (s *ActivityStore) ReadSince(ctx context.Context, workerID string, since time.Time) ([]monitor.ActivityLogEntry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("activity store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT`+activityColumns+`
FROM worker_activity_log
WHERE worker_id = $1 AND occurred_at >= $2
ORDER BY occurred_at, entry_id`, workerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// All returns every entry, oldest first.
func (s *ActivityStore) All(ctx context.Context) ([]monitor.ActivityLogEntry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("activity store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT`+activityColumns+`
FROM worker_activity_log
ORDER BY occurred_at, entry_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]monitor.ActivityLogEntry, error) {
	var out []monitor.ActivityLogEntry
	for rows.Next() {
		var entry monitor.ActivityLogEntry
		var kind string
		var alerts []byte
		err := rows.Scan(
			&entry.EntryID,
			&entry.WorkerID,
			&kind,
			&entry.Target,
			&entry.Details,
			&entry.RiskScore,
			&alerts,
			&entry.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		entry.Kind = monitor.ActionKind(kind)
		if len(alerts) > 0 {
			if err := json.Unmarshal(alerts, &entry.Alerts); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
