package postgres

import (
	"context"
	"database/sql"
	"errors"

	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	workflow "fleetcare-cloud/internal/workflow/domain"
)

// CaseRepository is a Postgres repository for maintenance cases.
type CaseRepository struct {
	db *sql.DB
}

// NewCaseRepository constructs a repository.
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Save upserts a case.
func (r *CaseRepository) Save(ctx context.Context, c *workflow.Case) error {
	if r == nil || r.db == nil {
		return errors.New("case repo: nil db")
	}
	if c == nil || c.CaseID == "" {
		return errors.New("case repo: invalid case")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO maintenance_cases (
	case_id, vehicle_id, stage, priority, consent, emergency,
	booking_ref, parts_ref, retries, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11
)
ON CONFLICT (case_id)
DO UPDATE SET
	stage = EXCLUDED.stage,
	priority = EXCLUDED.priority,
	consent = EXCLUDED.consent,
	emergency = EXCLUDED.emergency,
	booking_ref = EXCLUDED.booking_ref,
	parts_ref = EXCLUDED.parts_ref,
	retries = EXCLUDED.retries,
	updated_at = EXCLUDED.updated_at`,
		c.CaseID,
		c.VehicleID,
		string(c.Stage),
		string(c.Priority),
		string(c.Consent),
		c.Emergency,
		c.BookingRef,
		c.PartsRef,
		c.Retries,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

const caseColumns = `
	case_id, vehicle_id, stage, priority, consent, emergency,
	booking_ref, parts_ref, retries, created_at, updated_at`

// Get fetches a case by id.
func (r *CaseRepository) Get(ctx context.Context, caseID string) (*workflow.Case, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("case repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+caseColumns+`
FROM maintenance_cases
WHERE case_id = $1`, caseID)
	return scanCase(row)
}

// ActiveByVehicle returns the vehicle's open case.
func (r *CaseRepository) ActiveByVehicle(ctx context.Context, vehicleID string) (*workflow.Case, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("case repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT`+caseColumns+`
FROM maintenance_cases
WHERE vehicle_id = $1 AND stage NOT IN ('closed', 'cancelled')
ORDER BY created_at DESC
LIMIT 1`, vehicleID)
	return scanCase(row)
}

// List returns all cases ordered by creation time.
func (r *CaseRepository) List(ctx context.Context) ([]*workflow.Case, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("case repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+caseColumns+`
FROM maintenance_cases
ORDER BY created_at, case_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*workflow.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*workflow.Case, error) {
	var c workflow.Case
	var stage, priority, consent string
	err := row.Scan(
		&c.CaseID,
		&c.VehicleID,
		&stage,
		&priority,
		&consent,
		&c.Emergency,
		&c.BookingRef,
		&c.PartsRef,
		&c.Retries,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Stage = workflow.Stage(stage)
	c.Priority = diagnostics.Priority(priority)
	c.Consent = workflow.Consent(consent)
	return &c, nil
}
