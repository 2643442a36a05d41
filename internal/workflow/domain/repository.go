package workflow

import "context"

// Repository persists cases. At most one non-terminal case exists per
// vehicle; Save enforces upsert-by-id semantics.
type Repository interface {
	Save(ctx context.Context, c *Case) error
	Get(ctx context.Context, caseID string) (*Case, error)
	// ActiveByVehicle returns the vehicle's open case, ErrCaseNotFound when
	// every case for the vehicle is terminal.
	ActiveByVehicle(ctx context.Context, vehicleID string) (*Case, error)
	List(ctx context.Context) ([]*Case, error)
}
