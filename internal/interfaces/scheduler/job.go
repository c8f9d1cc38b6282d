package scheduler

import "context"

// Job is a unit of detached background work executed by the worker pool.
// Both trigger kinds run through here: per-user login syncs and the
// periodic all-users sweep.
type Job interface {
	// Execute runs the job. The context carries the pool's timeout and is
	// cancelled on shutdown.
	Execute(ctx context.Context) error

	// UserID identifies whose data the job touches, for logging. Jobs with
	// no single user (the sweep) return a wildcard.
	UserID() string

	// Description is a human-readable job label for logs and traces.
	Description() string
}
