package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"finlink/internal/domain/sync"
)

// LoginSyncJob implements the Job interface for the login trigger: one
// user's connected accounts over the default window, detached from the
// login request itself.
type LoginSyncJob struct {
	userID int64
	orch   *sync.Orchestrator
}

// NewLoginSyncJob creates a login sync job for a user
func NewLoginSyncJob(userID int64, orch *sync.Orchestrator) *LoginSyncJob {
	return &LoginSyncJob{userID: userID, orch: orch}
}

// Execute runs the login sync
func (j *LoginSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting login sync for user %d", j.userID)

	summary, err := j.orch.SyncUser(ctx, j.userID, 0)
	if err != nil {
		log.Printf("Login sync failed for user %d: %v", j.userID, err)
		return fmt.Errorf("login sync failed: %w", err)
	}

	// Transient per-account failures are already isolated in the summary;
	// report them so the job shows up in the error metric and retries are
	// visible, but reconnect-required outcomes are terminal and not errors.
	if summary.AccountsFailedTransiently > 0 {
		log.Printf("Login sync for user %d: %d of %d accounts failed transiently",
			j.userID, summary.AccountsFailedTransiently, summary.AccountsProcessed)
		return fmt.Errorf("login sync completed with %d transient failures", summary.AccountsFailedTransiently)
	}

	log.Printf("Login sync for user %d completed: processed=%d updated=%d reconnect=%d newTx=%d",
		j.userID, summary.AccountsProcessed, summary.AccountsUpdated,
		summary.AccountsReconnectRequired, summary.TotalNewTransactions)

	return nil
}

// UserID returns the user ID associated with this job
func (j *LoginSyncJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

// Description returns a human-readable description of the job
func (j *LoginSyncJob) Description() string {
	return fmt.Sprintf("Login sync for user %d", j.userID)
}

// SweepJob implements the Job interface for the periodic trigger: every
// user's connected accounts. The orchestrator keeps the sweep
// single-flight; an overlapping scheduled run is a benign no-op here.
type SweepJob struct {
	orch *sync.Orchestrator
}

// NewSweepJob creates the periodic all-users sweep job
func NewSweepJob(orch *sync.Orchestrator) *SweepJob {
	return &SweepJob{orch: orch}
}

// Execute runs the sweep
func (j *SweepJob) Execute(ctx context.Context) error {
	summary, err := j.orch.SyncAllUsers(ctx)
	if errors.Is(err, sync.ErrSweepInProgress) {
		log.Println("Sweep skipped: previous sweep still running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	log.Printf("Sweep job completed: processed=%d updated=%d reconnect=%d transient=%d newTx=%d",
		summary.AccountsProcessed, summary.AccountsUpdated,
		summary.AccountsReconnectRequired, summary.AccountsFailedTransiently,
		summary.TotalNewTransactions)

	return nil
}

// UserID returns a wildcard: the sweep spans all users
func (j *SweepJob) UserID() string {
	return "*"
}

// Description returns a human-readable description of the job
func (j *SweepJob) Description() string {
	return "Periodic sync sweep"
}
