package sync

import (
	"context"
	"fmt"
	"log"
	gosync "sync"
	"sync/atomic"

	"finlink/internal/domain/ledger"
)

const (
	// DefaultWindowDays is the lookback used by the login and periodic triggers.
	DefaultWindowDays = 7
	// MaxWindowDays bounds caller-supplied on-demand windows.
	MaxWindowDays = 90
	// DefaultConcurrency bounds the per-run account fan-out. Kept in single
	// digits to stay under provider rate limits; unbounded parallelism is
	// not an option here.
	DefaultConcurrency = 4
)

// Summary aggregates per-account outcomes for one orchestrator run.
// Counters only, so merging is order-independent.
type Summary struct {
	AccountsProcessed         int       `json:"accountsProcessed"`
	AccountsUpdated           int       `json:"accountsUpdated"`
	AccountsUnchanged         int       `json:"accountsUnchanged"`
	AccountsReconnectRequired int       `json:"accountsReconnectRequired"`
	AccountsFailedTransiently int       `json:"accountsFailedTransiently"`
	TotalNewTransactions      int       `json:"totalNewTransactions"`
	Outcomes                  []Outcome `json:"outcomes"`
}

func (s *Summary) add(out Outcome) {
	s.AccountsProcessed++
	s.TotalNewTransactions += out.NewTransactions
	switch out.Status {
	case StatusUpdated:
		s.AccountsUpdated++
	case StatusReconnectRequired:
		s.AccountsReconnectRequired++
	case StatusTransientError:
		s.AccountsFailedTransiently++
	default:
		s.AccountsUnchanged++
	}
	s.Outcomes = append(s.Outcomes, out)
}

// merge folds another summary in (used by the all-users sweep).
func (s *Summary) merge(other *Summary) {
	s.AccountsProcessed += other.AccountsProcessed
	s.AccountsUpdated += other.AccountsUpdated
	s.AccountsUnchanged += other.AccountsUnchanged
	s.AccountsReconnectRequired += other.AccountsReconnectRequired
	s.AccountsFailedTransiently += other.AccountsFailedTransiently
	s.TotalNewTransactions += other.TotalNewTransactions
	s.Outcomes = append(s.Outcomes, other.Outcomes...)
}

// Config holds orchestrator tuning.
type Config struct {
	Concurrency int
	WindowDays  int
}

// Orchestrator runs the account sync unit over a scope of accounts with
// bounded fan-out, isolating per-account failures. It owns the three
// trigger entry points: on-demand, login (via the job layer) and the
// periodic all-users sweep.
type Orchestrator struct {
	unit        *AccountSyncUnit
	accounts    ledger.AccountRepository
	users       ledger.UserDirectory
	concurrency int
	windowDays  int

	// sweepActive makes the periodic sweep single-flight per process.
	sweepActive atomic.Bool
}

// NewOrchestrator creates a new sync orchestrator.
func NewOrchestrator(unit *AccountSyncUnit, accounts ledger.AccountRepository, users ledger.UserDirectory, cfg Config) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Orchestrator{
		unit:        unit,
		accounts:    accounts,
		users:       users,
		concurrency: concurrency,
		windowDays:  windowDays,
	}
}

// Run syncs every account in the scope over the window. All accounts are
// attempted regardless of earlier failures; there is no in-run retry —
// the next trigger is the retry, safe because ingestion is idempotent.
func (o *Orchestrator) Run(ctx context.Context, accounts []*ledger.Account, w Window) *Summary {
	summary := &Summary{}
	if len(accounts) == 0 {
		return summary
	}

	var (
		mu  gosync.Mutex
		wg  gosync.WaitGroup
		sem = make(chan struct{}, o.concurrency)
	)

	for _, acct := range accounts {
		wg.Add(1)
		go func(acct *ledger.Account) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			out := o.unit.Sync(ctx, acct, w)

			mu.Lock()
			summary.add(out)
			mu.Unlock()
		}(acct)
	}

	wg.Wait()
	return summary
}

// SyncUser is the on-demand trigger: all of the user's connected accounts
// over a caller-supplied window (clamped to 1..MaxWindowDays; 0 means the
// default). A ledger store failure aborts the whole run — that is a
// precondition failure, not a per-account concern.
func (o *Orchestrator) SyncUser(ctx context.Context, userID int64, windowDays int) (*Summary, error) {
	if windowDays <= 0 {
		windowDays = o.windowDays
	}
	if windowDays > MaxWindowDays {
		windowDays = MaxWindowDays
	}

	accounts, err := o.accounts.ListConnectedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected accounts for user %d: %w", userID, err)
	}

	summary := o.Run(ctx, accounts, WindowEndingToday(windowDays))

	log.Printf("User %d: sync complete - processed=%d updated=%d reconnect=%d transient=%d newTx=%d",
		userID, summary.AccountsProcessed, summary.AccountsUpdated,
		summary.AccountsReconnectRequired, summary.AccountsFailedTransiently,
		summary.TotalNewTransactions)

	return summary, nil
}

// SyncAllUsers is the periodic trigger: every user's connected accounts
// over the default window. Single-flight per process; an overlapping call
// returns ErrSweepInProgress instead of doubling external call volume.
func (o *Orchestrator) SyncAllUsers(ctx context.Context) (*Summary, error) {
	if !o.sweepActive.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer o.sweepActive.Store(false)

	userIDs, err := o.users.ListUserIDsWithConnectedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for sweep: %w", err)
	}

	log.Printf("Sweep: syncing %d users", len(userIDs))

	total := &Summary{}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		summary, err := o.SyncUser(ctx, userID, o.windowDays)
		if err != nil {
			// One user's listing failure must not starve the rest.
			log.Printf("Sweep: user %d failed: %v", userID, err)
			continue
		}
		total.merge(summary)
	}

	log.Printf("Sweep complete: processed=%d updated=%d reconnect=%d transient=%d newTx=%d",
		total.AccountsProcessed, total.AccountsUpdated,
		total.AccountsReconnectRequired, total.AccountsFailedTransiently,
		total.TotalNewTransactions)

	return total, nil
}
