package sync

import (
	"context"
	"log"

	"finlink/internal/domain/ledger"
)

// Status is the per-account result of one sync attempt.
type Status string

const (
	// StatusUpdated: the provider round-trip completed and the ledger
	// reflects it (possibly with zero changes).
	StatusUpdated Status = "updated"
	// StatusUnchanged: the round-trip did not complete but nothing is
	// wrong: data not yet ready, the provider reported the account gone,
	// or the account is disconnected and was skipped.
	StatusUnchanged Status = "unchanged"
	// StatusReconnectRequired: the credential is dead; the account has been
	// latched disconnected and the user must re-link.
	StatusReconnectRequired Status = "reconnect_required"
	// StatusTransientError: the attempt failed but the account state is
	// untouched; the next trigger retries.
	StatusTransientError Status = "transient_error"
)

// Outcome is one account's sync result, consumed by the orchestrator.
type Outcome struct {
	AccountID       int64   `json:"accountId"`
	Institution     string  `json:"institution"`
	Status          Status  `json:"status"`
	PriorBalance    float64 `json:"priorBalance"`
	NewBalance      float64 `json:"newBalance"`
	BalanceChanged  bool    `json:"balanceChanged"`
	NewTransactions int     `json:"newTransactions"`
	Detail          string  `json:"detail,omitempty"`
}

// ReconnectNotifier is told when an account's credential turns out to be
// dead. Delivery is an external concern behind this boundary; a nil
// notifier is valid.
type ReconnectNotifier interface {
	ReconnectRequired(ctx context.Context, acct *ledger.Account)
}

// AccountSyncUnit runs balance reconciliation and transaction ingestion
// for exactly one account and classifies any failure. It is the isolation
// boundary: nothing escapes Sync, and no other account's state is touched.
type AccountSyncUnit struct {
	reconciler *BalanceReconciler
	ingester   *TransactionIngester
	accounts   ledger.AccountRepository
	notifier   ReconnectNotifier
}

// NewAccountSyncUnit creates a new account sync unit. notifier may be nil.
func NewAccountSyncUnit(
	reconciler *BalanceReconciler,
	ingester *TransactionIngester,
	accounts ledger.AccountRepository,
	notifier ReconnectNotifier,
) *AccountSyncUnit {
	return &AccountSyncUnit{
		reconciler: reconciler,
		ingester:   ingester,
		accounts:   accounts,
		notifier:   notifier,
	}
}

// Sync processes one account over the window and always returns an Outcome.
func (u *AccountSyncUnit) Sync(ctx context.Context, acct *ledger.Account, w Window) Outcome {
	out := Outcome{
		AccountID:    acct.ID,
		Institution:  acct.Institution,
		PriorBalance: acct.Balance,
		NewBalance:   acct.Balance,
	}

	// The latch: a known-bad credential must never reach the provider.
	if !acct.IsConnected {
		out.Status = StatusUnchanged
		out.Detail = "account disconnected, awaiting re-link"
		return out
	}

	change, err := u.reconciler.Reconcile(ctx, acct)
	out.PriorBalance = change.Prior
	out.NewBalance = change.New
	out.BalanceChanged = change.Updated
	if err != nil {
		return u.classify(ctx, acct, err, out)
	}

	created, err := u.ingester.Ingest(ctx, acct, w)
	out.NewTransactions = created
	if err != nil {
		return u.classify(ctx, acct, err, out)
	}

	out.Status = StatusUpdated
	return out
}

// classify turns a provider failure into an outcome, latching the account
// on dead credentials. Soft failures leave everything as it was.
func (u *AccountSyncUnit) classify(ctx context.Context, acct *ledger.Account, err error, out Outcome) Outcome {
	out.Detail = err.Error()

	switch Classify(err) {
	case FailureReconnectRequired:
		log.Printf("Account %d: credential rejected, marking disconnected: %v", acct.ID, err)
		if markErr := u.accounts.MarkDisconnected(ctx, acct.ID); markErr != nil {
			log.Printf("Account %d: failed to mark disconnected: %v", acct.ID, markErr)
		} else if u.notifier != nil {
			u.notifier.ReconnectRequired(ctx, acct)
		}
		out.Status = StatusReconnectRequired

	case FailureNotYetReady:
		log.Printf("Account %d: provider data not yet ready, will retry on next trigger", acct.ID)
		out.Status = StatusUnchanged
		if out.BalanceChanged {
			out.Status = StatusUpdated
		}

	case FailureNotFound:
		log.Printf("Account %d: external account not listed by provider", acct.ID)
		out.Status = StatusUnchanged
		if out.BalanceChanged {
			out.Status = StatusUpdated
		}

	default:
		log.Printf("Account %d: transient sync failure: %v", acct.ID, err)
		out.Status = StatusTransientError
	}

	return out
}
