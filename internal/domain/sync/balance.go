package sync

import (
	"context"
	"log"
	"time"

	"finlink/internal/domain/ledger"
	"finlink/internal/infrastructure/aggregator"
)

// BalanceChange reports the outcome of one balance reconciliation.
type BalanceChange struct {
	Prior   float64
	New     float64
	Updated bool
}

// BalanceReconciler refreshes one account's stored balance from the
// provider, persisting only when the selected value actually differs.
type BalanceReconciler struct {
	client   aggregator.ClientInterface
	accounts ledger.AccountRepository
}

// NewBalanceReconciler creates a new balance reconciler.
func NewBalanceReconciler(client aggregator.ClientInterface, accounts ledger.AccountRepository) *BalanceReconciler {
	return &BalanceReconciler{client: client, accounts: accounts}
}

// Reconcile fetches the account's provider balance and applies the
// selection policy: available is preferred over current because holds
// reduce available but not current, so it better reflects spendable funds.
//
// An account missing from the provider response or carrying two null
// balances is a soft no-op, not a failure — the external side may be
// momentarily inconsistent.
func (r *BalanceReconciler) Reconcile(ctx context.Context, acct *ledger.Account) (BalanceChange, error) {
	change := BalanceChange{Prior: acct.Balance, New: acct.Balance}

	resp, err := r.client.GetBalances(ctx, acct.Credential)
	if err != nil {
		return change, err
	}

	var match *aggregator.AccountBalance
	for i := range resp.Data {
		if resp.Data[i].AccountExternalID == acct.ExternalID {
			match = &resp.Data[i]
			break
		}
	}
	if match == nil {
		log.Printf("Account %d: external id %s not listed by provider, leaving balance untouched", acct.ID, acct.ExternalID)
		return change, nil
	}

	selected := match.Available
	if selected == nil {
		selected = match.Current
	}
	if selected == nil {
		return change, nil
	}

	if *selected == acct.Balance {
		return change, nil
	}

	now := time.Now().UTC()
	if err := r.accounts.UpdateBalance(ctx, acct.ID, *selected, now); err != nil {
		return change, err
	}

	log.Printf("Account %d: balance %.2f -> %.2f", acct.ID, acct.Balance, *selected)

	change.New = *selected
	change.Updated = true
	return change, nil
}
