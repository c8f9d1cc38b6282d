package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"finlink/internal/domain/ledger"
	"finlink/internal/infrastructure/aggregator"
)

// defaultCategory labels transactions the provider left uncategorized.
const defaultCategory = "Uncategorized"

// Window is the inclusive calendar-date range requested from the provider.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowEndingToday builds a window covering the last `days` calendar days,
// today included.
func WindowEndingToday(days int) Window {
	end := ledger.DateOnly(time.Now())
	return Window{
		Start: end.AddDate(0, 0, -(days - 1)),
		End:   end,
	}
}

// TransactionIngester pulls provider transactions for one account and
// inserts only those not already present in the ledger.
type TransactionIngester struct {
	client       aggregator.ClientInterface
	transactions ledger.TransactionRepository
}

// NewTransactionIngester creates a new transaction ingester.
func NewTransactionIngester(client aggregator.ClientInterface, transactions ledger.TransactionRepository) *TransactionIngester {
	return &TransactionIngester{client: client, transactions: transactions}
}

// Ingest fetches the window and persists new transactions, returning the
// count created. An empty provider result is a success with zero new
// entries: a brand-new link often has no transaction data yet.
//
// Dedup runs in two tiers per candidate:
//  1. provider transaction id, when the record carries one;
//  2. content match on description + amount (±tolerance) + calendar date,
//     guarding records without ids and id churn across fetches.
func (ing *TransactionIngester) Ingest(ctx context.Context, acct *ledger.Account, w Window) (int, error) {
	resp, err := ing.client.GetTransactions(ctx, acct.Credential, w.Start, w.End)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range resp.Data {
		rec := &resp.Data[i]
		// A provider response can span every account at the institution.
		if rec.AccountExternalID != acct.ExternalID {
			continue
		}

		inserted, err := ing.ingestOne(ctx, acct, rec)
		if err != nil {
			return created, fmt.Errorf("failed to ingest transaction %q: %w", rec.ID, err)
		}
		if inserted {
			created++
		}
	}

	log.Printf("Account %d: ingested %d new transactions (%d candidates, window %s..%s)",
		acct.ID, created, len(resp.Data), w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))

	return created, nil
}

// ingestOne dedups and persists a single candidate. Returns true when a new
// transaction was created.
func (ing *TransactionIngester) ingestOne(ctx context.Context, acct *ledger.Account, rec *aggregator.ProviderTransaction) (bool, error) {
	if rec.ID != "" {
		existing, err := ing.transactions.FindByExternalID(ctx, acct.UserID, rec.ID)
		if err != nil {
			return false, fmt.Errorf("external id lookup: %w", err)
		}
		if existing != nil {
			return false, nil
		}
	}

	date, err := rec.GetDate()
	if err != nil {
		return false, err
	}
	date = ledger.DateOnly(date)

	// Provider convention is positive-means-outflow; the ledger stores
	// outflows negative.
	amount := -rec.Amount

	existing, err := ing.transactions.FindByContent(ctx, acct.ID, rec.Name, amount, date)
	if err != nil {
		return false, fmt.Errorf("content lookup: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	params := ledger.InsertTransactionParams{
		ID:          uuid.NewString(),
		UserID:      acct.UserID,
		AccountID:   acct.ID,
		Amount:      amount,
		Category:    rec.Category,
		Description: rec.Name,
		Merchant:    rec.MerchantName,
		Date:        date,
	}
	if rec.ID != "" {
		externalID := rec.ID
		params.ExternalID = &externalID
	}
	if params.Category == "" {
		params.Category = defaultCategory
	}
	if params.Merchant == "" {
		params.Merchant = rec.Name
	}

	if _, err := ing.transactions.Insert(ctx, params); err != nil {
		// A concurrent sync won the insert race on the same provider event.
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			log.Printf("Account %d: transaction %q already ingested by a concurrent sync", acct.ID, rec.ID)
			return false, nil
		}
		return false, fmt.Errorf("insert: %w", err)
	}

	return true, nil
}
