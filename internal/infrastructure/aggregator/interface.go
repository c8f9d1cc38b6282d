package aggregator

import (
	"context"
	"time"
)

// ClientInterface defines the methods required from the bank-data
// aggregation provider. The client only does transport and shape
// translation; failures pass through to the caller for classification.
type ClientInterface interface {
	// GetBalances fetches current/available balances for every account
	// reachable through the credential.
	GetBalances(ctx context.Context, credential string) (*BalanceResponse, error)

	// GetTransactions fetches transactions in the inclusive [start, end]
	// calendar-date window. The response may span multiple accounts at one
	// institution.
	GetTransactions(ctx context.Context, credential string, start, end time.Time) (*TransactionResponse, error)
}
