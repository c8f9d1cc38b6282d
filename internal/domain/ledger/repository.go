package ledger

import (
	"context"
	"time"
)

// AccountRepository defines account data access for the sync engine.
// Defined in the domain layer, implemented in the infrastructure layer.
type AccountRepository interface {
	// GetByID retrieves an account by its internal ID.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// ListConnectedByUser retrieves a user's accounts with is_connected=true.
	// Disconnected accounts are excluded here so they never reach the
	// aggregator client.
	ListConnectedByUser(ctx context.Context, userID int64) ([]*Account, error)

	// UpdateBalance persists a new balance and stamps last_balance_update.
	UpdateBalance(ctx context.Context, accountID int64, balance float64, updatedAt time.Time) error

	// MarkDisconnected latches is_connected=false. Only an external re-link
	// event flips it back.
	MarkDisconnected(ctx context.Context, accountID int64) error
}

// TransactionRepository defines transaction data access for the sync engine.
type TransactionRepository interface {
	// FindByExternalID looks up a user's transaction by provider transaction
	// id. Returns (nil, nil) when not found.
	FindByExternalID(ctx context.Context, userID int64, externalID string) (*Transaction, error)

	// FindByContent looks up a transaction for the account whose description,
	// amount (within AmountTolerance) and calendar date all match.
	// Returns (nil, nil) when not found.
	FindByContent(ctx context.Context, accountID int64, description string, amount float64, date time.Time) (*Transaction, error)

	// Insert persists a new transaction. Returns ErrDuplicateTransaction when
	// the external id is already present for the user (lost insert race).
	Insert(ctx context.Context, params InsertTransactionParams) (*Transaction, error)

	// ListByAccountID lists an account's transactions, newest first.
	ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*Transaction, error)

	// ListByUserID lists a user's transactions, newest first.
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Transaction, error)
}

// UserDirectory lists the users whose accounts the periodic sweep should
// visit. The full user entity lives outside the engine; only ids cross
// this boundary.
type UserDirectory interface {
	ListUserIDsWithConnectedAccounts(ctx context.Context) ([]int64, error)
}
