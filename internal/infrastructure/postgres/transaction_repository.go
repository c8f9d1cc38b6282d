package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"finlink/internal/domain/ledger"
)

// TransactionRepository implements ledger.TransactionRepository for
// PostgreSQL. A partial unique index on (user_id, external_id) backs the
// first dedup tier; a lost insert race surfaces as unique_violation and is
// translated to ledger.ErrDuplicateTransaction.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, account_id, external_id, amount, category, description, merchant, transaction_date, created_at`

func scanTransaction(scan func(dest ...any) error) (*ledger.Transaction, error) {
	var tx ledger.Transaction
	var externalID sql.NullString

	err := scan(
		&tx.ID, &tx.UserID, &tx.AccountID, &externalID,
		&tx.Amount, &tx.Category, &tx.Description, &tx.Merchant,
		&tx.Date, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		s := externalID.String
		tx.ExternalID = &s
	}

	return &tx, nil
}

// FindByExternalID looks up a transaction by its provider id. Returns
// (nil, nil) when absent.
func (r *TransactionRepository) FindByExternalID(ctx context.Context, userID int64, externalID string) (*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND external_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, userID, externalID)
	tx, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by external id: %w", err)
	}
	return tx, nil
}

// FindByContent is the second dedup tier: same account, same description,
// amount within tolerance, same calendar date. Returns (nil, nil) when
// absent.
func (r *TransactionRepository) FindByContent(ctx context.Context, accountID int64, description string, amount float64, date time.Time) (*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		  AND description = $2
		  AND ABS(amount - $3) <= $4
		  AND transaction_date = $5
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, accountID, description, amount, ledger.AmountTolerance, date)
	tx, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by content: %w", err)
	}
	return tx, nil
}

// Insert persists a new transaction. A unique_violation on the external id
// index is reported as ledger.ErrDuplicateTransaction so callers can treat
// a lost race as already-ingested.
func (r *TransactionRepository) Insert(ctx context.Context, params ledger.InsertTransactionParams) (*ledger.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (id, user_id, account_id, external_id, amount, category, description, merchant, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + transactionColumns + `
	`

	var externalID sql.NullString
	if params.ExternalID != nil {
		externalID = sql.NullString{String: *params.ExternalID, Valid: true}
	}

	row := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.AccountID, externalID,
		params.Amount, params.Category, params.Description, params.Merchant,
		params.Date,
	)
	tx, err := scanTransaction(row.Scan)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ledger.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return tx, nil
}

// ListByAccountID retrieves transactions for one account, newest first.
func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listTransactions(ctx, query, accountID, limit, offset)
}

// ListByUserID retrieves transactions across all of a user's accounts,
// newest first.
func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listTransactions(ctx, query, userID, limit, offset)
}

func (r *TransactionRepository) listTransactions(ctx context.Context, query string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
