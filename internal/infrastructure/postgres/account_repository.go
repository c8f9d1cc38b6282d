package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finlink/internal/domain/ledger"
	"finlink/internal/infrastructure/crypto"
)

// AccountRepository implements ledger.AccountRepository for PostgreSQL.
// Credentials are stored encrypted; every read decrypts so callers only
// ever see the plaintext provider token.
type AccountRepository struct {
	db  *DB
	enc *crypto.Encryptor
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB, enc *crypto.Encryptor) *AccountRepository {
	return &AccountRepository{db: db, enc: enc}
}

const accountColumns = `id, user_id, external_id, institution, balance, last_balance_update, is_connected, credential, created_at, updated_at`

func (r *AccountRepository) scanAccount(scan func(dest ...any) error) (*ledger.Account, error) {
	var acct ledger.Account
	var lastUpdate sql.NullTime
	var credential string

	err := scan(
		&acct.ID, &acct.UserID, &acct.ExternalID, &acct.Institution,
		&acct.Balance, &lastUpdate, &acct.IsConnected, &credential,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastUpdate.Valid {
		t := lastUpdate.Time
		acct.LastBalanceUpdate = &t
	}

	plain, err := r.enc.Decrypt(credential)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential for account %d: %w", acct.ID, err)
	}
	acct.Credential = plain

	return &acct, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	acct, err := r.scanAccount(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// ListConnectedByUser retrieves a user's connected accounts, the scope of
// an on-demand or login sync.
func (r *AccountRepository) ListConnectedByUser(ctx context.Context, userID int64) ([]*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND is_connected = true
		ORDER BY created_at
	`
	return r.listAccounts(ctx, query, userID)
}

// ListByUser retrieves all of a user's accounts, disconnected included.
// Used by the HTTP listing surface, not by the sync engine.
func (r *AccountRepository) ListByUser(ctx context.Context, userID int64) ([]*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`
	return r.listAccounts(ctx, query, userID)
}

func (r *AccountRepository) listAccounts(ctx context.Context, query string, args ...any) ([]*ledger.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		acct, err := r.scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateBalance persists a reconciled balance.
func (r *AccountRepository) UpdateBalance(ctx context.Context, accountID int64, balance float64, updatedAt time.Time) error {
	query := `
		UPDATE accounts
		SET balance = $1, last_balance_update = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, balance, updatedAt, accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ledger.ErrAccountNotFound
	}

	return nil
}

// MarkDisconnected latches an account out of sync scope until re-link.
func (r *AccountRepository) MarkDisconnected(ctx context.Context, accountID int64) error {
	query := `
		UPDATE accounts
		SET is_connected = false, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("failed to mark account disconnected: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ledger.ErrAccountNotFound
	}

	return nil
}
