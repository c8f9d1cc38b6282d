package postgres

import (
	"context"
	"fmt"
)

// UserDirectory implements ledger.UserDirectory for PostgreSQL. The sweep
// needs user ids, not user records, so this reads them straight off the
// accounts table.
type UserDirectory struct {
	db *DB
}

// NewUserDirectory creates a new PostgreSQL user directory
func NewUserDirectory(db *DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// ListUserIDsWithConnectedAccounts returns the ids of every user owning at
// least one connected account, in stable order.
func (d *UserDirectory) ListUserIDsWithConnectedAccounts(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT user_id
		FROM accounts
		WHERE is_connected = true
		ORDER BY user_id
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with connected accounts: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	return userIDs, rows.Err()
}
