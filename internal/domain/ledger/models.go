// Package ledger holds the persistent domain entities of the sync engine:
// linked accounts and the normalized transaction ledger.
package ledger

import (
	"errors"
	"math"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateTransaction is returned by Insert when the transaction's
	// external id already exists for the user. Concurrent syncs racing on the
	// same provider event hit this; callers treat it as "already ingested".
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrInvalidInput         = errors.New("invalid input")
)

// AmountTolerance is the maximum difference under which two transaction
// amounts are considered equal when matching by content. Provider exports
// occasionally round differently between fetches.
const AmountTolerance = 0.01

// Account is a user's link to one financial account at one institution.
// The balance, timestamp and connection fields are mutated only by the
// sync engine; creation and deletion belong to the account-linking flow.
type Account struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"userId"`
	ExternalID        string     `json:"externalId"`
	Institution       string     `json:"institution"`
	Balance           float64    `json:"balance"`
	LastBalanceUpdate *time.Time `json:"lastBalanceUpdate"`
	// IsConnected is a latch: once false, the stored credential is known-bad
	// and the account is excluded from sync until the user re-links.
	IsConnected bool      `json:"isConnected"`
	Credential  string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Transaction is one normalized ledger entry. Entries sourced from the
// aggregator carry an external id; entries created by other means do not.
// Amounts are signed: negative = outflow, positive = inflow.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	AccountID   int64     `json:"accountId"`
	ExternalID  *string   `json:"externalId"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Merchant    string    `json:"merchant"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InsertTransactionParams contains parameters for persisting a new transaction.
type InsertTransactionParams struct {
	ID          string
	UserID      int64
	AccountID   int64
	ExternalID  *string
	Amount      float64
	Category    string
	Description string
	Merchant    string
	Date        time.Time
}

// Validate validates the insert parameters.
func (p InsertTransactionParams) Validate() error {
	if p.ID == "" {
		return errors.New("transaction ID is required")
	}
	if p.UserID <= 0 {
		return errors.New("valid user ID is required")
	}
	if p.AccountID <= 0 {
		return errors.New("valid account ID is required")
	}
	if p.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}

// AmountsMatch reports whether two amounts are equal within AmountTolerance.
func AmountsMatch(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}

// DateOnly truncates a timestamp to its calendar date in UTC. Transaction
// dates carry no time-of-day; every comparison and storage path goes
// through this.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
