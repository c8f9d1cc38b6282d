package sync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"finlink/internal/domain/ledger"
	"finlink/internal/infrastructure/aggregator"
)

// MockClient implements aggregator.ClientInterface
type MockClient struct {
	GetBalancesFunc     func(ctx context.Context, credential string) (*aggregator.BalanceResponse, error)
	GetTransactionsFunc func(ctx context.Context, credential string, start, end time.Time) (*aggregator.TransactionResponse, error)

	BalanceCalls     atomic.Int64
	TransactionCalls atomic.Int64
}

func (m *MockClient) GetBalances(ctx context.Context, credential string) (*aggregator.BalanceResponse, error) {
	m.BalanceCalls.Add(1)
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, credential)
	}
	return &aggregator.BalanceResponse{Success: true}, nil
}

func (m *MockClient) GetTransactions(ctx context.Context, credential string, start, end time.Time) (*aggregator.TransactionResponse, error) {
	m.TransactionCalls.Add(1)
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, credential, start, end)
	}
	return &aggregator.TransactionResponse{Success: true}, nil
}

// MockAccountRepo implements ledger.AccountRepository
type MockAccountRepo struct {
	GetByIDFunc             func(ctx context.Context, id int64) (*ledger.Account, error)
	ListConnectedByUserFunc func(ctx context.Context, userID int64) ([]*ledger.Account, error)
	UpdateBalanceFunc       func(ctx context.Context, accountID int64, balance float64, updatedAt time.Time) error
	MarkDisconnectedFunc    func(ctx context.Context, accountID int64) error

	BalanceUpdates     atomic.Int64
	DisconnectedCalls  atomic.Int64
	LastBalanceWritten atomic.Value // float64
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int64) (*ledger.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ledger.ErrAccountNotFound
}

func (m *MockAccountRepo) ListConnectedByUser(ctx context.Context, userID int64) ([]*ledger.Account, error) {
	if m.ListConnectedByUserFunc != nil {
		return m.ListConnectedByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAccountRepo) UpdateBalance(ctx context.Context, accountID int64, balance float64, updatedAt time.Time) error {
	m.BalanceUpdates.Add(1)
	m.LastBalanceWritten.Store(balance)
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, accountID, balance, updatedAt)
	}
	return nil
}

func (m *MockAccountRepo) MarkDisconnected(ctx context.Context, accountID int64) error {
	m.DisconnectedCalls.Add(1)
	if m.MarkDisconnectedFunc != nil {
		return m.MarkDisconnectedFunc(ctx, accountID)
	}
	return nil
}

// MockUserDirectory implements ledger.UserDirectory
type MockUserDirectory struct {
	ListFunc func(ctx context.Context) ([]int64, error)
}

func (m *MockUserDirectory) ListUserIDsWithConnectedAccounts(ctx context.Context) ([]int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockNotifier records reconnect notices
type MockNotifier struct {
	Notices atomic.Int64
}

func (m *MockNotifier) ReconnectRequired(ctx context.Context, acct *ledger.Account) {
	m.Notices.Add(1)
}

// memTransactionRepo is an in-memory ledger.TransactionRepository with the
// same dedup-bearing semantics as the postgres implementation. Used where
// tests need real insert/lookup behavior (idempotency, race handling).
type memTransactionRepo struct {
	transactions []*ledger.Transaction

	// FailInsertWithDuplicate forces Insert to report a lost unique-index
	// race without storing anything.
	FailInsertWithDuplicate bool
}

func (m *memTransactionRepo) FindByExternalID(ctx context.Context, userID int64, externalID string) (*ledger.Transaction, error) {
	for _, tx := range m.transactions {
		if tx.UserID == userID && tx.ExternalID != nil && *tx.ExternalID == externalID {
			return tx, nil
		}
	}
	return nil, nil
}

func (m *memTransactionRepo) FindByContent(ctx context.Context, accountID int64, description string, amount float64, date time.Time) (*ledger.Transaction, error) {
	for _, tx := range m.transactions {
		if tx.AccountID == accountID &&
			tx.Description == description &&
			ledger.AmountsMatch(tx.Amount, amount) &&
			ledger.SameDate(tx.Date, date) {
			return tx, nil
		}
	}
	return nil, nil
}

func (m *memTransactionRepo) Insert(ctx context.Context, params ledger.InsertTransactionParams) (*ledger.Transaction, error) {
	if m.FailInsertWithDuplicate {
		return nil, ledger.ErrDuplicateTransaction
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.ExternalID != nil {
		for _, tx := range m.transactions {
			if tx.UserID == params.UserID && tx.ExternalID != nil && *tx.ExternalID == *params.ExternalID {
				return nil, ledger.ErrDuplicateTransaction
			}
		}
	}
	tx := &ledger.Transaction{
		ID:          params.ID,
		UserID:      params.UserID,
		AccountID:   params.AccountID,
		ExternalID:  params.ExternalID,
		Amount:      params.Amount,
		Category:    params.Category,
		Description: params.Description,
		Merchant:    params.Merchant,
		Date:        params.Date,
	}
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

func (m *memTransactionRepo) ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memTransactionRepo) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func floatPtr(f float64) *float64 { return &f }

func testAccount(id int64) *ledger.Account {
	return &ledger.Account{
		ID:          id,
		UserID:      1,
		ExternalID:  fmt.Sprintf("ext-%d", id),
		Institution: "First Example Bank",
		Balance:     100.00,
		IsConnected: true,
		Credential:  "cred-1",
	}
}
