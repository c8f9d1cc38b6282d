package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finlink/internal/domain/ledger"
)

// MockTransactionLister implements TransactionLister for testing
type MockTransactionLister struct {
	ListByUserIDFunc    func(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error)
	ListByAccountIDFunc func(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error)
}

func (m *MockTransactionLister) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *MockTransactionLister) ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error) {
	if m.ListByAccountIDFunc != nil {
		return m.ListByAccountIDFunc(ctx, accountID, limit, offset)
	}
	return nil, nil
}

func TestHandleListTransactions_ByUser(t *testing.T) {
	var gotLimit, gotOffset int
	lister := &MockTransactionLister{
		ListByUserIDFunc: func(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
			gotLimit, gotOffset = limit, offset
			return []*ledger.Transaction{
				{ID: "tx-1", UserID: 1, Description: "Grocery Store", Amount: -45.00},
			}, nil
		},
	}
	handler := NewTransactionHandler(lister, &MockAccountLister{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/1/transactions", nil)
	req.SetPathValue("userID", "1")
	rec := httptest.NewRecorder()

	handler.HandleListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if gotLimit != defaultPageSize || gotOffset != 0 {
		t.Errorf("expected default pagination (%d, 0), got (%d, %d)", defaultPageSize, gotLimit, gotOffset)
	}

	var txs []*ledger.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&txs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(txs) != 1 || txs[0].Description != "Grocery Store" {
		t.Errorf("unexpected response payload: %+v", txs)
	}
}

func TestHandleListTransactions_PaginationParams(t *testing.T) {
	var gotLimit, gotOffset int
	lister := &MockTransactionLister{
		ListByUserIDFunc: func(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	handler := NewTransactionHandler(lister, &MockAccountLister{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/1/transactions?limit=25&offset=100", nil)
	req.SetPathValue("userID", "1")
	rec := httptest.NewRecorder()

	handler.HandleListTransactions(rec, req)

	if gotLimit != 25 || gotOffset != 100 {
		t.Errorf("expected pagination (25, 100), got (%d, %d)", gotLimit, gotOffset)
	}
}

func TestHandleListTransactions_ByAccount(t *testing.T) {
	account := &ledger.Account{ID: 10, UserID: 1, Institution: "First National"}

	tests := []struct {
		name           string
		userID         string
		accountID      string
		expectedStatus int
		expectByAcct   bool
	}{
		{name: "Owned Account", userID: "1", accountID: "10", expectedStatus: http.StatusOK, expectByAcct: true},
		{name: "Other User's Account", userID: "2", accountID: "10", expectedStatus: http.StatusNotFound},
		{name: "Invalid Account ID", userID: "1", accountID: "abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			byAcctCalled := false
			lister := &MockTransactionLister{
				ListByAccountIDFunc: func(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error) {
					byAcctCalled = true
					return []*ledger.Transaction{}, nil
				},
			}
			accounts := &MockAccountLister{
				GetByIDFunc: func(ctx context.Context, id int64) (*ledger.Account, error) {
					if id == account.ID {
						return account, nil
					}
					return nil, ledger.ErrAccountNotFound
				},
			}
			handler := NewTransactionHandler(lister, accounts)

			req := httptest.NewRequest(http.MethodGet, "/api/users/"+tt.userID+"/transactions?accountId="+tt.accountID, nil)
			req.SetPathValue("userID", tt.userID)
			rec := httptest.NewRecorder()

			handler.HandleListTransactions(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if byAcctCalled != tt.expectByAcct {
				t.Errorf("expected byAccount listing called=%v, got %v", tt.expectByAcct, byAcctCalled)
			}
		})
	}
}

func TestHandleListTransactions_RepositoryError(t *testing.T) {
	lister := &MockTransactionLister{
		ListByUserIDFunc: func(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
			return nil, errors.New("db error")
		},
	}
	handler := NewTransactionHandler(lister, &MockAccountLister{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/1/transactions", nil)
	req.SetPathValue("userID", "1")
	rec := httptest.NewRecorder()

	handler.HandleListTransactions(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
