package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"finlink/internal/domain/ledger"
)

const defaultPageSize = 50

// TransactionLister loads synced transactions for listing endpoints.
type TransactionLister interface {
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Transaction, error)
	ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*ledger.Transaction, error)
}

type TransactionHandler struct {
	transactions TransactionLister
	accounts     AccountLister
}

func NewTransactionHandler(transactions TransactionLister, accounts AccountLister) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		accounts:     accounts,
	}
}

// HandleListTransactions returns a user's transactions, newest first.
// An optional accountId query parameter narrows the listing to one account.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)

	var (
		txs []*ledger.Transaction
		err error
	)
	if rawAccountID := r.URL.Query().Get("accountId"); rawAccountID != "" {
		accountID, parseErr := strconv.ParseInt(rawAccountID, 10, 64)
		if parseErr != nil {
			http.Error(w, "Invalid accountId", http.StatusBadRequest)
			return
		}

		// Ownership check before listing by account.
		acct, getErr := h.accounts.GetByID(r.Context(), accountID)
		if getErr != nil {
			if errors.Is(getErr, ledger.ErrAccountNotFound) {
				http.Error(w, "Account not found", http.StatusNotFound)
				return
			}
			log.Printf("Error loading account %d: %v", accountID, getErr)
			http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
			return
		}
		if acct.UserID != userID {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}

		txs, err = h.transactions.ListByAccountID(r.Context(), accountID, limit, offset)
	} else {
		txs, err = h.transactions.ListByUserID(r.Context(), userID, limit, offset)
	}
	if err != nil {
		log.Printf("Error listing transactions for user %d: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
