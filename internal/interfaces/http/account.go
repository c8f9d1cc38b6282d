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

// AccountLister loads the accounts belonging to a user, connected or not.
type AccountLister interface {
	ListByUser(ctx context.Context, userID int64) ([]*ledger.Account, error)
	GetByID(ctx context.Context, id int64) (*ledger.Account, error)
}

// AccountHandler serves read access to synced accounts.
type AccountHandler struct {
	accounts AccountLister
}

func NewAccountHandler(accounts AccountLister) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// HandleListAccounts returns all accounts for a user, including disconnected
// ones so clients can surface the reconnect prompt.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing accounts for user %d: %v", userID, err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// HandleAccountByID returns a single account.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		log.Printf("Error loading account %d: %v", accountID, err)
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if acct.UserID != userID {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(acct)
}

// pathUserID extracts the {userID} path segment. The API sits behind the
// gateway that performs authentication, so the ID is trusted input here.
func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return 0, false
	}
	return userID, true
}
