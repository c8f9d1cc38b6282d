package sync

import (
	"context"
	"errors"
	"net/http"
	gosync "sync"
	"testing"
	"time"

	"finlink/internal/domain/ledger"
	"finlink/internal/infrastructure/aggregator"
)

func TestRun_IsolatesAccountFailures(t *testing.T) {
	// Three accounts under one user; the middle one has a dead credential.
	a1, a2, a3 := testAccount(1), testAccount(2), testAccount(3)
	a2.Credential = "revoked"

	client := &MockClient{
		GetBalancesFunc: func(ctx context.Context, credential string) (*aggregator.BalanceResponse, error) {
			if credential == "revoked" {
				return nil, &aggregator.APIError{StatusCode: http.StatusUnauthorized, Code: aggregator.CodeItemLoginRequired}
			}
			return &aggregator.BalanceResponse{Success: true}, nil
		},
	}
	accounts := &MockAccountRepo{}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{})

	summary := orch.Run(context.Background(), []*ledger.Account{a1, a2, a3}, testWindow())

	if summary.AccountsProcessed != 3 {
		t.Fatalf("AccountsProcessed = %d, want 3", summary.AccountsProcessed)
	}
	if summary.AccountsReconnectRequired != 1 {
		t.Errorf("AccountsReconnectRequired = %d, want 1", summary.AccountsReconnectRequired)
	}
	if summary.AccountsUpdated != 2 {
		t.Errorf("AccountsUpdated = %d, want 2", summary.AccountsUpdated)
	}
	if accounts.DisconnectedCalls.Load() != 1 {
		t.Errorf("MarkDisconnected calls = %d, want 1", accounts.DisconnectedCalls.Load())
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var (
		mu      gosync.Mutex
		active  int
		highest int
	)
	client := &MockClient{
		GetBalancesFunc: func(ctx context.Context, credential string) (*aggregator.BalanceResponse, error) {
			mu.Lock()
			active++
			if active > highest {
				highest = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return &aggregator.BalanceResponse{Success: true}, nil
		},
	}
	accounts := &MockAccountRepo{}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{Concurrency: 2})

	var scope []*ledger.Account
	for i := int64(1); i <= 10; i++ {
		scope = append(scope, testAccount(i))
	}

	summary := orch.Run(context.Background(), scope, testWindow())

	if summary.AccountsProcessed != 10 {
		t.Fatalf("AccountsProcessed = %d, want 10", summary.AccountsProcessed)
	}
	if highest > 2 {
		t.Errorf("observed %d concurrent provider calls, limit is 2", highest)
	}
}

func TestRun_EmptyScope(t *testing.T) {
	accounts := &MockAccountRepo{}
	unit := newTestUnit(&MockClient{}, accounts, nil)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{})

	summary := orch.Run(context.Background(), nil, testWindow())
	if summary.AccountsProcessed != 0 || len(summary.Outcomes) != 0 {
		t.Errorf("empty scope produced %+v", summary)
	}
}

func TestSyncUser_LoginScenario(t *testing.T) {
	// A user with two connected accounts logs in: one account gains two
	// transactions and a new balance, the other is unchanged.
	a1, a2 := testAccount(1), testAccount(2)
	client := &MockClient{
		GetBalancesFunc: func(ctx context.Context, credential string) (*aggregator.BalanceResponse, error) {
			return &aggregator.BalanceResponse{
				Success: true,
				Data: []aggregator.AccountBalance{
					{AccountExternalID: a1.ExternalID, Available: floatPtr(55.00)},
					{AccountExternalID: a2.ExternalID, Available: floatPtr(100.00)},
				},
			}, nil
		},
		GetTransactionsFunc: func(ctx context.Context, credential string, start, end time.Time) (*aggregator.TransactionResponse, error) {
			return providerResponse(
				aggregator.ProviderTransaction{ID: "tx-1", AccountExternalID: a1.ExternalID, Amount: 30.00, DateString: "2026-03-02", Name: "Groceries"},
				aggregator.ProviderTransaction{ID: "tx-2", AccountExternalID: a1.ExternalID, Amount: 15.00, DateString: "2026-03-03", Name: "Fuel"},
			), nil
		},
	}
	accounts := &MockAccountRepo{
		ListConnectedByUserFunc: func(ctx context.Context, userID int64) ([]*ledger.Account, error) {
			return []*ledger.Account{a1, a2}, nil
		},
	}
	txRepo := &memTransactionRepo{}
	unit := NewAccountSyncUnit(
		NewBalanceReconciler(client, accounts),
		NewTransactionIngester(client, txRepo),
		accounts,
		nil,
	)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{})

	summary, err := orch.SyncUser(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("SyncUser() failed: %v", err)
	}

	if summary.AccountsProcessed != 2 {
		t.Fatalf("AccountsProcessed = %d, want 2", summary.AccountsProcessed)
	}
	if summary.TotalNewTransactions != 2 {
		t.Errorf("TotalNewTransactions = %d, want 2", summary.TotalNewTransactions)
	}
	if accounts.BalanceUpdates.Load() != 1 {
		t.Errorf("balance writes = %d, want 1 (second account unchanged)", accounts.BalanceUpdates.Load())
	}
}

func TestSyncUser_ClampsWindow(t *testing.T) {
	var gotStart, gotEnd time.Time
	client := &MockClient{
		GetTransactionsFunc: func(ctx context.Context, credential string, start, end time.Time) (*aggregator.TransactionResponse, error) {
			gotStart, gotEnd = start, end
			return &aggregator.TransactionResponse{Success: true}, nil
		},
	}
	acct := testAccount(1)
	accounts := &MockAccountRepo{
		ListConnectedByUserFunc: func(ctx context.Context, userID int64) ([]*ledger.Account, error) {
			return []*ledger.Account{acct}, nil
		},
	}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{})

	if _, err := orch.SyncUser(context.Background(), 1, 500); err != nil {
		t.Fatalf("SyncUser() failed: %v", err)
	}

	days := int(gotEnd.Sub(gotStart).Hours()/24) + 1
	if days != MaxWindowDays {
		t.Errorf("window spans %d days, want clamp to %d", days, MaxWindowDays)
	}
}

func TestSyncUser_StoreFailureAbortsRun(t *testing.T) {
	storeErr := errors.New("connection refused")
	accounts := &MockAccountRepo{
		ListConnectedByUserFunc: func(ctx context.Context, userID int64) ([]*ledger.Account, error) {
			return nil, storeErr
		},
	}
	client := &MockClient{}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, &MockUserDirectory{}, Config{})

	summary, err := orch.SyncUser(context.Background(), 1, 0)
	if err == nil {
		t.Fatal("SyncUser() must fail when the ledger store is unreachable")
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("error %v does not wrap the store failure", err)
	}
	if summary != nil {
		t.Errorf("no summary expected on a whole-run failure, got %+v", summary)
	}
	if client.BalanceCalls.Load() != 0 {
		t.Errorf("provider must not be called when listing accounts fails")
	}
}

func TestSyncAllUsers_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once gosync.Once

	acct := testAccount(1)
	client := &MockClient{
		GetBalancesFunc: func(ctx context.Context, credential string) (*aggregator.BalanceResponse, error) {
			once.Do(func() { close(started) })
			<-release
			return &aggregator.BalanceResponse{Success: true}, nil
		},
	}
	accounts := &MockAccountRepo{
		ListConnectedByUserFunc: func(ctx context.Context, userID int64) ([]*ledger.Account, error) {
			return []*ledger.Account{acct}, nil
		},
	}
	users := &MockUserDirectory{
		ListFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{1}, nil
		},
	}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, users, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := orch.SyncAllUsers(context.Background())
		done <- err
	}()

	<-started
	if _, err := orch.SyncAllUsers(context.Background()); !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("overlapping sweep returned %v, want ErrSweepInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}

	// The flag is released; a fresh sweep must be allowed again.
	if _, err := orch.SyncAllUsers(context.Background()); err != nil {
		t.Errorf("sweep after completion returned %v, want nil", err)
	}
}

func TestSyncAllUsers_SkipsFailingUser(t *testing.T) {
	a2 := testAccount(2)
	a2.UserID = 2
	client := &MockClient{}
	accounts := &MockAccountRepo{
		ListConnectedByUserFunc: func(ctx context.Context, userID int64) ([]*ledger.Account, error) {
			if userID == 1 {
				return nil, errors.New("transient store failure")
			}
			return []*ledger.Account{a2}, nil
		},
	}
	users := &MockUserDirectory{
		ListFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{1, 2}, nil
		},
	}
	unit := newTestUnit(client, accounts, nil)
	orch := NewOrchestrator(unit, accounts, users, Config{})

	summary, err := orch.SyncAllUsers(context.Background())
	if err != nil {
		t.Fatalf("SyncAllUsers() failed: %v", err)
	}
	if summary.AccountsProcessed != 1 {
		t.Errorf("AccountsProcessed = %d, want 1 (user 2 only)", summary.AccountsProcessed)
	}
}
