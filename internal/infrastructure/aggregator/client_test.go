package aggregator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	return client, srv
}

func TestGetBalances(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != balancesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer cred-1" {
			t.Errorf("Authorization = %q, want Bearer cred-1", got)
		}
		w.Write([]byte(`{
			"success": true,
			"data": [
				{"accountId": "ext-1", "current": 100.0, "available": 80.0},
				{"accountId": "ext-2", "current": 250.5, "available": null}
			],
			"count": 2
		}`))
	})
	defer srv.Close()

	resp, err := client.GetBalances(context.Background(), "cred-1")
	if err != nil {
		t.Fatalf("GetBalances() failed: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Fatalf("got %d balances, want 2", len(resp.Data))
	}
	if resp.Data[0].Available == nil || *resp.Data[0].Available != 80.0 {
		t.Errorf("Data[0].Available = %v, want 80.0", resp.Data[0].Available)
	}
	if resp.Data[1].Available != nil {
		t.Errorf("Data[1].Available = %v, want nil", *resp.Data[1].Available)
	}
}

func TestGetTransactions_WindowParams(t *testing.T) {
	var gotStart, gotEnd string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_date")
		gotEnd = r.URL.Query().Get("end_date")
		w.Write([]byte(`{"success": true, "data": [], "count": 0}`))
	})
	defer srv.Close()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)

	resp, err := client.GetTransactions(context.Background(), "cred-1", start, end)
	if err != nil {
		t.Fatalf("GetTransactions() failed: %v", err)
	}
	if gotStart != "2026-02-01" || gotEnd != "2026-02-07" {
		t.Errorf("window params = %s..%s, want 2026-02-01..2026-02-07", gotStart, gotEnd)
	}
	if len(resp.Data) != 0 {
		t.Errorf("got %d transactions, want 0", len(resp.Data))
	}
}

func TestGetTransactions_ProviderError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success": false, "error": "ITEM_LOGIN_REQUIRED", "message": "credentials expired"}`))
	})
	defer srv.Close()

	_, err := client.GetTransactions(context.Background(), "stale-cred",
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("GetTransactions() expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *APIError", err)
	}
	if apiErr.Code != CodeItemLoginRequired {
		t.Errorf("Code = %q, want %q", apiErr.Code, CodeItemLoginRequired)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestGetTransactions_InvalidRecordRejected(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		// Record missing accountId must not pass the boundary.
		w.Write([]byte(`{"success": true, "data": [{"id": "tx-1", "amount": 10, "date": "2026-02-03"}], "count": 1}`))
	})
	defer srv.Close()

	_, err := client.GetTransactions(context.Background(), "cred-1",
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("GetTransactions() expected validation error, got nil")
	}
}

func TestProviderTransaction_GetDate(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		want    time.Time
		wantErr bool
	}{
		{"calendar date", "2026-02-03", time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), false},
		{"full timestamp", "2026-02-03T14:22:00Z", time.Date(2026, 2, 3, 14, 22, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "03/02/2026", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ProviderTransaction{DateString: tt.date}
			got, err := tx.GetDate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("GetDate() = %v, want %v", got, tt.want)
			}
		})
	}
}
