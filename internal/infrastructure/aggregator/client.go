// Package aggregator is a narrow client over the external bank-data
// provider's balance and transaction operations. Provider payloads are
// validated here and never passed through untyped past this boundary.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL   = "https://api.ledgerbridge.io/v1"
	defaultTimeout   = 30 * time.Second
	balancesPath     = "/balances"
	transactionsPath = "/transactions"

	dateLayout = "2006-01-02"
)

// Provider error codes the engine recognizes. Anything else is treated as
// transient by the classifier.
const (
	CodeItemLoginRequired  = "ITEM_LOGIN_REQUIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeItemLocked         = "ITEM_LOCKED"
	CodeProductNotReady    = "PRODUCT_NOT_READY"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// APIError is a machine-readable provider failure.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// Config holds client construction parameters.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client handles communication with the aggregation provider. It is
// constructed once at process startup and injected into the sync engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new provider client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// BalanceResponse represents the provider response for balance data.
type BalanceResponse struct {
	Success   bool             `json:"success"`
	Data      []AccountBalance `json:"data"`
	Count     int              `json:"count"`
	Timestamp string           `json:"timestamp"`
}

// AccountBalance is one account's balance pair. Either field may be null:
// `available` reflects spendable funds (holds subtracted), `current` the
// ledger balance.
type AccountBalance struct {
	AccountExternalID string   `json:"accountId"`
	Current           *float64 `json:"current"`
	Available         *float64 `json:"available"`
}

// TransactionResponse represents the provider response for transaction data.
type TransactionResponse struct {
	Success   bool                  `json:"success"`
	Data      []ProviderTransaction `json:"data"`
	Count     int                   `json:"count"`
	Timestamp string                `json:"timestamp"`
}

// ProviderTransaction is one provider-native transaction record.
// Amounts use the provider's convention: positive = money leaving the
// account. The ingester flips the sign on normalization.
type ProviderTransaction struct {
	ID                string  `json:"id"` // may be empty while the provider settles the entry
	AccountExternalID string  `json:"accountId"`
	Amount            float64 `json:"amount"`
	DateString        string  `json:"date"`
	Name              string  `json:"name"`
	MerchantName      string  `json:"merchantName"`
	Category          string  `json:"category"`
}

// GetDate parses the record's calendar date.
func (t *ProviderTransaction) GetDate() (time.Time, error) {
	if t.DateString == "" {
		return time.Time{}, fmt.Errorf("transaction date is missing")
	}
	d, err := time.Parse(dateLayout, t.DateString)
	if err != nil {
		// Some institutions return full timestamps.
		ts, tsErr := time.Parse(time.RFC3339, t.DateString)
		if tsErr != nil {
			return time.Time{}, fmt.Errorf("failed to parse date %q: %w", t.DateString, err)
		}
		return ts, nil
	}
	return d, nil
}

// Validate checks the record carries enough shape to be ingested.
func (t *ProviderTransaction) Validate() error {
	if t.AccountExternalID == "" {
		return fmt.Errorf("transaction %q has no account id", t.ID)
	}
	if _, err := t.GetDate(); err != nil {
		return err
	}
	return nil
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetBalances fetches balances for all accounts under the credential.
func (c *Client) GetBalances(ctx context.Context, credential string) (*BalanceResponse, error) {
	body, err := c.get(ctx, c.baseURL+balancesPath, credential)
	if err != nil {
		return nil, err
	}

	var balResp BalanceResponse
	if err := json.Unmarshal(body, &balResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance response: %w", err)
	}
	if !balResp.Success {
		return nil, fmt.Errorf("provider returned success=false")
	}

	return &balResp, nil
}

// GetTransactions fetches transactions in the inclusive window.
func (c *Client) GetTransactions(ctx context.Context, credential string, start, end time.Time) (*TransactionResponse, error) {
	url := fmt.Sprintf("%s%s?start_date=%s&end_date=%s",
		c.baseURL, transactionsPath, start.Format(dateLayout), end.Format(dateLayout))

	body, err := c.get(ctx, url, credential)
	if err != nil {
		return nil, err
	}

	var txResp TransactionResponse
	if err := json.Unmarshal(body, &txResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction response: %w", err)
	}
	if !txResp.Success {
		return nil, fmt.Errorf("provider returned success=false")
	}

	for i := range txResp.Data {
		if err := txResp.Data[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid transaction record: %w", err)
		}
	}

	return &txResp, nil
}

// get performs an authenticated GET and returns the raw body, translating
// non-200 responses into *APIError.
func (c *Client) get(ctx context.Context, url, credential string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", credential))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error,
			Message:    errResp.Message,
		}
	}

	return body, nil
}
