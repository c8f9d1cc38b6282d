package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"finlink/internal/domain/ledger"
)

// Service contains the business logic for notification operations. It is
// the engine's ReconnectNotifier: when a credential dies during a sync,
// the user's devices are told to re-link. A nil messenger disables
// delivery without disabling token bookkeeping.
type Service struct {
	tokens    TokenRepository
	messenger Messenger
}

// NewService creates a new notification service
func NewService(tokens TokenRepository, messenger Messenger) *Service {
	return &Service{tokens: tokens, messenger: messenger}
}

// RegisterDevice registers a device token for a user. If the token already
// belongs to another user, it is reassigned.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.tokens.UpsertDeviceToken(ctx, params)
}

// UnregisterDevice deactivates a device token so it no longer receives
// notifications.
func (s *Service) UnregisterDevice(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	return s.tokens.DeactivateToken(ctx, token)
}

// ReconnectRequired tells the account's owner their credential stopped
// working. Called from inside a sync run, so it never returns an error;
// delivery problems are logged and the sync outcome stands on its own.
func (s *Service) ReconnectRequired(ctx context.Context, acct *ledger.Account) {
	tokens, err := s.tokens.GetActiveTokensByUserID(ctx, acct.UserID)
	if err != nil {
		log.Printf("Reconnect notice for user %d: failed to load device tokens: %v", acct.UserID, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("Reconnect notice for user %d: no active device tokens", acct.UserID)
		return
	}
	if s.messenger == nil {
		return
	}

	title := "Account connection expired"
	body := fmt.Sprintf("Reconnect your %s account to keep it in sync.", acct.Institution)
	data := map[string]string{
		"route":     "accounts",
		"accountId": fmt.Sprintf("%d", acct.ID),
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	if err := s.messenger.SendMulticast(ctx, tokenStrings, title, body, data); err != nil {
		log.Printf("Reconnect notice for user %d: delivery failed: %v", acct.UserID, err)
	}
}

// SendToToken sends a push notification to a single device token.
func (s *Service) SendToToken(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if s.messenger == nil {
		return errors.New("push delivery is not configured")
	}
	return s.messenger.Send(ctx, token, title, body, data)
}
