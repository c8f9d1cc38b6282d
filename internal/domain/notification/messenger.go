package notification

import "context"

// Messenger sends push notifications to device tokens. Implemented by the
// Firebase FCM client in the infrastructure layer; delivery failures are
// the implementation's concern and never block a sync.
type Messenger interface {
	Send(ctx context.Context, token string, title, body string, data map[string]string) error
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}
