package notification

import "context"

// TokenRepository defines the interface for device token data access.
// Defined in the domain layer, implemented in the infrastructure layer.
type TokenRepository interface {
	UpsertDeviceToken(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error)
	GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateToken(ctx context.Context, token string) error
}
