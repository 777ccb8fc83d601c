package app

import (
	"context"

	"support_chat_service/internal/directory/repository"
)

// directoryTokens adapt the directory account store to the push fallback
type directoryTokens struct {
	users repository.UserRepository
}

// NewDirectoryTokens create a DeviceTokenSource over the directory store
func NewDirectoryTokens(users repository.UserRepository) DeviceTokenSource {
	return &directoryTokens{users: users}
}

func (d *directoryTokens) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	return d.users.DeviceTokens(ctx, userID)
}

func (d *directoryTokens) PruneTokens(ctx context.Context, userID string, invalid []string) error {
	return d.users.RemoveDeviceTokens(ctx, userID, invalid)
}
