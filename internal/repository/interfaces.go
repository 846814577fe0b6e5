package repository

import (
	"context"

	"quitpath/internal/model"
)

// DeviceTokenRepository stores Expo push tokens per user. A token belongs to
// at most one user; registering it again moves it.
type DeviceTokenRepository interface {
	// Upsert creates or reassigns a device token
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns a user's tokens, most recently refreshed first
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a user's token. model.ErrTokenNotFound if the user does not own it.
	Delete(ctx context.Context, userID, token string) error
	// DeleteTokens removes tokens the push service reported as unregistered
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}

// NotificationRepository is the comment notification inbox.
type NotificationRepository interface {
	// Create records n unless its EventID was already recorded. Fills ID and
	// CreatedAt on insert.
	Create(ctx context.Context, n *model.Notification) (bool, error)
	List(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error
	MarkAllAsRead(ctx context.Context, userID string) error
	GetUnreadCount(ctx context.Context, userID string) (int, error)
}
