package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"quitpath/internal/model"
	"quitpath/internal/repository"
)

// PushSender delivers one notification to a set of device tokens.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushResult, error)
}

// NotificationService owns the user's push devices and notification inbox,
// and sends comment notifications to the devices.
type NotificationService struct {
	tokenRepo repository.DeviceTokenRepository
	inbox     repository.NotificationRepository
	push      PushSender // may be nil when push is disabled
	log       *zap.Logger
}

func NewNotificationService(tokenRepo repository.DeviceTokenRepository, inbox repository.NotificationRepository, push PushSender, log *zap.Logger) *NotificationService {
	return &NotificationService{
		tokenRepo: tokenRepo,
		inbox:     inbox,
		push:      push,
		log:       log.Named("notifications"),
	}
}

// RegisterDevice stores the token for userID. A token seen before under a
// different user is moved, since the device changed hands.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req model.RegisterTokenRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.tokenRepo.Upsert(ctx, userID, req.Token, req.Platform); err != nil {
		return err
	}
	s.log.Debug("device registered", zap.String("user", userID), zap.String("platform", req.Platform))
	return nil
}

// RemoveDevice forgets one of the user's tokens, e.g. on logout.
func (s *NotificationService) RemoveDevice(ctx context.Context, userID, token string) error {
	if token == "" {
		return model.ErrTokenRequired
	}
	return s.tokenRepo.Delete(ctx, userID, token)
}

func (s *NotificationService) Devices(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	return s.tokenRepo.GetByUserID(ctx, userID)
}

// NotifyUser pushes to every device the user registered. Tokens Expo reports
// as unregistered are deleted.
func (s *NotificationService) NotifyUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	if s.push == nil {
		return nil
	}

	devices, err := s.tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}

	result, err := s.push.Send(ctx, tokens, title, body, data)
	if result != nil && len(result.Unregistered) > 0 {
		n, derr := s.tokenRepo.DeleteTokens(ctx, result.Unregistered)
		if derr != nil {
			s.log.Warn("prune unregistered tokens failed", zap.String("user", userID), zap.Error(derr))
		} else {
			s.log.Info("pruned unregistered tokens", zap.String("user", userID), zap.Int64("count", n))
		}
	}
	if err != nil {
		return fmt.Errorf("push to %d devices: %w", len(tokens), err)
	}
	return nil
}

// Record adds n to the recipient's inbox. It returns false if the event was
// recorded before.
func (s *NotificationService) Record(ctx context.Context, n *model.Notification) (bool, error) {
	return s.inbox.Create(ctx, n)
}

// List returns the newest notifications and the unread badge count. limit is
// clamped to [1, MaxNotificationLimit]; 0 means the default.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error) {
	switch {
	case limit <= 0:
		limit = model.DefaultNotificationLimit
	case limit > model.MaxNotificationLimit:
		limit = model.MaxNotificationLimit
	}

	notifications, err := s.inbox.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.inbox.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.NotificationListResponse{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []int64) error {
	if len(ids) == 0 {
		return model.ErrNotificationIDsRequired
	}
	return s.inbox.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.inbox.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.inbox.GetUnreadCount(ctx, userID)
}
