package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"quitpath/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create inserts a notification keyed by its event ID. It returns false when
// the event was already recorded, which happens when a stream message is
// redelivered.
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (event_id, user_id, actor_id, actor_name, type, post_id, comment_id, parent_comment_id, preview)
		VALUES (:event_id, :user_id, :actor_id, :actor_name, :type, :post_id, :comment_id, :parent_comment_id, :preview)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`
	rows, err := r.db.NamedQueryContext(ctx, query, n)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(&n.ID, &n.CreatedAt); err != nil {
		return false, fmt.Errorf("scan notification: %w", err)
	}
	return true, nil
}

// List returns the user's newest notifications.
func (r *notificationRepository) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, event_id, user_id, actor_id, actor_name, type, post_id, comment_id,
		       parent_comment_id, preview, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	notifications := []model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkAsRead marks specific notifications as read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error {
	if len(notificationIDs) == 0 {
		return nil
	}

	query := `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1 AND id = ANY($2)
	`
	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(notificationIDs))
	if err != nil {
		return fmt.Errorf("mark notifications as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications for a user as read.
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1 AND is_read = false
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications.
func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = false
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}
