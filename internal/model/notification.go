package model

import (
	"errors"
	"time"
)

// Notification types
const (
	NotificationTypeComment = "comment"
	NotificationTypeReply   = "reply"
)

// Notification is one inbox entry: someone commented on the user's post or
// replied to the user's comment.
type Notification struct {
	ID              int64     `db:"id" json:"id"`
	EventID         string    `db:"event_id" json:"-"`
	UserID          string    `db:"user_id" json:"-"` // Recipient
	ActorID         string    `db:"actor_id" json:"actor_id"`
	ActorName       string    `db:"actor_name" json:"actor_name,omitempty"`
	Type            string    `db:"type" json:"type"`
	PostID          string    `db:"post_id" json:"post_id"`
	CommentID       string    `db:"comment_id" json:"comment_id"`
	ParentCommentID *string   `db:"parent_comment_id" json:"parent_comment_id,omitempty"`
	Preview         string    `db:"preview" json:"preview"`
	IsRead          bool      `db:"is_read" json:"is_read"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NotificationListResponse is the inbox, newest first.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	// Unread count for badge
	UnreadCount int `json:"unread_count"`
}

// MarkReadRequest is the request body for marking notifications as read.
type MarkReadRequest struct {
	NotificationIDs []int64 `json:"notification_ids"`
}

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

var ErrNotificationIDsRequired = errors.New("notification_ids is required")
