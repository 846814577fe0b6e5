package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quitpath/internal/model"
	"quitpath/internal/queue"
)

// Notifier delivers a push notification to every device a user registered.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

// Inbox records notifications. Record returns false for an event it has
// already seen.
type Inbox interface {
	Record(ctx context.Context, n *model.Notification) (bool, error)
}

// Handler turns comment events into inbox entries and push notifications.
type Handler struct {
	notifier Notifier
	inbox    Inbox // may be nil
	log      *zap.Logger
}

func NewHandler(notifier Notifier, inbox Inbox, log *zap.Logger) *Handler {
	return &Handler{notifier: notifier, inbox: inbox, log: log.Named("handler")}
}

// HandleEvent routes an event by type. Unknown types return an error; the
// manager still acks them.
func (h *Handler) HandleEvent(ctx context.Context, event queue.CommentEvent) error {
	start := time.Now()

	var title, kind string
	switch event.Type {
	case queue.EventCommentCreated:
		title, kind = "New comment on your post", model.NotificationTypeComment
	case queue.EventReplyCreated:
		title, kind = "New reply to your comment", model.NotificationTypeReply
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if event.RecipientID == "" {
		h.log.Debug("no recipient", zap.String("event", event.ID), zap.String("type", event.Type))
		return nil
	}
	if event.SelfAuthored() {
		h.log.Debug("skip self notification", zap.String("event", event.ID), zap.String("user", event.ActorID))
		return nil
	}

	if h.inbox != nil {
		inserted, err := h.inbox.Record(ctx, &model.Notification{
			EventID:         event.ID,
			UserID:          event.RecipientID,
			ActorID:         event.ActorID,
			ActorName:       event.ActorName,
			Type:            kind,
			PostID:          event.PostID,
			CommentID:       event.CommentID,
			ParentCommentID: event.ParentCommentID,
			Preview:         event.Preview,
		})
		if err != nil {
			return fmt.Errorf("record notification: %w", err)
		}
		if !inserted {
			// Redelivery of an event that was already pushed.
			h.log.Debug("duplicate event", zap.String("event", event.ID))
			return nil
		}
	}

	body := event.Preview
	if event.ActorName != "" {
		body = event.ActorName + ": " + event.Preview
	}

	data := map[string]string{
		"type":       event.Type,
		"post_id":    event.PostID,
		"comment_id": event.CommentID,
	}
	if event.ParentCommentID != nil {
		data["parent_comment_id"] = *event.ParentCommentID
	}

	if err := h.notifier.NotifyUser(ctx, event.RecipientID, title, body, data); err != nil {
		return fmt.Errorf("notify %s: %w", event.RecipientID, err)
	}

	h.log.Debug("notified",
		zap.String("event", event.ID),
		zap.String("type", event.Type),
		zap.String("recipient", event.RecipientID),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
