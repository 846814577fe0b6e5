package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types on the comment stream
const (
	EventCommentCreated = "comment_created"
	EventReplyCreated   = "reply_created"
)

const (
	StreamComments = "stream:comments"

	ConsumerGroupNotifiers = "comment_notifiers"
)

// previewLength caps the comment excerpt carried in an event.
const previewLength = 80

// CommentEvent is published after the API accepts a new comment or reply.
// RecipientID is the user to notify: the post author for a top-level
// comment, the parent comment's author for a reply. It may be empty when
// the recipient is unknown, in which case no notification is sent.
type CommentEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	PostID          string  `json:"post_id"`
	CommentID       string  `json:"comment_id"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`

	ActorID     string `json:"actor_id"`
	ActorName   string `json:"actor_name,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
	Preview     string `json:"preview,omitempty"`
}

// NewCommentCreatedEvent notifies a post author about a top-level comment.
func NewCommentCreatedEvent(postID, commentID, actorID, actorName, postAuthorID, content string) CommentEvent {
	return CommentEvent{
		ID:          uuid.NewString(),
		Type:        EventCommentCreated,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		CommentID:   commentID,
		ActorID:     actorID,
		ActorName:   actorName,
		RecipientID: postAuthorID,
		Preview:     preview(content),
	}
}

// NewReplyCreatedEvent notifies a comment author about a reply.
func NewReplyCreatedEvent(postID, commentID, parentID, actorID, actorName, parentAuthorID, content string) CommentEvent {
	return CommentEvent{
		ID:              uuid.NewString(),
		Type:            EventReplyCreated,
		Timestamp:       time.Now().Unix(),
		PostID:          postID,
		CommentID:       commentID,
		ParentCommentID: &parentID,
		ActorID:         actorID,
		ActorName:       actorName,
		RecipientID:     parentAuthorID,
		Preview:         preview(content),
	}
}

// SelfAuthored reports whether the actor would be notifying themselves.
func (e CommentEvent) SelfAuthored() bool {
	return e.RecipientID != "" && e.RecipientID == e.ActorID
}

// ToMap converts the event to XADD field-value pairs. The full event is JSON
// in "data"; "type" is duplicated for XRANGE inspection.
func (e CommentEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseCommentEvent decodes a stream message's values.
func ParseCommentEvent(values map[string]interface{}) (CommentEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return CommentEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event CommentEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return CommentEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" || event.PostID == "" {
		return CommentEvent{}, fmt.Errorf("incomplete event %q", event.ID)
	}
	return event, nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength-1]) + "…"
}
