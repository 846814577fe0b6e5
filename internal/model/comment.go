package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Comment is one node of a post's comment forest.
// Replies are owned by their parent and hold only nodes whose ParentCommentID
// equals the parent's ID.
type Comment struct {
	ID              string       `json:"id"`
	PostID          string       `json:"post_id,omitempty"`
	Content         string       `json:"content"`
	Author          *UserSummary `json:"author,omitempty"`
	ParentCommentID *string      `json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	Replies         []Comment    `json:"replies"`
}

// IsTopLevel reports whether the comment has no parent.
func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil || *c.ParentCommentID == ""
}

// CreatedComment is the create-comment response: the new node plus the
// author of the post it was left on (used to route notifications).
type CreatedComment struct {
	Comment
	PostAuthorID string `json:"post_author_id,omitempty"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentListResponse is returned by GET /posts/{id}/comments.
type CommentListResponse struct {
	PostID   string    `json:"post_id"`
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// Comment constraints
const (
	MaxCommentLength = 2200
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not the owner of this comment")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrPostNotFound    = errors.New("post not found")
)

// NormalizeContent trims surrounding whitespace and enforces the length limit
// in characters, not bytes.
func NormalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentRequired
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}
