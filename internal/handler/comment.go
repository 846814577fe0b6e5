package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// CommentService is implemented by *service.CommentService.
type CommentService interface {
	List(ctx context.Context, token, postID string) (*model.CommentListResponse, error)
	Create(ctx context.Context, token, userID, postID string, req model.CreateCommentRequest) (*model.Comment, error)
	Update(ctx context.Context, token, postID, commentID string, req model.UpdateCommentRequest) (*model.Comment, error)
	Delete(ctx context.Context, token, postID, commentID string) error
}

type CommentHandler struct {
	commentService CommentService
	log            *zap.Logger
}

func NewCommentHandler(commentService CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log.Named("comment_handler"),
	}
}

// List handles GET /posts/:id/comments
// Returns the post's comment forest.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID := chi.URLParam(r, "id")

	resp, err := h.commentService.List(r.Context(), s.Token, postID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		default:
			httputil.WriteUpstreamError(w, h.log, err, "Failed to get comments")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Create handles POST /posts/:id/comments
// Creates a comment or, with parent_comment_id, a reply.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID := chi.URLParam(r, "id")

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), s.Token, s.UserID, postID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Parent comment not found")
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			httputil.WriteUpstreamError(w, h.log.With(zap.String("user", s.UserID), zap.String("post", postID)), err, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Update handles PATCH /posts/:id/comments/:commentId
// Updates a comment's content (only owner can update).
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	var req model.UpdateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Update(r.Context(), s.Token, postID, commentID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only edit your own comments")
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			httputil.WriteUpstreamError(w, h.log.With(zap.String("user", s.UserID), zap.String("comment", commentID)), err, "Failed to update comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /posts/:id/comments/:commentId
// Deletes a comment and its replies (only owner can delete).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID := chi.URLParam(r, "id")
	commentID := chi.URLParam(r, "commentId")

	err := h.commentService.Delete(r.Context(), s.Token, postID, commentID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only delete your own comments")
		default:
			httputil.WriteUpstreamError(w, h.log.With(zap.String("user", s.UserID), zap.String("comment", commentID)), err, "Failed to delete comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Comment deleted successfully",
	})
}
