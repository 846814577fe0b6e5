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

// LikeService is implemented by *service.LikeService.
type LikeService interface {
	Like(ctx context.Context, token, userID, postID string) (*model.ToggleLikeResponse, error)
	Unlike(ctx context.Context, token, userID, postID string) (*model.ToggleLikeResponse, error)
	State(userID, postID string) (model.ToggleLikeResponse, bool)
}

type LikeHandler struct {
	likeService LikeService
	log         *zap.Logger
}

func NewLikeHandler(likeService LikeService, log *zap.Logger) *LikeHandler {
	return &LikeHandler{likeService: likeService, log: log.Named("like_handler")}
}

// Like handles POST /posts/:id/like
func (h *LikeHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

// Unlike handles DELETE /posts/:id/like
func (h *LikeHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

// State handles GET /posts/:id/like
// Returns the local like state, 404 if this process has never seen a toggle.
func (h *LikeHandler) State(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	state, ok := h.likeService.State(userID, chi.URLParam(r, "id"))
	if !ok {
		httputil.WriteNotFound(w, "No local like state for this post")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (h *LikeHandler) toggle(w http.ResponseWriter, r *http.Request, like bool) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID := chi.URLParam(r, "id")

	var (
		resp *model.ToggleLikeResponse
		err  error
	)
	if like {
		resp, err = h.likeService.Like(r.Context(), s.Token, s.UserID, postID)
	} else {
		resp, err = h.likeService.Unlike(r.Context(), s.Token, s.UserID, postID)
	}
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		httputil.WriteUpstreamError(w, h.log.With(zap.String("post", postID)), err, "Failed to update like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
