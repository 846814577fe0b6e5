package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// AuthService is implemented by *service.AuthService.
type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthTokens, error)
	Refresh(ctx context.Context, req model.RefreshRequest) (*model.AuthTokens, error)
}

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	authService AuthService
	now         func() time.Time
	log         *zap.Logger
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(authService AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		now:         time.Now,
		log:         log.Named("auth_handler"),
	}
}

// SessionResponse is returned by GET /me.
type SessionResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	ExpiresIn int    `json:"expires_in"`
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCredentialsRequired):
			httputil.WriteBadRequest(w, "Username and password are required")
		case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrUnauthorized):
			httputil.WriteUnauthorized(w, "Invalid username or password")
		default:
			httputil.WriteUpstreamError(w, h.log, err, "Failed to login")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// Refresh handles token refresh
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenRequired):
			httputil.WriteBadRequest(w, "Refresh token is required")
		case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrInvalidCredentials):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid refresh token")
		default:
			httputil.WriteUpstreamError(w, h.log, err, "Failed to refresh tokens")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokens)
}

// Me returns what the access token says about the caller
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SessionResponse{
		UserID:    s.UserID,
		Username:  s.Username,
		ExpiresIn: s.ExpiresIn(h.now()),
	})
}
