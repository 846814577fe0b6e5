package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for the caller's *session.Session
	SessionKey contextKey = "session"
)

// AuthMiddleware verifies the caller's access token and puts the session in the
// request context. Checks Authorization header first (mobile), then falls back
// to the access_token cookie (web).
func AuthMiddleware(verifier *session.Verifier, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			s, err := verifier.Parse(tokenString, now())
			if err != nil {
				if errors.Is(err, session.ErrExpired) {
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSessionFromContext returns the session set by AuthMiddleware.
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*session.Session)
	return s, ok && s != nil
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or "" and false if not found
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := GetSessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.UserID, true
}

// WithSession returns ctx carrying s. Used by callers that authenticate
// outside AuthMiddleware.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}
