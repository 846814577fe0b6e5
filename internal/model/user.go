package model

import (
	"errors"
)

// UserSummary is the read-only author reference carried by comments and chat rooms.
type UserSummary struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthTokens is what the remote API hands back after login or refresh.
type AuthTokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Seconds until access token expires
	User         *UserSummary `json:"user,omitempty"`
}

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

var (
	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrCredentialsRequired  = errors.New("username and password are required")
	ErrRefreshTokenRequired = errors.New("refresh token is required")

	// ErrUnauthorized is returned when the remote API rejects the session
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the session may not act on the resource
	ErrForbidden = errors.New("forbidden")
)
