// Package session reads the access tokens the remote API issues.
//
// Requests are authenticated with a Verifier, which checks the HMAC signature
// with the secret shared with the API before trusting any claim. Decode skips
// that check and is only for tokens this process received from the API itself.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("malformed access token")
	ErrSignature = errors.New("access token signature invalid")
	ErrExpired   = errors.New("access token expired")
)

// Session is what the client core knows about the caller.
type Session struct {
	UserID    string
	Username  string
	ExpiresAt time.Time // zero when the token has no exp claim
	Token     string
}

// claims accepts both "sub" and the older "user_id" claim, string or number.
type claims struct {
	jwt.RegisteredClaims
	UserID   interface{} `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
}

// Verifier authenticates access tokens signed with a shared HMAC secret.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	// exp is checked in fromClaims against the caller's clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithoutClaimsValidation(),
	)
	return &Verifier{key: []byte(secret), parser: parser}
}

// Parse verifies token's signature, then rejects it if it carries no user or
// expired before now.
func (v *Verifier) Parse(token string, now time.Time) (*Session, error) {
	if len(v.key) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrSignature)
	}

	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return fromClaims(token, c, now)
}

var unverified = jwt.NewParser()

// Decode reads token without checking its signature. Never use it to
// authenticate a request.
func Decode(token string, now time.Time) (*Session, error) {
	var c claims
	if _, _, err := unverified.ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromClaims(token, c, now)
}

func fromClaims(token string, c claims, now time.Time) (*Session, error) {
	userID := c.Subject
	if userID == "" {
		userID = stringify(c.UserID)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrMalformed)
	}

	s := &Session{UserID: userID, Username: c.Username, Token: token}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
		if !now.Before(s.ExpiresAt) {
			return s, ErrExpired
		}
	}
	return s, nil
}

// ExpiresIn returns the seconds left on the token, or 0 when unknown.
func (s *Session) ExpiresIn(now time.Time) int {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

func stringify(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
