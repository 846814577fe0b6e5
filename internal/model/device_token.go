package model

import (
	"errors"
	"strings"
	"time"
)

// DeviceToken is a registered push target. A user may have several.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

const (
	PlatformExpo    = "expo"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

var (
	ErrTokenRequired   = errors.New("device token is required")
	ErrInvalidToken    = errors.New("not an Expo push token")
	ErrInvalidPlatform = errors.New("platform must be expo, ios or android")
	ErrTokenNotFound   = errors.New("device token not found")
)

// IsExpoPushToken reports whether token has the Expo push token shape.
func IsExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// Validate normalizes the request and checks it.
func (r *RegisterTokenRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return ErrTokenRequired
	}
	if !IsExpoPushToken(r.Token) {
		return ErrInvalidToken
	}

	r.Platform = strings.ToLower(strings.TrimSpace(r.Platform))
	switch r.Platform {
	case "":
		r.Platform = PlatformExpo
	case PlatformExpo, PlatformIOS, PlatformAndroid:
	default:
		return ErrInvalidPlatform
	}
	return nil
}
