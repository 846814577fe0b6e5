package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"quitpath/internal/model"
	"quitpath/internal/session"
)

type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*model.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*model.AuthTokens, error)
}

// AuthService forwards login and refresh to the remote API. Tokens are not
// stored here; the app keeps them.
type AuthService struct {
	api AuthAPI
	now func() time.Time
	log *zap.Logger
}

func NewAuthService(api AuthAPI, log *zap.Logger) *AuthService {
	return &AuthService{api: api, now: time.Now, log: log.Named("auth")}
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthTokens, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, model.ErrCredentialsRequired
	}

	tokens, err := s.api.Login(ctx, username, req.Password)
	if err != nil {
		return nil, err
	}
	s.fillExpiry(tokens)

	s.log.Info("login", zap.String("username", username))
	return tokens, nil
}

func (s *AuthService) Refresh(ctx context.Context, req model.RefreshRequest) (*model.AuthTokens, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, model.ErrRefreshTokenRequired
	}

	tokens, err := s.api.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	s.fillExpiry(tokens)
	return tokens, nil
}

// fillExpiry derives ExpiresIn from the access token when the API left it out.
func (s *AuthService) fillExpiry(tokens *model.AuthTokens) {
	if tokens.ExpiresIn > 0 {
		return
	}
	sess, err := session.Decode(tokens.AccessToken, s.now())
	if err != nil {
		s.log.Debug("access token unreadable", zap.Error(err))
		return
	}
	tokens.ExpiresIn = sess.ExpiresIn(s.now())
}
