package api

import (
	"context"

	"quitpath/internal/model"
)

const authFields = `
	accessToken
	refreshToken
	expiresIn
	user { id username displayName avatarUrl }
`

const mutationLogin = `
mutation Login($username: String!, $password: String!) {
	login(username: $username, password: $password) {` + authFields + `}
}`

const mutationRefresh = `
mutation RefreshToken($refreshToken: String!) {
	refreshToken(refreshToken: $refreshToken) {` + authFields + `}
}`

type authPayload struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	User         *userNode `json:"user"`
}

func (p authPayload) toModel() *model.AuthTokens {
	return &model.AuthTokens{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		User:         p.User.toModel(),
	}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*model.AuthTokens, error) {
	var resp struct {
		Login authPayload `json:"login"`
	}

	vars := map[string]interface{}{"username": username, "password": password}
	if err := c.run(ctx, "login", "", mutationLogin, vars, &resp, model.ErrInvalidCredentials); err != nil {
		return nil, err
	}
	return resp.Login.toModel(), nil
}

// Refresh rotates the token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.AuthTokens, error) {
	var resp struct {
		RefreshToken authPayload `json:"refreshToken"`
	}

	vars := map[string]interface{}{"refreshToken": refreshToken}
	if err := c.run(ctx, "refreshToken", "", mutationRefresh, vars, &resp, model.ErrUnauthorized); err != nil {
		return nil, err
	}
	return resp.RefreshToken.toModel(), nil
}
