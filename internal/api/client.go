// Package api is the GraphQL client for the remote cessation-platform API.
// Every network round trip the client core makes goes through here.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"quitpath/internal/model"
)

// DefaultTimeout bounds a single request when the caller sets none.
const DefaultTimeout = 15 * time.Second

// Client wraps the GraphQL transport with bearer auth, a per-request timeout
// and error mapping onto model sentinel errors.
type Client struct {
	gql     *graphql.Client
	timeout time.Duration
	log     *zap.Logger
}

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client // optional
}

// NewClient creates a client for the given GraphQL endpoint.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	named := log.Named("api")
	gql := graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(httpClient))
	gql.Log = func(s string) { named.Debug(s) }

	return &Client{
		gql:     gql,
		timeout: cfg.Timeout,
		log:     named,
	}
}

// run executes one operation. token may be empty for public operations.
// notFound is the sentinel returned when the API reports a missing resource.
func (c *Client) run(ctx context.Context, op, token, query string, vars map[string]interface{}, resp interface{}, notFound error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	err := c.gql.Run(ctx, req, resp)
	if err != nil {
		mapped := classify(err, notFound)
		c.log.Warn("operation failed",
			zap.String("op", op),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", op, mapped)
	}

	c.log.Debug("operation ok", zap.String("op", op), zap.Duration("duration", time.Since(start)))
	return nil
}

// classify maps a transport or GraphQL error onto a sentinel the handlers
// understand. The transport only exposes the first error message, so matching
// is done on well-known fragments.
func classify(err error, notFound error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "jwt expired"),
		strings.Contains(msg, "token expired"):
		return wrap(model.ErrUnauthorized, err)
	case strings.Contains(msg, "invalid credentials"):
		return wrap(model.ErrInvalidCredentials, err)
	case strings.Contains(msg, "status code: 403"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "not allowed"),
		strings.Contains(msg, "not the owner"):
		return wrap(model.ErrForbidden, err)
	case notFound != nil && (strings.Contains(msg, "not found") || strings.Contains(msg, "status code: 404")):
		return wrap(notFound, err)
	}
	return err
}

func wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %v", sentinel, cause)
}
