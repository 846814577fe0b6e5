package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 3 * time.Second

// Client is the process-wide Redis handle shared by the forest cache and the
// comment event stream.
type Client struct {
	*redis.Client
	log *zap.Logger
}

// NewClient parses a redis:// URL and returns a client. No connection is made
// until the first command; call Ping to fail fast.
func NewClient(redisURL string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	named := log.Named("redis")
	named.Info("client configured", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Client{Client: redis.NewClient(opts), log: named}, nil
}

// Ping checks connectivity within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.log.Info("closing")
	return c.Client.Close()
}
