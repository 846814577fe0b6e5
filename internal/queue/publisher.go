package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher appends comment events to a stream.
type Publisher interface {
	// Publish returns the message ID Redis assigned.
	Publish(ctx context.Context, stream string, event CommentEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher with XADD.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
	log    *zap.Logger
}

// DefaultStreamMaxLen approximately caps the stream so it cannot grow unbounded.
const DefaultStreamMaxLen = 10000

// NewPublisher creates a Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, maxLen: DefaultStreamMaxLen, log: log.Named("publisher")}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, event CommentEvent) (string, error) {
	start := time.Now()

	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		p.log.Warn("publish failed", zap.String("stream", stream), zap.String("type", event.Type), zap.Error(err))
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	p.log.Debug("published",
		zap.String("stream", stream),
		zap.String("type", event.Type),
		zap.String("msg_id", messageID),
		zap.String("post", event.PostID),
		zap.String("comment", event.CommentID),
		zap.Duration("duration", time.Since(start)),
	)
	return messageID, nil
}

// PublishComment publishes to the comment stream.
func (p *RedisPublisher) PublishComment(ctx context.Context, event CommentEvent) (string, error) {
	return p.Publish(ctx, StreamComments, event)
}
