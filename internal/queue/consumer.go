package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is one decoded stream entry.
type Message struct {
	ID    string
	Event CommentEvent
}

// Consumer reads comment events as part of a consumer group.
type Consumer interface {
	// EnsureGroup creates the group (and stream) if missing.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read returns new messages for this consumer, blocking up to block.
	// A nil slice with nil error means the block timed out.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending returns messages delivered to this consumer but never acked.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	Ack(ctx context.Context, stream, group string, messageIDs ...string) error

	// Pending returns the group's unacknowledged message count.
	Pending(ctx context.Context, stream, group string) (int64, error)
}

// RedisConsumer implements Consumer using XREADGROUP.
type RedisConsumer struct {
	client *redis.Client
	log    *zap.Logger
}

// NewConsumer creates a Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client, log *zap.Logger) *RedisConsumer {
	return &RedisConsumer{client: client, log: log.Named("consumer")}
}

// EnsureGroup starts the group at "0" so events published before the first
// worker came up are still delivered.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			c.log.Debug("group exists", zap.String("stream", stream), zap.String("group", group))
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}

	c.log.Info("group created", zap.String("stream", stream), zap.String("group", group))
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return c.decode(ctx, stream, group, streams), nil
}

// ReadPending reads from ID "0", which replays this consumer's pending list.
func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
		Block:    -1,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}

	return c.decode(ctx, stream, group, streams), nil
}

// decode parses stream entries. Malformed entries are acked and dropped so
// they do not sit in the pending list forever.
func (c *RedisConsumer) decode(ctx context.Context, stream, group string, streams []redis.XStream) []Message {
	var messages []Message
	for _, s := range streams {
		for _, msg := range s.Messages {
			event, err := ParseCommentEvent(msg.Values)
			if err != nil {
				c.log.Warn("dropping malformed message", zap.String("msg_id", msg.ID), zap.Error(err))
				if ackErr := c.Ack(ctx, stream, group, msg.ID); ackErr != nil {
					c.log.Warn("ack malformed failed", zap.String("msg_id", msg.ID), zap.Error(ackErr))
				}
				continue
			}
			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}
	return messages
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}
