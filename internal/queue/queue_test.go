package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCommentEvent_RoundTrip(t *testing.T) {
	event := NewReplyCreatedEvent("p1", "c2", "c1", "u2", "minh", "u1", "keep going")

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventReplyCreated, values["type"])

	parsed, err := ParseCommentEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)
	assert.NotEmpty(t, parsed.ID)
}

func TestParseCommentEvent_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"missing data", map[string]interface{}{"type": EventCommentCreated}},
		{"not json", map[string]interface{}{"data": "{"}},
		{"no post", map[string]interface{}{"data": `{"type":"comment_created"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommentEvent(tt.values)
			assert.Error(t, err)
		})
	}
}

func TestCommentEvent_SelfAuthored(t *testing.T) {
	assert.True(t, NewCommentCreatedEvent("p1", "c1", "u1", "", "u1", "hi").SelfAuthored())
	assert.False(t, NewCommentCreatedEvent("p1", "c1", "u1", "", "u2", "hi").SelfAuthored())
	assert.False(t, NewCommentCreatedEvent("p1", "c1", "u1", "", "", "hi").SelfAuthored())
}

func TestPreview_TruncatesRunes(t *testing.T) {
	long := strings.Repeat("ă", 200)
	p := preview(long)
	assert.Equal(t, previewLength, len([]rune(p)))
	assert.True(t, strings.HasSuffix(p, "…"))
	assert.Equal(t, "short", preview("short"))
}

func TestPublishReadAck(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	pub := NewPublisher(client, zap.NewNop())
	con := NewConsumer(client, zap.NewNop())

	require.NoError(t, con.EnsureGroup(ctx, StreamComments, ConsumerGroupNotifiers))
	// Second call hits BUSYGROUP and must succeed.
	require.NoError(t, con.EnsureGroup(ctx, StreamComments, ConsumerGroupNotifiers))

	event := NewCommentCreatedEvent("p1", "c1", "u2", "lan", "u1", "day 3 smoke-free")
	id, err := pub.PublishComment(ctx, event)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := con.Read(ctx, StreamComments, ConsumerGroupNotifiers, "w1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, event, msgs[0].Event)

	pending, err := con.Pending(ctx, StreamComments, ConsumerGroupNotifiers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	// Unacked messages are replayed to the same consumer.
	replay, err := con.ReadPending(ctx, StreamComments, ConsumerGroupNotifiers, "w1", 10)
	require.NoError(t, err)
	require.Len(t, replay, 1)
	assert.Equal(t, id, replay[0].ID)

	require.NoError(t, con.Ack(ctx, StreamComments, ConsumerGroupNotifiers, id))

	pending, err = con.Pending(ctx, StreamComments, ConsumerGroupNotifiers)
	require.NoError(t, err)
	assert.Zero(t, pending)

	replay, err = con.ReadPending(ctx, StreamComments, ConsumerGroupNotifiers, "w1", 10)
	require.NoError(t, err)
	assert.Empty(t, replay)
}

func TestRead_DropsMalformed(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	con := NewConsumer(client, zap.NewNop())
	require.NoError(t, con.EnsureGroup(ctx, StreamComments, ConsumerGroupNotifiers))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamComments,
		Values: map[string]interface{}{"type": "junk", "data": "not json"},
	}).Err())

	msgs, err := con.Read(ctx, StreamComments, ConsumerGroupNotifiers, "w1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	pending, err := con.Pending(ctx, StreamComments, ConsumerGroupNotifiers)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestAck_NoIDs(t *testing.T) {
	con := NewConsumer(setupRedis(t), zap.NewNop())
	assert.NoError(t, con.Ack(context.Background(), StreamComments, ConsumerGroupNotifiers))
}
