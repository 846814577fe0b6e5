package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quitpath/internal/model"
	"quitpath/internal/queue"
	"quitpath/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type sentPush struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// mockNotifier records pushes instead of sending them.
type mockNotifier struct {
	mu    sync.Mutex
	sent  []sentPush
	calls int
	err   error
}

func (m *mockNotifier) NotifyUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentPush{UserID: userID, Title: title, Body: body, Data: data})
	return nil
}

func (m *mockNotifier) Sent() []sentPush {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentPush(nil), m.sent...)
}

// mockInbox dedupes on event ID like the notifications table does.
type mockInbox struct {
	mu      sync.Mutex
	entries []model.Notification
	err     error
}

func (m *mockInbox) Record(ctx context.Context, n *model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, e := range m.entries {
		if e.EventID == n.EventID {
			return false, nil
		}
	}
	m.entries = append(m.entries, *n)
	return true, nil
}

func (m *mockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================================================================
// Handler
// =============================================================================

func TestHandleEvent_CommentNotifiesPostAuthor(t *testing.T) {
	n := &mockNotifier{}
	h := worker.NewHandler(n, nil, zap.NewNop())

	event := queue.NewCommentCreatedEvent("p1", "c1", "u2", "lan", "u1", "one week!")
	require.NoError(t, h.HandleEvent(context.Background(), event))

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].UserID)
	assert.Equal(t, "New comment on your post", sent[0].Title)
	assert.Equal(t, "lan: one week!", sent[0].Body)
	assert.Equal(t, "p1", sent[0].Data["post_id"])
	assert.Equal(t, "c1", sent[0].Data["comment_id"])
	assert.NotContains(t, sent[0].Data, "parent_comment_id")
}

func TestHandleEvent_ReplyNotifiesParentAuthor(t *testing.T) {
	n := &mockNotifier{}
	h := worker.NewHandler(n, nil, zap.NewNop())

	event := queue.NewReplyCreatedEvent("p1", "c2", "c1", "u3", "", "u2", "proud of you")
	require.NoError(t, h.HandleEvent(context.Background(), event))

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u2", sent[0].UserID)
	assert.Equal(t, "New reply to your comment", sent[0].Title)
	assert.Equal(t, "proud of you", sent[0].Body)
	assert.Equal(t, "c1", sent[0].Data["parent_comment_id"])
}

func TestHandleEvent_Skips(t *testing.T) {
	tests := []struct {
		name  string
		event queue.CommentEvent
	}{
		{"self comment", queue.NewCommentCreatedEvent("p1", "c1", "u1", "", "u1", "me")},
		{"self reply", queue.NewReplyCreatedEvent("p1", "c2", "c1", "u1", "", "u1", "me")},
		{"unknown recipient", queue.NewReplyCreatedEvent("p1", "c2", "c1", "u1", "", "", "me")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &mockNotifier{}
			h := worker.NewHandler(n, nil, zap.NewNop())
			require.NoError(t, h.HandleEvent(context.Background(), tt.event))
			assert.Empty(t, n.Sent())
		})
	}
}

func TestHandleEvent_UnknownType(t *testing.T) {
	h := worker.NewHandler(&mockNotifier{}, nil, zap.NewNop())
	err := h.HandleEvent(context.Background(), queue.CommentEvent{Type: "post_liked", PostID: "p1"})
	assert.Error(t, err)
}

func TestHandleEvent_NotifierError(t *testing.T) {
	boom := errors.New("push down")
	h := worker.NewHandler(&mockNotifier{err: boom}, nil, zap.NewNop())

	err := h.HandleEvent(context.Background(), queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "x"))
	assert.ErrorIs(t, err, boom)
}

func TestHandleEvent_RecordsOnceAndPushesOnce(t *testing.T) {
	n := &mockNotifier{}
	inbox := &mockInbox{}
	h := worker.NewHandler(n, inbox, zap.NewNop())

	event := queue.NewReplyCreatedEvent("p1", "c2", "c1", "u2", "lan", "u1", "same here")
	require.NoError(t, h.HandleEvent(context.Background(), event))
	require.NoError(t, h.HandleEvent(context.Background(), event))

	require.Len(t, inbox.entries, 1)
	got := inbox.entries[0]
	assert.Equal(t, event.ID, got.EventID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "u2", got.ActorID)
	assert.Equal(t, model.NotificationTypeReply, got.Type)
	require.NotNil(t, got.ParentCommentID)
	assert.Equal(t, "c1", *got.ParentCommentID)

	assert.Equal(t, 1, n.Calls())
}

func TestHandleEvent_InboxErrorSkipsPush(t *testing.T) {
	n := &mockNotifier{}
	h := worker.NewHandler(n, &mockInbox{err: errors.New("db down")}, zap.NewNop())

	err := h.HandleEvent(context.Background(), queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "x"))
	assert.ErrorContains(t, err, "db down")
	assert.Zero(t, n.Calls())
}

func TestHandleEvent_SkipsDoNotRecord(t *testing.T) {
	inbox := &mockInbox{}
	h := worker.NewHandler(&mockNotifier{}, inbox, zap.NewNop())

	require.NoError(t, h.HandleEvent(context.Background(), queue.NewCommentCreatedEvent("p1", "c1", "u1", "", "u1", "me")))
	assert.Empty(t, inbox.entries)
}

// =============================================================================
// Manager (end to end over miniredis)
// =============================================================================

func setupStream(t *testing.T) (*redis.Client, *queue.RedisPublisher, *queue.RedisConsumer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, queue.NewPublisher(client, zap.NewNop()), queue.NewConsumer(client, zap.NewNop())
}

func startManager(t *testing.T, consumer queue.Consumer, handler worker.EventHandler) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())

	m := worker.NewManager(consumer, handler, worker.ManagerConfig{
		WorkerCount:  2,
		BlockTimeout: 20 * time.Millisecond,
		ConsumerName: "test",
	}, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("manager did not stop")
		}
	}
}

func TestManager_DeliversAndAcks(t *testing.T) {
	_, pub, con := setupStream(t)
	ctx := context.Background()
	n := &mockNotifier{}

	stop := startManager(t, con, worker.NewHandler(n, nil, zap.NewNop()))

	_, err := pub.PublishComment(ctx, queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "a"))
	require.NoError(t, err)
	_, err = pub.PublishComment(ctx, queue.NewReplyCreatedEvent("p1", "c2", "c1", "u1", "", "u2", "b"))
	require.NoError(t, err)
	_, err = pub.PublishComment(ctx, queue.NewCommentCreatedEvent("p1", "c3", "u1", "", "u1", "self"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		pending, err := con.Pending(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers)
		return err == nil && pending == 0 && len(n.Sent()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	stop()

	recipients := []string{}
	for _, s := range n.Sent() {
		recipients = append(recipients, s.UserID)
	}
	assert.ElementsMatch(t, []string{"u1", "u2"}, recipients)
}

func TestManager_AcksFailedEvents(t *testing.T) {
	_, pub, con := setupStream(t)
	ctx := context.Background()
	n := &mockNotifier{err: errors.New("push down")}

	stop := startManager(t, con, worker.NewHandler(n, nil, zap.NewNop()))
	defer stop()

	_, err := pub.PublishComment(ctx, queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "a"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		pending, err := con.Pending(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers)
		return err == nil && n.Calls() == 1 && pending == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestManager_RecoversPending(t *testing.T) {
	_, pub, con := setupStream(t)
	ctx := context.Background()

	require.NoError(t, con.EnsureGroup(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers))
	_, err := pub.PublishComment(ctx, queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "a"))
	require.NoError(t, err)

	// A previous process read the message as test-1 and crashed before acking.
	msgs, err := con.Read(ctx, queue.StreamComments, queue.ConsumerGroupNotifiers, "test-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	n := &mockNotifier{}
	stop := startManager(t, con, worker.NewHandler(n, nil, zap.NewNop()))
	defer stop()

	assert.Eventually(t, func() bool {
		return len(n.Sent()) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

// stuckConsumer keeps one message pending forever: every ack fails.
type stuckConsumer struct {
	mu           sync.Mutex
	pendingReads int
	reads        int
}

func (c *stuckConsumer) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (c *stuckConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (c *stuckConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingReads++
	return []queue.Message{{
		ID:    "1-0",
		Event: queue.NewCommentCreatedEvent("p1", "c1", "u2", "", "u1", "a"),
	}}, nil
}

func (c *stuckConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	return errors.New("ack refused")
}

func (c *stuckConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	return 1, nil
}

func (c *stuckConsumer) counts() (pendingReads, reads int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingReads, c.reads
}

func TestManager_PendingRecoveryStopsWhenAcksFail(t *testing.T) {
	con := &stuckConsumer{}
	n := &mockNotifier{}

	stop := startManager(t, con, worker.NewHandler(n, nil, zap.NewNop()))

	// Each worker gives up on the stuck batch and moves on to new messages.
	assert.Eventually(t, func() bool {
		_, reads := con.counts()
		return reads >= 2
	}, 3*time.Second, 10*time.Millisecond)
	stop()

	pendingReads, _ := con.counts()
	assert.Equal(t, 2, pendingReads, "one pending read per worker")
	assert.Equal(t, 2, n.Calls())
}
