package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quitpath/internal/model"
)

type mockChatAPI struct {
	rooms []model.ChatRoom
	err   error
}

func (m *mockChatAPI) ChatRooms(ctx context.Context, token string) ([]model.ChatRoom, error) {
	return m.rooms, m.err
}

func TestChatService_Rooms(t *testing.T) {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	api := &mockChatAPI{rooms: []model.ChatRoom{
		{ID: "old", UpdatedAt: base, UnreadCount: 0},
		{ID: "msg", UpdatedAt: base, UnreadCount: 2,
			LastMessage: &model.ChatMessage{ID: "m1", CreatedAt: base.Add(3 * time.Hour)}},
		{ID: "upd", UpdatedAt: base.Add(time.Hour), UnreadCount: 5},
	}}
	svc := NewChatService(api)

	resp, err := svc.Rooms(context.Background(), "tok")
	require.NoError(t, err)

	ids := []string{}
	for _, r := range resp.Rooms {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"msg", "upd", "old"}, ids)
	assert.Equal(t, 7, resp.TotalUnread)
	assert.Equal(t, 2, resp.UnreadRooms)
}

func TestChatService_RoomsEmpty(t *testing.T) {
	resp, err := NewChatService(&mockChatAPI{}).Rooms(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, resp.Rooms)
	assert.Zero(t, resp.TotalUnread)
}

func TestChatService_RoomsError(t *testing.T) {
	_, err := NewChatService(&mockChatAPI{err: model.ErrUnauthorized}).Rooms(context.Background(), "tok")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
