package service

import (
	"context"
	"sort"

	"quitpath/internal/model"
)

type ChatAPI interface {
	ChatRooms(ctx context.Context, token string) ([]model.ChatRoom, error)
}

type ChatService struct {
	api ChatAPI
}

func NewChatService(api ChatAPI) *ChatService {
	return &ChatService{api: api}
}

// Rooms returns the user's chat rooms, most recently active first, with
// unread totals for the tab badge.
func (s *ChatService) Rooms(ctx context.Context, token string) (*model.ChatRoomListResponse, error) {
	rooms, err := s.api.ChatRooms(ctx, token)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastActivity().After(rooms[j].LastActivity())
	})

	resp := &model.ChatRoomListResponse{Rooms: rooms}
	if resp.Rooms == nil {
		resp.Rooms = []model.ChatRoom{}
	}
	for _, r := range rooms {
		if r.UnreadCount > 0 {
			resp.TotalUnread += r.UnreadCount
			resp.UnreadRooms++
		}
	}
	return resp, nil
}
