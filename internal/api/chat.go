package api

import (
	"context"
	"time"

	"quitpath/internal/model"
)

const queryChatRooms = `
query ChatRooms {
	myChatRooms {
		id
		coach { id username displayName avatarUrl }
		member { id username displayName avatarUrl }
		lastMessage { id senderId content createdAt }
		unreadCount
		updatedAt
	}
}`

type chatRoomNode struct {
	ID          string    `json:"id"`
	Coach       *userNode `json:"coach"`
	Member      *userNode `json:"member"`
	LastMessage *struct {
		ID        string    `json:"id"`
		SenderID  string    `json:"senderId"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"lastMessage"`
	UnreadCount int       `json:"unreadCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChatRooms lists the session user's conversations in server order.
func (c *Client) ChatRooms(ctx context.Context, token string) ([]model.ChatRoom, error) {
	var resp struct {
		MyChatRooms []chatRoomNode `json:"myChatRooms"`
	}
	if err := c.run(ctx, "myChatRooms", token, queryChatRooms, nil, &resp, nil); err != nil {
		return nil, err
	}

	rooms := make([]model.ChatRoom, len(resp.MyChatRooms))
	for i, n := range resp.MyChatRooms {
		rooms[i] = model.ChatRoom{
			ID:          n.ID,
			Coach:       n.Coach.toModel(),
			Member:      n.Member.toModel(),
			UnreadCount: n.UnreadCount,
			UpdatedAt:   n.UpdatedAt,
		}
		if m := n.LastMessage; m != nil {
			rooms[i].LastMessage = &model.ChatMessage{
				ID:        m.ID,
				SenderID:  m.SenderID,
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
			}
		}
	}
	return rooms, nil
}
