package model

import "time"

// ChatMessage is the preview of the most recent message in a room.
type ChatMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRoom is a conversation between a member and a coach.
type ChatRoom struct {
	ID          string       `json:"id"`
	Coach       *UserSummary `json:"coach,omitempty"`
	Member      *UserSummary `json:"member,omitempty"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// LastActivity is the time used to order rooms in the list.
func (r *ChatRoom) LastActivity() time.Time {
	if r.LastMessage != nil && r.LastMessage.CreatedAt.After(r.UpdatedAt) {
		return r.LastMessage.CreatedAt
	}
	return r.UpdatedAt
}

// ChatRoomListResponse is the aggregated room list shown on the chat tab.
type ChatRoomListResponse struct {
	Rooms       []ChatRoom `json:"rooms"`
	TotalUnread int        `json:"total_unread"`
	UnreadRooms int        `json:"unread_rooms"`
}
