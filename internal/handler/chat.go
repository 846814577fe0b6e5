package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// ChatService is implemented by *service.ChatService.
type ChatService interface {
	Rooms(ctx context.Context, token string) (*model.ChatRoomListResponse, error)
}

type ChatHandler struct {
	chatService ChatService
	log         *zap.Logger
}

func NewChatHandler(chatService ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, log: log.Named("chat_handler")}
}

// Rooms handles GET /chat/rooms
// Returns the caller's rooms, most recently active first.
func (h *ChatHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	rooms, err := h.chatService.Rooms(r.Context(), s.Token)
	if err != nil {
		httputil.WriteUpstreamError(w, h.log.With(zap.String("user", s.UserID)), err, "Failed to get chat rooms")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rooms)
}
