package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// NotificationService is implemented by *service.NotificationService.
type NotificationService interface {
	List(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID string, ids []int64) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type NotificationHandler struct {
	notifService NotificationService
	log          *zap.Logger
}

func NewNotificationHandler(notifService NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
		log:          log.Named("notification_handler"),
	}
}

// List handles GET /notifications
// Returns the authenticated user's comment and reply notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 0 // service default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	notifications, err := h.notifService.List(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("list notifications", zap.String("user", userID), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PATCH /notifications/read
// Marks specific notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.MarkReadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := h.notifService.MarkRead(r.Context(), userID, req.NotificationIDs)
	if err != nil {
		if errors.Is(err, model.ErrNotificationIDsRequired) {
			httputil.WriteBadRequest(w, "notification_ids is required")
			return
		}
		h.log.Error("mark notifications read", zap.String("user", userID), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to mark notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Notifications marked as read",
	})
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.notifService.MarkAllRead(r.Context(), userID); err != nil {
		h.log.Error("mark all notifications read", zap.String("user", userID), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to mark all notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "All notifications marked as read",
	})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns the count of unread notifications (for badge display).
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notifService.UnreadCount(r.Context(), userID)
	if err != nil {
		h.log.Error("get unread count", zap.String("user", userID), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"unread_count": count,
	})
}
