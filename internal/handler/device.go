package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// DeviceService is implemented by *service.NotificationService.
type DeviceService interface {
	RegisterDevice(ctx context.Context, userID string, req model.RegisterTokenRequest) error
	RemoveDevice(ctx context.Context, userID, token string) error
	Devices(ctx context.Context, userID string) ([]model.DeviceToken, error)
}

type DeviceHandler struct {
	deviceService DeviceService
	log           *zap.Logger
}

func NewDeviceHandler(deviceService DeviceService, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService, log: log.Named("device_handler")}
}

// Register handles POST /devices
// Stores the Expo push token for the authenticated user.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	err := h.deviceService.RegisterDevice(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTokenRequired):
			httputil.WriteBadRequest(w, "Device token is required")
		case errors.Is(err, model.ErrInvalidToken):
			httputil.WriteBadRequest(w, "Not an Expo push token")
		case errors.Is(err, model.ErrInvalidPlatform):
			httputil.WriteBadRequest(w, "Platform must be expo, ios or android")
		default:
			h.log.Error("register device", zap.String("user", userID), zap.Error(err))
			httputil.WriteInternalError(w, "Failed to register device")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Device registered",
	})
}

// List handles GET /devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	devices, err := h.deviceService.Devices(r.Context(), userID)
	if err != nil {
		h.log.Error("list devices", zap.String("user", userID), zap.Error(err))
		httputil.WriteInternalError(w, "Failed to get devices")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

// Remove handles DELETE /devices/:token
func (h *DeviceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	// Expo tokens contain brackets, which clients percent-encode.
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid device token")
		return
	}

	err = h.deviceService.RemoveDevice(r.Context(), userID, token)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTokenRequired):
			httputil.WriteBadRequest(w, "Device token is required")
		case errors.Is(err, model.ErrTokenNotFound):
			httputil.WriteNotFound(w, "Device not found")
		default:
			h.log.Error("remove device", zap.String("user", userID), zap.Error(err))
			httputil.WriteInternalError(w, "Failed to remove device")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
