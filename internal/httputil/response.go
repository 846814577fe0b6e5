package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"quitpath/internal/model"
)

// Error codes returned in the error envelope
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimout = "UPSTREAM_TIMEOUT"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a comment.
const maxBodyBytes = 64 << 10

// ErrorResponse is the envelope for every error:
// {"error": {"code": "ERROR_CODE", "message": "Human readable message"}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// Headers are already sent; nothing useful to do on failure.
		_ = json.NewEncoder(w).Encode(data)
	}
}

func WriteError(w http.ResponseWriter, status int, code string, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// DecodeJSON reads a size-limited JSON body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return err
	}
	return nil
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// WriteUnauthorizedWithCode writes a 401 with a token-specific code so the
// app knows whether to refresh or log out.
func WriteUnauthorizedWithCode(w http.ResponseWriter, code string, message string) {
	WriteError(w, http.StatusUnauthorized, code, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, ErrCodeConflict, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// WriteUpstreamError maps errors every remote-API call can return. Handlers
// match their own sentinels first and fall through to this.
func WriteUpstreamError(w http.ResponseWriter, log *zap.Logger, err error, message string) {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Session rejected by the server")
	case errors.Is(err, model.ErrForbidden):
		WriteForbidden(w, "Not allowed")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(message, zap.Error(err))
		WriteError(w, http.StatusGatewayTimeout, ErrCodeUpstreamTimout, "The server took too long to respond")
	case errors.Is(err, context.Canceled):
		// Client went away.
	default:
		log.Error(message, zap.Error(err))
		WriteError(w, http.StatusBadGateway, ErrCodeUpstream, message)
	}
}
