package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quitpath/internal/handler"
	"quitpath/internal/httputil"
	"quitpath/internal/session"
	authmw "quitpath/internal/transport/http/middleware"
)

// Pinger is a backing service checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	CommentHandler      *handler.CommentHandler
	LikeHandler         *handler.LikeHandler
	ChatHandler         *handler.ChatHandler
	PaymentHandler      *handler.PaymentHandler
	DeviceHandler       *handler.DeviceHandler
	NotificationHandler *handler.NotificationHandler

	// Checks maps a backing service name to its health check.
	Checks map[string]Pinger

	// Verifier checks access token signatures on protected routes.
	Verifier *session.Verifier

	// Now is the clock used to reject expired tokens; defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Liveness: the process is up.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Readiness: every backing service answers.
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(cfg.Checks))
		for name, p := range cfg.Checks {
			if err := p.Ping(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Verifier, cfg.Now))

		r.Get("/me", cfg.AuthHandler.Me)

		r.Route("/posts/{id}", func(r chi.Router) {
			r.Get("/comments", cfg.CommentHandler.List)
			r.Post("/comments", cfg.CommentHandler.Create)
			r.Patch("/comments/{commentId}", cfg.CommentHandler.Update)
			r.Delete("/comments/{commentId}", cfg.CommentHandler.Delete)

			r.Get("/like", cfg.LikeHandler.State)
			r.Post("/like", cfg.LikeHandler.Like)
			r.Delete("/like", cfg.LikeHandler.Unlike)
		})

		r.Get("/chat/rooms", cfg.ChatHandler.Rooms)
		r.Get("/payments/{id}", cfg.PaymentHandler.Status)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Patch("/read", cfg.NotificationHandler.MarkRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", cfg.DeviceHandler.List)
			r.Post("/", cfg.DeviceHandler.Register)
			r.Delete("/{token}", cfg.DeviceHandler.Remove)
		})
	})

	return r
}
