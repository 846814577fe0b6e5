package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server is the BFF's HTTP listener.
type Server struct {
	srv *stdhttp.Server
	log *zap.Logger
}

func NewServer(port string, handler stdhttp.Handler, log *zap.Logger) *Server {
	return &Server{
		srv: &stdhttp.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			// Payment polling holds a request open for up to the poll timeout.
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  2 * time.Minute,
		},
		log: log.Named("server"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
