package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crystaltides/internal/application"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server runs the HTTP API under the service manager lifecycle.
type Server struct {
	srv    *http.Server
	logger application.Logger
}

func NewServer(addr string, handler http.Handler, logger application.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

func (s *Server) Init() error {
	if s.srv.Addr == "" {
		return errors.New("http address is required")
	}
	return nil
}

func (s *Server) Run(_ context.Context) {
	s.logger.Info("HTTP API listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server error: %v", err)
	}
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown: %v", err)
	}
}
