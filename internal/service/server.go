package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP front of the outreach API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer upload bodies can be large, so only the header read is bounded.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start listens on the configured address. A graceful Stop returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting voter-outreach HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests (uploads included) until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping voter-outreach HTTP server")
	return s.httpServer.Shutdown(ctx)
}
