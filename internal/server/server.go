// Package server hosts the admin API, the metrics endpoint and the bundled
// admin UI behind one http.Server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Past-Tang/x/internal/config"
	"log/slog"
)

// Server wraps the HTTP listener for the admin surface.
type Server struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
	http            *http.Server
}

// New builds the server from config. Gateway calls run inside request
// handlers for the manual-trigger endpoints, so the write timeout has to
// outlast a paced gateway round trip.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler) *Server {
	return &Server{
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
		http: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
	}
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("listening",
		"addr", s.http.Addr,
		"read_timeout", s.http.ReadTimeout,
		"write_timeout", s.http.WriteTimeout,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by the configured timeout so
// a hung gateway call cannot stall process exit.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.logger.Info("draining connections", "timeout", s.shutdownTimeout)
	return s.http.Shutdown(ctx)
}
