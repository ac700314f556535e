// Package server exposes an answerit engine over HTTP.
//
// Routes:
//
//	POST /api/    answer a question (JSON or multipart/form-data)
//	GET  /healthz corpus sizes and settings
//
// Each question is answered on a bounded worker pool so that slow
// embedding calls cannot exhaust the listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/core"
)

const (
	defaultAddr         = ":8000"
	defaultWorkers      = 32
	defaultMaxBodyBytes = 16 << 20
)

var (
	// ErrAskerRequired is returned when no question answerer is supplied.
	ErrAskerRequired = errors.New("asker required")

	// ErrInvalidWorkers is returned for a worker count below one.
	ErrInvalidWorkers = errors.New("workers must be at least 1")
)

// Asker answers questions. *answerit.Engine implements it.
type Asker interface {
	Ask(ctx context.Context, q answerit.Question) (*core.Answer, error)
	Stats() answerit.Stats
}

// Server manages the HTTP server and routes.
type Server struct {
	asker        Asker
	addr         string
	workers      int
	maxBodyBytes int64
	pool         *ants.Pool
	router       *http.ServeMux
	server       *http.Server
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithAddr sets the listen address. Default is ":8000".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithWorkers sets how many questions are answered concurrently.
func WithWorkers(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			return ErrInvalidWorkers
		}
		s.workers = n
		return nil
	}
}

// WithMaxBodyBytes limits request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) error {
		s.maxBodyBytes = n
		return nil
	}
}

// New creates a new HTTP server for asker.
func New(asker Asker, opts ...Option) (*Server, error) {
	if asker == nil {
		return nil, ErrAskerRequired
	}

	s := &Server{
		asker:        asker,
		addr:         defaultAddr,
		workers:      defaultWorkers,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	s.pool = pool

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "address", s.addr, "workers", s.workers)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and its worker pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	err := s.server.Shutdown(ctx)
	s.pool.Release()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Release frees the worker pool of a server that was never started.
func (s *Server) Release() {
	s.pool.Release()
}
