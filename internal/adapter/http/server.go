// Package http runs the services' HTTP listeners: the public handler and the
// ops listener with health, readiness and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps an http.Server with start and graceful shutdown logging.
type Server struct {
	name       string
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer serves handler on addr.
func NewServer(name, addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		name: name,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// NewOpsServer creates a server with /healthz, /readyz, and /metrics routes.
func NewOpsServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	return NewServer("ops", addr, mux, logger)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "server", s.name, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Run starts the server in the background and reports a failure other than
// graceful shutdown on the returned channel.
func (s *Server) Run() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", s.name, err)
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// Check is a named readiness dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Checks is a ReadinessChecker that fails on the first unreachable dependency.
type Checks []Check

// CheckReadiness pings every dependency in order.
func (c Checks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", check.Name, err)
		}
	}
	return nil
}
