// Package health provides the HTTP liveness and readiness endpoints.
//
// Process managers poll /healthz and /readyz. Both report the ready flag and
// the status of registered components (active meeting, speech service).
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports the current state of one component.
type Check func() bool

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server

	mu     sync.RWMutex
	checks map[string]Check
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, checks: make(map[string]Check)}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// AddCheck registers a component reported in every response body.
// Components are informational and never flip the status code.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

type response struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components,omitempty"`
}

// Handler returns the health routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handle)
	mux.HandleFunc("GET /readyz", s.handle)
	return mux
}

func (s *Server) handle(w http.ResponseWriter, _ *http.Request) {
	resp := response{Status: "ok", Components: s.components()}
	code := http.StatusOK
	if !s.ready.Load() {
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) components() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.checks) == 0 {
		return nil
	}
	out := make(map[string]bool, len(s.checks))
	for name, check := range s.checks {
		out[name] = check()
	}
	return out
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
