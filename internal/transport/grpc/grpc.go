// Package grpc implements the gRPC transport for murmur.
//
// The server exposes the standard grpc.health.v1.Health service so that
// container orchestrators can watch the daemon. The overall
// service ("") is SERVING while the transport runs; each registered
// component (for example "tts") is polled and reported under its own name.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Check reports whether a component is currently serving.
type Check func() bool

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port     int
	interval time.Duration
	checks   map[string]Check

	mu     sync.Mutex
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port. Checks are polled
// every interval.
func New(port int, interval time.Duration, checks map[string]Check) *Transport {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Transport{port: port, interval: interval, checks: checks}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis)
}

// Serve runs the server on an existing listener.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	t.mu.Lock()
	t.server = srv
	t.health = hs
	t.mu.Unlock()

	t.poll()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("grpc transport shutting down")
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				t.poll()
			}
		}
	}()

	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

func (t *Transport) poll() {
	t.mu.Lock()
	hs := t.health
	t.mu.Unlock()
	if hs == nil {
		return
	}
	for name, check := range t.checks {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if check() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus(name, status)
	}
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.health != nil {
		t.health.Shutdown()
	}
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
