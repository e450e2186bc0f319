package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, checks map[string]Check) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	tr := New(0, 10*time.Millisecond, checks)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return healthpb.NewHealthClient(conn)
}

func status(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestOverallServing(t *testing.T) {
	c := startServer(t, nil)
	if got := status(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v", got)
	}
}

func TestCheckIsPolled(t *testing.T) {
	var running atomic.Bool
	c := startServer(t, map[string]Check{"tts": running.Load})

	if got := status(t, c, "tts"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("tts before start = %v", got)
	}

	running.Store(true)
	deadline := time.Now().Add(2 * time.Second)
	for status(t, c, "tts") != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("tts never reported SERVING")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
