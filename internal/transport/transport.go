// Package transport defines the interface for the daemon's network surfaces.
//
// Each transport (HTTP command API, gRPC health, MQTT event sink) carries
// its own collaborators and is started and stopped by main through this
// contract.
package transport

import "context"

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts serving. It blocks until the context is cancelled.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
