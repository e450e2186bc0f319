// Package mqtt implements the MQTT transport for murmur.
//
// The transport is an events.Sink: every bus event is published as JSON to
// <topic>/<event-name>, so home-automation hubs and dashboards can follow
// meetings, history changes and speech-service status.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nadzzz/murmur/internal/events"
)

const (
	publishTimeout = 10 * time.Second
	quiesceMillis  = 250
)

// ErrNotConnected is returned by Publish before Listen connected the client.
var ErrNotConnected = errors.New("mqtt client not connected")

// Transport implements transport.Transport and events.Sink over MQTT.
type Transport struct {
	broker string
	topic  string
	client paho.Client
	logger *slog.Logger
}

// New creates a new MQTT transport. The client reconnects on its own after
// the first successful connection.
func New(broker, topic, clientID string) *Transport {
	t := &Transport{
		broker: broker,
		topic:  strings.TrimRight(topic, "/"),
		logger: slog.With("component", "mqtt", "broker", broker),
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			t.logger.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(paho.Client) {
			t.logger.Info("mqtt connected")
		})
	t.client = paho.NewClient(opts)
	return t
}

// newWithClient builds a transport around an existing client.
func newWithClient(client paho.Client, topic string) *Transport {
	return &Transport{
		topic:  strings.TrimRight(topic, "/"),
		client: client,
		logger: slog.With("component", "mqtt"),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the broker and holds the session until the context is
// cancelled. An unreachable broker is logged and retried in the background;
// events published meanwhile are dropped.
func (t *Transport) Listen(ctx context.Context) error {
	tok := t.client.Connect()
	go func() {
		select {
		case <-tok.Done():
			if err := tok.Error(); err != nil {
				t.logger.Error("mqtt connect failed", "error", err)
			}
		case <-ctx.Done():
		}
	}()
	t.logger.Info("mqtt transport listening", "topic", t.topic)

	<-ctx.Done()
	return nil
}

// Topic returns the topic an event is published to.
func (t *Transport) Topic(name string) string {
	return t.topic + "/" + name
}

// Publish sends one event with QoS 0, not retained.
func (t *Transport) Publish(ctx context.Context, ev events.Event) error {
	if !t.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := t.client.Publish(t.Topic(ev.Name), 0, false, ev.JSON())
	if err := wait(ctx, tok); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", ev.Name, err)
	}
	return nil
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	if t.client.IsConnected() {
		t.client.Disconnect(quiesceMillis)
	}
	return nil
}

func wait(ctx context.Context, tok paho.Token) error {
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out")
	}
}
