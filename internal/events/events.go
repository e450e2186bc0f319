// Package events is murmur's fire-and-forget notification bus.
//
// Emit never blocks and never fails. In-process subscribers (the HTTP event
// stream) receive events on buffered channels; external sinks (MQTT) are fed
// from a single background goroutine so a slow broker cannot stall the
// meeting loop or the supervisor.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names.
const (
	SessionStarted   = "session-started"
	SessionStopped   = "session-stopped"
	SegmentAdded     = "segment-added"
	HistoryUpdated   = "history-updated"
	TTSServiceStatus = "tts-service-status"
	TTSServiceError  = "tts-service-error"
)

// Event is one broadcast notification.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON renders the event for the wire. Payloads that cannot be marshalled are
// replaced by null.
func (e Event) JSON() []byte {
	raw, err := json.Marshal(e)
	if err != nil {
		e.Payload = nil
		raw, _ = json.Marshal(e)
	}
	return raw
}

// Sink delivers events to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

const sinkQueueSize = 256

// Bus fans events out to local subscribers and external sinks.
type Bus struct {
	subMu       sync.RWMutex
	subscribers map[string]chan Event

	sinkMu sync.RWMutex
	sinks  []Sink

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// New creates a bus and starts its sink delivery goroutine.
func New() *Bus {
	b := &Bus{
		subscribers: make(map[string]chan Event),
		queue:       make(chan Event, sinkQueueSize),
		done:        make(chan struct{}),
		logger:      slog.With("component", "events"),
	}
	go b.deliver()
	return b
}

// AddSink registers an external sink.
func (b *Bus) AddSink(s Sink) {
	b.sinkMu.Lock()
	b.sinks = append(b.sinks, s)
	b.sinkMu.Unlock()
}

// Emit broadcasts name with payload. It never blocks.
func (b *Bus) Emit(name string, payload any) {
	ev := Event{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.subMu.RLock()
	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("event dropped: subscriber buffer full", "subscriber", id, "event", name)
		}
	}
	b.subMu.RUnlock()

	b.sinkMu.RLock()
	hasSinks := len(b.sinks) > 0
	b.sinkMu.RUnlock()
	if !hasSinks {
		return
	}

	select {
	case <-b.done:
	case b.queue <- ev:
	default:
		b.logger.Warn("event dropped: sink queue full", "event", name)
	}
}

// Subscribe creates a local subscription. The caller must Unsubscribe with
// the returned id.
func (b *Bus) Subscribe(bufSize int) (string, <-chan Event) {
	if bufSize <= 0 {
		bufSize = 64
	}
	id := uuid.NewString()
	ch := make(chan Event, bufSize)
	b.subMu.Lock()
	b.subscribers[id] = ch
	b.subMu.Unlock()
	return id, ch
}

// Unsubscribe removes a local subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.subMu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.subMu.Unlock()
}

// Close stops sink delivery. Events still queued are dropped.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bus) deliver() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.queue:
			b.sinkMu.RLock()
			sinks := append([]Sink(nil), b.sinks...)
			b.sinkMu.RUnlock()

			for _, s := range sinks {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.Publish(ctx, ev); err != nil {
					b.logger.Error("event sink publish failed", "sink", s.Name(), "event", ev.Name, "error", err)
				}
				cancel()
			}
		}
	}
}
