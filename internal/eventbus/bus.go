// Package eventbus is a small in-process pub/sub used to surface conversation
// memory events (degraded summaries, resets) to whoever drives the session.
package eventbus

import (
	"sync"
	"time"
)

// Bus is a simple in-process pub/sub event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	now      func() time.Time
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		now:      time.Now,
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish sends an event to all subscribers of the topic.
// Handlers are called synchronously in the order they were registered.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	event := Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: b.now(),
	}
	for _, h := range handlers {
		h(event)
	}
}
