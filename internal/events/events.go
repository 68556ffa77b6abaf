package events

import (
	"sync"
	"time"
)

// Event is a lightweight booking lifecycle event. Payload is the
// *models.Booking the event concerns.
type Event struct {
	Type    string
	Payload interface{}
	At      time.Time
}

// Handler reacts to an event. Handlers run synchronously on the
// publisher's goroutine; a subscriber that talks to the network should do
// its own timeout handling.
type Handler func(event Event)

// Bus provides in-process pub/sub for booking events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(eventType string, payload interface{}) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	event := Event{Type: eventType, Payload: payload, At: time.Now()}
	for _, handler := range handlers {
		handler(event)
	}
}
