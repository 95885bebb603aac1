// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

// Event types for cortexface
const (
	// Face events
	EventTypeMouthOpen EventType = "face.mouth_open"

	// Window events
	EventTypeResize EventType = "window.resize"
	EventTypeClosed EventType = "window.closed"

	// Feed events
	EventTypeFeedConnected    EventType = "feed.connected"
	EventTypeFeedDisconnected EventType = "feed.disconnected"
	EventTypeFeedError        EventType = "feed.error"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Float returns Data[key] as a float64. Numeric JSON and Go number types are
// accepted.
func (e Event) Float(key string) (float64, bool) {
	switch v := e.Data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

func (b *EventBus) snapshot(t EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[t]))
	copy(handlers, b.handlers[t])
	return handlers
}

// Publish sends an event to all subscribed handlers without waiting for them.
func (b *EventBus) Publish(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		go handler(event)
	}
}

// PublishSync sends an event and returns once every handler has run. Handlers
// run in subscription order on the caller's goroutine, so a feed that
// publishes mouth values in order has them applied in order.
func (b *EventBus) PublishSync(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		handler(event)
	}
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
