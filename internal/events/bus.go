package events

import "sync"

// Handler receives published events. Handlers must not block; slow
// consumers should hand off to their own channel.
type Handler func(event *Event)

// Bus is an in-process publish/subscribe fanout keyed by event type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to every handler subscribed to its type.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
