package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler receives a published event
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
	once    bool
}

// Bus is a synchronous publish/subscribe dispatcher. Delivery happens on the
// publishing goroutine, in subscription order. A panicking handler is logged
// and skipped; remaining handlers for the event still run.
type Bus struct {
	mutex  sync.Mutex
	nextID uint64
	subs   map[Type][]subscription
	logger *logrus.Logger
}

// NewBus creates a new event bus. A nil logger disables panic logging.
func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{
		subs:   make(map[Type][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for an event type and returns an
// unsubscribe function
func (b *Bus) Subscribe(t Type, handler Handler) func() {
	return b.subscribe(t, handler, false)
}

// SubscribeOnce registers a handler that is removed after its first delivery
func (b *Bus) SubscribeOnce(t Type, handler Handler) func() {
	return b.subscribe(t, handler, true)
}

func (b *Bus) subscribe(t Type, handler Handler, once bool) func() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, handler: handler, once: once})

	return func() {
		b.unsubscribe(t, id)
	}
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subs := b.subs[t]
	for i, s := range subs {
		if s.id == id {
			b.subs[t] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[t]) == 0 {
		delete(b.subs, t)
	}
}

// Publish delivers the event to every subscriber of its type, in
// subscription order, on the calling goroutine
func (b *Bus) Publish(e Event) {
	t := e.EventType()

	b.mutex.Lock()
	subs := make([]subscription, len(b.subs[t]))
	copy(subs, b.subs[t])
	// Once-handlers are removed before delivery so a handler that
	// re-publishes the same event cannot fire them twice
	remaining := b.subs[t][:0]
	for _, s := range b.subs[t] {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == 0 {
		delete(b.subs, t)
	} else {
		b.subs[t] = remaining
	}
	b.mutex.Unlock()

	for _, s := range subs {
		b.dispatch(t, s.handler, e)
	}
}

func (b *Bus) dispatch(t Type, handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.WithFields(logrus.Fields{
				"event": string(t),
				"panic": r,
			}).Error("Event handler panicked")
		}
	}()
	handler(e)
}

// ListenerCount returns the number of subscribers for an event type
func (b *Bus) ListenerCount(t Type) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subs[t])
}

// Clear removes all subscribers
func (b *Bus) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.subs = make(map[Type][]subscription)
}
