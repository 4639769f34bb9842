package event

import (
	"reflect"
	"sync"
)

// Bus delivers typed events synchronously to subscribers in subscription
// order. Publishing happens on the tick goroutine only; handlers may publish
// further events, which are delivered depth-first.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Publish delivers event to every handler subscribed to T. A nil bus is a
// valid sink.
func Publish[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	for _, h := range b.handlers[t] {
		// Subscribe and Publish share the same type key, so the assertion holds.
		h.(func(T))(event)
	}
}

// Subscribers returns how many handlers are registered for T.
func Subscribers[T any](b *Bus) int {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return len(b.handlers[t])
}
