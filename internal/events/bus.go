// Package events provides a typed, synchronous publish/subscribe bus.
//
// Listeners run on the emitting goroutine in subscription order. Emissions
// are serialized, so two listeners never run at the same time even when
// several producers emit concurrently:
//
//	bus := events.New[detect.Detection]()
//	stop := bus.Subscribe(func(d detect.Detection) { ... })
//	defer stop()
//	bus.Emit(d)
package events

import "sync"

// Bus delivers values of type T to subscribed listeners.
type Bus[T any] struct {
	mu        sync.Mutex // guards listeners and nextID
	emitMu    sync.Mutex // serializes Emit
	listeners []listener[T]
	nextID    uint64
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// New returns an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, l := range b.listeners {
				if l.id == id {
					b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit calls every listener registered at the time of the call.
func (b *Bus[T]) Emit(v T) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	ls := b.listeners
	b.mu.Unlock()

	for _, l := range ls {
		l.fn(v)
	}
}

// Len reports the number of subscribed listeners.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
