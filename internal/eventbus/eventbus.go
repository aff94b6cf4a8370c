// Package eventbus is the process-local publish/subscribe channel the
// compiler, server, and transports report on. Delivery is synchronous on
// the publishing goroutine; with no bus installed, publishing is free.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler consumes events of type T.
type Handler[T any] func(context.Context, T)

type subscriber struct {
	id int64
	fn func(context.Context, any)
}

// Bus routes published events to the handlers subscribed to their dynamic
// type. Construct with New; the zero value has no subscriber table.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[reflect.Type][]subscriber
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[reflect.Type][]subscriber)}
}

func (b *Bus) add(t reflect.Type, fn func(context.Context, any)) (remove func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscriber{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.subs[t][:0]
		for _, s := range b.subs[t] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, t)
		} else {
			b.subs[t] = kept
		}
	}
}

func (b *Bus) publish(ctx context.Context, e any) {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[reflect.TypeOf(e)]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(ctx, e)
	}
}

// installed is the process-wide bus; nil drops all events.
var installed atomic.Pointer[Bus]

// Use installs b as the process-wide bus. Use(nil) turns publishing off.
func Use(b *Bus) { installed.Store(b) }

// Subscribe registers h for events of type T on the installed bus and
// returns a function that removes the registration. Without an installed
// bus the returned function is a no-op.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := installed.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.add(t, func(ctx context.Context, e any) { h(ctx, e.(T)) })
}

// Publish delivers e to the installed bus's subscribers for its type.
func Publish[T any](ctx context.Context, e T) {
	if b := installed.Load(); b != nil {
		b.publish(ctx, e)
	}
}
