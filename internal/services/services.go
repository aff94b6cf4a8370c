// Package services defines how the compiler resolves the external
// business-logic services that service-bound fields invoke.
package services

import (
	"context"
	"fmt"
	"sync"
)

// ErrNotFound reports a service type with no registered implementation.
// Unresolvable services are fatal for the field that declared them.
var ErrNotFound = fmt.Errorf("service not found")

// Invoker calls one method on a resolved service instance.
type Invoker interface {
	Invoke(ctx context.Context, method string, args []any) (any, error)
}

// Provider resolves a declared service type to an Invoker.
type Provider interface {
	Resolve(ctx context.Context, serviceType string) (Invoker, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, method string, args []any) (any, error)

func (f InvokerFunc) Invoke(ctx context.Context, method string, args []any) (any, error) {
	return f(ctx, method, args)
}

// Registry is an in-memory Provider. Registration happens at setup time;
// Resolve is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
}

func NewRegistry() *Registry {
	return &Registry{invokers: map[string]Invoker{}}
}

// Register binds a service type name to an invoker, replacing any previous
// binding.
func (r *Registry) Register(serviceType string, inv Invoker) {
	r.mu.Lock()
	r.invokers[serviceType] = inv
	r.mu.Unlock()
}

func (r *Registry) Resolve(_ context.Context, serviceType string) (Invoker, error) {
	r.mu.RLock()
	inv, ok := r.invokers[serviceType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, serviceType)
	}
	return inv, nil
}
