package grpcsvc

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEndpoints indicates the provider returned no endpoints for a service.
var ErrNoEndpoints = errors.New("grpcsvc: no endpoints available")

// EndpointProvider provides reachable endpoints (host:port) for a
// fully-qualified gRPC service name (e.g. "entitygraphql.Formatter").
// Implementations may integrate with service discovery systems and must be
// safe for concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, service string) ([]string, error)
}

// StaticEndpoints is a provider backed by an in-memory map keyed by
// fully-qualified service name.
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		vv := make([]string, len(v))
		copy(vv, v)
		cp[k] = vv
	}
	return &StaticEndpoints{data: cp}
}

// Set replaces the endpoint list for a service.
func (s *StaticEndpoints) Set(service string, endpoints []string) {
	cp := make([]string, len(endpoints))
	copy(cp, endpoints)
	s.mu.Lock()
	s.data[service] = cp
	s.mu.Unlock()
}

func (s *StaticEndpoints) Endpoints(_ context.Context, service string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.data[service]
	if len(arr) == 0 {
		return nil, ErrNoEndpoints
	}
	out := make([]string, len(arr))
	copy(out, arr)
	return out, nil
}
