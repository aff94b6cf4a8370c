// Package reqid threads a per-request correlation ID through context so
// event subscribers can stitch together the events of one request.
package reqid

import (
	"context"
	"math/rand/v2"
)

type ctxKey struct{}

// NewContext derives a context carrying a fresh correlation ID and returns
// the ID alongside it.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	return context.WithValue(parent, ctxKey{}, id), id
}

// FromContext reports the correlation ID carried by ctx, if any.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}
