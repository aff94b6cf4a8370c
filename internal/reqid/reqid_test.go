package reqid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContextCarriesID(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)
}

func TestFromContextWithoutID(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
}

func TestNestedContextsShadow(t *testing.T) {
	outer, outerID := NewContext(context.Background())
	inner, innerID := NewContext(outer)

	got, ok := FromContext(inner)
	require.True(t, ok)
	require.Equal(t, innerID, got)

	got, ok = FromContext(outer)
	require.True(t, ok)
	require.Equal(t, outerID, got)
}
