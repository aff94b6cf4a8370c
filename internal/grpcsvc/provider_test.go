package grpcsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/cyl1d3/EntityGraphQL/internal/services"
)

type fakeCaller struct {
	gotMethod protoreflect.MethodDescriptor
	gotArgs   string
	resp      string
	err       error
}

func (f *fakeCaller) Call(_ context.Context, md protoreflect.MethodDescriptor, req protoreflect.Message) (protoreflect.Message, error) {
	f.gotMethod = md
	f.gotArgs = req.Get(md.Input().Fields().ByName("args_json")).String()
	if f.err != nil {
		return nil, f.err
	}
	out := dynamicpb.NewMessage(md.Output())
	out.Set(md.Output().Fields().ByName("data_json"), protoreflect.ValueOfString(f.resp))
	return out, nil
}

func TestProvider_InvokeRoundTrip(t *testing.T) {
	reg := buildTestRegistry(t)
	caller := &fakeCaller{resp: `{"fullName": "Ada Lovelace"}`}
	p := NewProvider(reg, caller)

	inv, err := p.Resolve(context.Background(), "Formatter")
	require.NoError(t, err)

	got, err := inv.Invoke(context.Background(), "Format", []any{"Ada", "Lovelace"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"fullName": "Ada Lovelace"}, got)

	require.Equal(t, "entitygraphql.Formatter.Format", string(caller.gotMethod.FullName()))
	require.JSONEq(t, `["Ada", "Lovelace"]`, caller.gotArgs)
}

func TestProvider_EmptyResponseIsNull(t *testing.T) {
	reg := buildTestRegistry(t)
	p := NewProvider(reg, &fakeCaller{resp: ""})

	inv, err := p.Resolve(context.Background(), "Matchmaker")
	require.NoError(t, err)
	got, err := inv.Invoke(context.Background(), "Match", []any{int64(30)})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestProvider_UnknownServiceAndMethod(t *testing.T) {
	reg := buildTestRegistry(t)
	p := NewProvider(reg, &fakeCaller{})

	_, err := p.Resolve(context.Background(), "Oracle")
	require.ErrorIs(t, err, services.ErrNotFound)

	inv, err := p.Resolve(context.Background(), "Formatter")
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), "Missing", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no method")
}

func TestProvider_UnwrapsStatusErrors(t *testing.T) {
	reg := buildTestRegistry(t)
	p := NewProvider(reg, &fakeCaller{err: status.Error(codes.NotFound, "person not found")})

	inv, err := p.Resolve(context.Background(), "Matchmaker")
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), "Match", []any{int64(30)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "person not found")
	require.False(t, errors.Is(err, ErrNoEndpoints))
}

func TestStaticEndpoints(t *testing.T) {
	se := NewStaticEndpoints(map[string][]string{
		"entitygraphql.Formatter": {"localhost:7001"},
	})
	eps, err := se.Endpoints(context.Background(), "entitygraphql.Formatter")
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:7001"}, eps)

	_, err = se.Endpoints(context.Background(), "entitygraphql.Oracle")
	require.ErrorIs(t, err, ErrNoEndpoints)

	se.Set("entitygraphql.Oracle", []string{"localhost:7002"})
	eps, err = se.Endpoints(context.Background(), "entitygraphql.Oracle")
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:7002"}, eps)
}
