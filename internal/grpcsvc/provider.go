package grpcsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/cyl1d3/EntityGraphQL/internal/services"
)

// Provider resolves schema-declared services to gRPC-backed invokers.
// Arguments are JSON-encoded into the request's args_json field; the
// response's data_json field is decoded back into plain values.
type Provider struct {
	reg    *Registry
	caller Caller
}

var _ services.Provider = (*Provider)(nil)

func NewProvider(reg *Registry, caller Caller) *Provider {
	return &Provider{reg: reg, caller: caller}
}

func (p *Provider) Resolve(_ context.Context, serviceType string) (services.Invoker, error) {
	if !p.reg.HasService(serviceType) {
		return nil, fmt.Errorf("%w: %s", services.ErrNotFound, serviceType)
	}
	return &invoker{service: serviceType, provider: p}, nil
}

type invoker struct {
	service  string
	provider *Provider
}

func (inv *invoker) Invoke(ctx context.Context, method string, args []any) (any, error) {
	md := inv.provider.reg.Method(inv.service, method)
	if md == nil {
		return nil, fmt.Errorf("grpcsvc: service %s has no method %s", inv.service, method)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("grpcsvc: encode arguments: %w", err)
	}
	req := dynamicpb.NewMessage(md.Input())
	req.Set(md.Input().Fields().ByName("args_json"), protoreflect.ValueOfString(string(payload)))

	resp, err := inv.provider.caller.Call(ctx, md, req)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return nil, fmt.Errorf("grpcsvc: %s.%s: %s", inv.service, method, st.Message())
		}
		return nil, err
	}

	raw := resp.Get(md.Output().Fields().ByName("data_json")).String()
	if raw == "" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("grpcsvc: decode response: %w", err)
	}
	return out, nil
}
