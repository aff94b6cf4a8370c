package extensions

import (
	"fmt"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
)

// Paging applies offset/limit to a collection-typed field after the child
// projection is assembled:
//
//	people(offset: 20, limit: 10) { name }  →  ctx.People.Skip($offset).Take($limit)
//
// Paging runs only on the pure pass. On the service pass the context is the
// already-paged pass-1 result, so re-applying Skip/Take would page twice.
type Paging struct {
	Base
	// OffsetArg and LimitArg name the paging arguments. Default
	// "offset"/"limit".
	OffsetArg string
	LimitArg  string
	// DefaultLimit caps unpaged requests when > 0.
	DefaultLimit int
}

func (p *Paging) offsetArg() string {
	if p.OffsetArg == "" {
		return "offset"
	}
	return p.OffsetArg
}

func (p *Paging) limitArg() string {
	if p.LimitArg == "" {
		return "limit"
	}
	return p.LimitArg
}

func (p *Paging) ProcessExpressionSelection(hc *Context, base expr.Expr, sel *Selection, item *expr.Parameter) (expr.Expr, *Selection, *expr.Parameter, error) {
	if item == nil || hc.ServicePass {
		return base, sel, item, nil
	}
	if off, ok, err := intArg(hc.Arguments, p.offsetArg()); err != nil {
		return nil, nil, nil, err
	} else if ok && off > 0 {
		base = &expr.Call{Target: base, Method: "Skip", Args: []expr.Expr{hc.Constant("offset", off)}}
	}
	limit, ok, err := intArg(hc.Arguments, p.limitArg())
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok && p.DefaultLimit > 0 {
		limit, ok = int64(p.DefaultLimit), true
	}
	if ok && limit > 0 {
		base = &expr.Call{Target: base, Method: "Take", Args: []expr.Expr{hc.Constant("limit", limit)}}
	}
	return base, sel, item, nil
}

func intArg(args map[string]any, name string) (int64, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	case int32:
		return int64(v), true, nil
	case float64:
		return int64(v), true, nil
	default:
		return 0, false, fmt.Errorf("paging: argument %q must be an integer, got %T", name, raw)
	}
}
