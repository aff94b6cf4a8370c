package extensions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
)

// Filter narrows a collection-typed field with a predicate taken from an
// argument, before the child projection is attached:
//
//	people(filter: "age >= 18") { name }  →  ctx.People.Where((f) => (f.age >= $filter_0)).Select(...)
//
// The predicate grammar is deliberately small: comparisons of a dotted
// field path against a literal, joined with "and". Literal values are
// lifted into named constants so the graph shape does not vary with them.
type Filter struct {
	Base
	// Arg is the argument holding the predicate. Defaults to "filter".
	Arg string
}

func (f *Filter) arg() string {
	if f.Arg == "" {
		return "filter"
	}
	return f.Arg
}

func (f *Filter) ProcessExpressionPreSelection(hc *Context, base expr.Expr, item *expr.Parameter) (expr.Expr, *expr.Parameter, error) {
	if item == nil || hc.ServicePass {
		return base, item, nil
	}
	raw, ok := hc.Arguments[f.arg()]
	if !ok || raw == nil {
		return base, item, nil
	}
	src, ok := raw.(string)
	if !ok || strings.TrimSpace(src) == "" {
		return base, item, nil
	}
	param := &expr.Parameter{Name: "f", TypeName: item.TypeName}
	pred, err := parsePredicate(src, param, hc)
	if err != nil {
		return nil, nil, fmt.Errorf("filter: %w", err)
	}
	filtered := &expr.Call{
		Target: base,
		Method: "Where",
		Args:   []expr.Expr{&expr.Lambda{Params: []*expr.Parameter{param}, Body: pred}},
	}
	return filtered, item, nil
}

var comparisonOps = []string{"==", "!=", ">=", "<=", ">", "<"}

func parsePredicate(src string, param *expr.Parameter, hc *Context) (expr.Expr, error) {
	var out expr.Expr
	for i, clause := range strings.Split(src, " and ") {
		cmp, err := parseComparison(strings.TrimSpace(clause), param, hc, i)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = cmp
		} else {
			out = &expr.Binary{Op: "&&", Left: out, Right: cmp}
		}
	}
	if out == nil {
		return nil, fmt.Errorf("empty predicate")
	}
	return out, nil
}

func parseComparison(clause string, param *expr.Parameter, hc *Context, ord int) (expr.Expr, error) {
	for _, op := range comparisonOps {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		path := strings.TrimSpace(clause[:idx])
		lit := strings.TrimSpace(clause[idx+len(op):])
		if path == "" || lit == "" {
			return nil, fmt.Errorf("malformed comparison %q", clause)
		}
		value, err := parseLiteral(lit)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{
			Op:    op,
			Left:  memberPath(param, path),
			Right: hc.Constant(fmt.Sprintf("filter_%d", ord), value),
		}, nil
	}
	return nil, fmt.Errorf("no comparison operator in %q", clause)
}

func parseLiteral(lit string) (any, error) {
	switch {
	case strings.HasPrefix(lit, `"`) && strings.HasSuffix(lit, `"`) && len(lit) >= 2:
		return strconv.Unquote(lit)
	case lit == "true":
		return true, nil
	case lit == "false":
		return false, nil
	case lit == "null":
		return nil, nil
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, nil
	}
	if fl, err := strconv.ParseFloat(lit, 64); err == nil {
		return fl, nil
	}
	return nil, fmt.Errorf("unrecognized literal %q", lit)
}
