package extensions

import (
	"fmt"
	"strings"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
)

// Sort orders a collection-typed field by a key taken from an argument.
// The rewrite attaches after the child projection is assembled, so it sees
// the collection before the per-element projection is composed:
//
//	people(sort: "-age") { name }  →  ctx.People.OrderByDescending((s) => s.age).Select(...)
//
// A leading "-" on the argument value selects descending order. Non-list
// bases are left untouched.
type Sort struct {
	Base
	// Arg is the argument holding the sort key. Defaults to "sort".
	Arg string
}

func (s *Sort) arg() string {
	if s.Arg == "" {
		return "sort"
	}
	return s.Arg
}

func (s *Sort) ProcessExpressionSelection(hc *Context, base expr.Expr, sel *Selection, item *expr.Parameter) (expr.Expr, *Selection, *expr.Parameter, error) {
	if item == nil || hc.ServicePass {
		return base, sel, item, nil
	}
	raw, ok := hc.Arguments[s.arg()]
	if !ok || raw == nil {
		return base, sel, item, nil
	}
	key, ok := raw.(string)
	if !ok || key == "" {
		return base, sel, item, nil
	}
	method := "OrderBy"
	if strings.HasPrefix(key, "-") {
		method = "OrderByDescending"
		key = key[1:]
	}
	if key == "" {
		return nil, nil, nil, fmt.Errorf("sort: empty sort key")
	}
	keyParam := &expr.Parameter{Name: "s", TypeName: item.TypeName}
	ordered := &expr.Call{
		Target: base,
		Method: method,
		Args:   []expr.Expr{&expr.Lambda{Params: []*expr.Parameter{keyParam}, Body: memberPath(keyParam, key)}},
	}
	return ordered, sel, item, nil
}

// memberPath builds a member chain from a dotted path.
func memberPath(target expr.Expr, path string) expr.Expr {
	e := target
	for _, part := range strings.Split(path, ".") {
		e = &expr.Member{Target: e, Name: part}
	}
	return e
}
