// Package extensions defines the field-level rewrite pipeline and its
// concrete implementations (filtering, sorting, paging).
//
// Extensions are configured once at schema build time and invoked per
// compilation. Each hook is pure with respect to its inputs: it returns
// rewritten values and never mutates state shared between nodes. When a
// query compiles in two passes the hooks run once per pass and receive the
// pass discriminator through Context.ServicePass.
package extensions

import (
	"github.com/cyl1d3/EntityGraphQL/internal/expr"
)

// Replacer substitutes old with repl inside in, returning the rewritten
// expression. The compiler passes its structural replacer here so hooks can
// rewrite without knowing the graph internals.
type Replacer func(in, old, repl expr.Expr) expr.Expr

// Context carries the per-invocation inputs of a hook.
type Context struct {
	// Arguments are the field's effective arguments after inheritance.
	Arguments map[string]any

	// ServicePass is true on the second compilation pass of a
	// service-bound subtree.
	ServicePass bool

	// Replace is the compiler's structural replacer.
	Replace Replacer

	// Constant registers value as a lifted constant on the compiling node
	// and returns the placeholder expression to embed. Lifting keeps the
	// produced graph structurally stable across requests that differ only
	// in literal values.
	Constant func(name string, value any) expr.Expr
}

// SelectedField is one entry of an assembled projection, in declared order.
type SelectedField struct {
	Key  string
	Expr expr.Expr
}

// Selection is the per-field projection map under assembly.
type Selection struct {
	Fields []SelectedField
}

// Add appends a keyed entry preserving declared order.
func (s *Selection) Add(key string, e expr.Expr) {
	s.Fields = append(s.Fields, SelectedField{Key: key, Expr: e})
}

// Keys returns the selected output names in declared order.
func (s *Selection) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Extension rewrites the expression graph around a field. Hooks run in the
// order extensions were declared on the field; each sees the previous
// extension's output.
type Extension interface {
	// ProcessExpressionPreSelection rewrites the field's base expression
	// and element parameter before child fields are attached.
	ProcessExpressionPreSelection(hc *Context, base expr.Expr, item *expr.Parameter) (expr.Expr, *expr.Parameter, error)

	// ProcessExpressionSelection rewrites after the full child projection
	// is known, before the projection is composed onto the base.
	ProcessExpressionSelection(hc *Context, base expr.Expr, sel *Selection, item *expr.Parameter) (expr.Expr, *Selection, *expr.Parameter, error)

	// ProcessScalarExpression rewrites a terminal scalar's expression.
	ProcessScalarExpression(hc *Context, e expr.Expr) (expr.Expr, error)
}

// Base is a pass-through Extension for embedding; implementations override
// only the hooks they need.
type Base struct{}

func (Base) ProcessExpressionPreSelection(_ *Context, base expr.Expr, item *expr.Parameter) (expr.Expr, *expr.Parameter, error) {
	return base, item, nil
}

func (Base) ProcessExpressionSelection(_ *Context, base expr.Expr, sel *Selection, item *expr.Parameter) (expr.Expr, *Selection, *expr.Parameter, error) {
	return base, sel, item, nil
}

func (Base) ProcessScalarExpression(_ *Context, e expr.Expr) (expr.Expr, error) {
	return e, nil
}
