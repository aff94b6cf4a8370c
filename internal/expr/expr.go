// Package expr defines the expression graph produced by the query compiler.
//
// The node set is closed: every expression is one of the concrete types
// below, and consumers dispatch with a type switch. The graph is immutable
// once built; rewrites (Replace, the extension hooks) return new nodes and
// never mutate shared subtrees.
package expr

// Expr is a node in the expression graph.
type Expr interface {
	exprNode()
}

// Parameter is a named free variable. TypeName carries the schema type the
// parameter ranges over and is used by the extractor's matchByType mode.
type Parameter struct {
	Name     string
	TypeName string
}

// Constant is a literal value. When Name is non-empty the constant is a
// lifted placeholder: the expression renders the placeholder name instead of
// the value, so two compilations differing only in literals produce the same
// graph shape.
type Constant struct {
	Name  string
	Value any
}

// Member is a member access on Target.
//
// Transparent marks optional-presence accessors (HasValue/Value style pairs):
// the extractor never opens an extraction unit at a transparent member, so
// the wrapped value is always lifted as a whole.
type Member struct {
	Target      Expr
	Name        string
	Transparent bool
	Nullable    bool
}

// Call is a method invocation. Target may be nil for free functions.
// Service is non-empty when the call is bound to an external service; such
// calls cannot be evaluated by a pure data-store pass.
type Call struct {
	Target  Expr
	Service string
	Method  string
	Args    []Expr
}

// Lambda is an anonymous function over Params.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

// ProjectedField is one keyed entry of a Projection, in declared order.
type ProjectedField struct {
	Key   string
	Value Expr
}

// Projection builds a keyed record from Source. When Item is non-nil the
// projection is per-element over a collection-typed Source and field values
// reference Item; otherwise field values reference Source (or an enclosing
// binding) directly.
type Projection struct {
	Source Expr
	Item   *Parameter
	Fields []ProjectedField
}

// Condition is a ternary: Test ? IfTrue : IfFalse. Null guards are built
// from Condition over an IsNull test.
type Condition struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
}

// IsNull tests Target for null.
type IsNull struct {
	Target Expr
}

// Binary is a comparison or logical operator applied to two operands.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Binding evaluates Value once, binds it to Param, and evaluates Body with
// the binding in scope. It is the at-most-once construct: expensive single
// object computations are captured here rather than re-evaluated per member
// access.
type Binding struct {
	Param *Parameter
	Value Expr
	Body  Expr
}

func (*Parameter) exprNode()  {}
func (*Constant) exprNode()   {}
func (*Member) exprNode()     {}
func (*Call) exprNode()       {}
func (*Lambda) exprNode()     {}
func (*Projection) exprNode() {}
func (*Condition) exprNode()  {}
func (*IsNull) exprNode()     {}
func (*Binary) exprNode()     {}
func (*Binding) exprNode()    {}

// Null is the null literal.
func Null() *Constant { return &Constant{} }

// NullGuard wraps then in a null check on target: target == null ? null : then.
func NullGuard(target, then Expr) Expr {
	return &Condition{Test: &IsNull{Target: target}, IfTrue: Null(), IfFalse: then}
}

// Walk traverses e preorder. If fn returns false the node's children are
// skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Parameter, *Constant:
	case *Member:
		Walk(n.Target, fn)
	case *Call:
		if n.Target != nil {
			Walk(n.Target, fn)
		}
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Lambda:
		Walk(n.Body, fn)
	case *Projection:
		if n.Source != nil {
			Walk(n.Source, fn)
		}
		for _, f := range n.Fields {
			Walk(f.Value, fn)
		}
	case *Condition:
		Walk(n.Test, fn)
		Walk(n.IfTrue, fn)
		Walk(n.IfFalse, fn)
	case *IsNull:
		Walk(n.Target, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Binding:
		Walk(n.Value, fn)
		Walk(n.Body, fn)
	}
}
