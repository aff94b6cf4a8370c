// Package compile turns a parsed query document into an executable
// expression graph over a typed schema.
//
// The requested-field tree is modeled as a closed set of node kinds
// dispatched by tag. Compilation happens in one pass for pure data-store
// queries and in two passes when any field in a subtree is service-bound:
// the first pass is evaluable against the backing data context and
// materializes the service calls' data dependencies as named slots, the
// second reads those slots instead of the live context.
package compile

import (
	"fmt"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/schema"
)

// Kind tags a field node variant. The set is closed; compilation
// exhaustively switches on it.
type Kind int

const (
	// KindScalar is a terminal leaf expression.
	KindScalar Kind = iota
	// KindObject projects child fields over a single object context.
	KindObject
	// KindList projects child fields per element of a collection context.
	KindList
	// KindFragment is a placeholder that never survives Expand.
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DirectiveUse is one directive application on a node, with its resolved
// arguments.
type DirectiveUse struct {
	Name string
	Args map[string]any
}

// Node is one node of the requested-field tree.
type Node struct {
	Kind Kind

	// Name is the requested output name (alias if given).
	Name string

	// Field is the matching schema field definition; nil for synthetic
	// nodes such as the operation root.
	Field *schema.Field

	// TypeName is the named schema type this node's value ranges over.
	TypeName string

	// ChildFields holds child nodes in insertion order, which is output
	// order. Only object and list nodes have children.
	ChildFields []*Node

	// NextContext is the expression the node's children operate on. The
	// parent sets it during compilation and re-sets it on the service
	// pass, when the context switches to the materialized pass-1 result.
	NextContext expr.Expr

	// Parent is a back-reference used only for argument-inheritance
	// lookups, never for ownership.
	Parent *Node

	// RootParameter is the free variable this subtree's expression graph
	// is evaluated against.
	RootParameter *expr.Parameter

	// Arguments maps argument name to its resolved inline/variable value.
	Arguments map[string]any

	// ConstantParameters maps lifted placeholder names to their runtime
	// constant values. A node's map is a superset union of all its
	// children's, merged on AddField.
	ConstantParameters map[string]any

	// Directives are the directive applications on this node, in
	// declared order.
	Directives []DirectiveUse

	// FragmentName is set on named fragment spreads; inline fragments
	// keep it empty and carry their children directly.
	FragmentName string

	// Pass-1 state reused by the service pass: the built service call
	// and the extraction of its context dependencies.
	serviceExpr expr.Expr
	serviceDeps *expr.Extraction

	// liftedArgs memoizes the lifted argument placeholders so compiling
	// the node again on a later pass reuses them instead of registering
	// suffixed duplicates.
	liftedArgs map[string]any
}

// AddField appends child, wires its parent back-reference, and merges the
// child's constant parameters into this node's map (child values win on
// collision).
func (n *Node) AddField(child *Node) {
	child.Parent = n
	child.RootParameter = n.RootParameter
	n.ChildFields = append(n.ChildFields, child)
	if len(child.ConstantParameters) > 0 {
		if n.ConstantParameters == nil {
			n.ConstantParameters = make(map[string]any, len(child.ConstantParameters))
		}
		for k, v := range child.ConstantParameters {
			n.ConstantParameters[k] = v
		}
	}
}

// Constant registers value under a placeholder name and returns the
// placeholder expression. Registration lands on the tree root so names are
// unique document-wide; repeated lifts of the same name get a numeric
// suffix instead of overwriting each other.
func (n *Node) Constant(name string, value any) expr.Expr {
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	if root.ConstantParameters == nil {
		root.ConstantParameters = make(map[string]any)
	}
	unique := name
	for i := 2; ; i++ {
		if _, taken := root.ConstantParameters[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s_%d", name, i)
	}
	root.ConstantParameters[unique] = value
	return &expr.Constant{Name: unique, Value: value}
}

func (n *Node) nullable() bool {
	return n.Field != nil && n.Field.Type != nil && !n.Field.Type.IsNonNull()
}

// HasAnyServices reports whether this node's schema field declares required
// services or any descendant does.
func (n *Node) HasAnyServices() bool {
	if n.Field != nil && n.Field.HasServices() {
		return true
	}
	for _, c := range n.ChildFields {
		if c.HasAnyServices() {
			return true
		}
	}
	return false
}

// resolveField builds the node's base expression over source.
func (n *Node) resolveField(source expr.Expr, args map[string]any) expr.Expr {
	if n.Field == nil {
		return source
	}
	resolve := n.Field.Resolve
	if resolve == nil {
		resolve = schema.DefaultResolve(n.Field)
	}
	return resolve(source, args)
}
