package compile

import (
	"fmt"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	language "github.com/cyl1d3/EntityGraphQL/internal/language"
	"github.com/cyl1d3/EntityGraphQL/internal/schema"
	"github.com/cyl1d3/EntityGraphQL/internal/services"
)

// Request bundles everything one compilation works against.
type Request struct {
	Schema    *schema.Schema
	Document  *language.QueryDocument
	Variables map[string]any

	// Services resolves declared service types; nil is allowed for
	// documents without service-bound fields.
	Services services.Provider

	// Directives is the executable directive registry. Nil gets the
	// standard include/skip set.
	Directives DirectiveRegistry
}

func (r *Request) directives() DirectiveRegistry {
	if r.Directives == nil {
		r.Directives = NewDirectiveRegistry()
	}
	return r.Directives
}

// Build constructs the field-node tree for the named operation. One node
// is created per requested field or fragment spread; named fragments are
// resolved against the document and cycle-checked. Argument validation
// problems are collected across the whole document and returned together
// as a schema.ValidationError.
func Build(req *Request, operationName string) (*Node, error) {
	op, err := getOperation(req.Document, operationName)
	if err != nil {
		return nil, err
	}

	var rootTypeName string
	switch op.Operation {
	case language.Mutation:
		rootTypeName = req.Schema.MutationType
	default:
		rootTypeName = req.Schema.QueryType
	}
	rootType := req.Schema.Types[rootTypeName]
	if rootType == nil {
		return nil, compileErrorf("schema has no %s type", op.Operation)
	}

	b := &treeBuilder{
		req:       req,
		vars:      coerceVariables(op, req.Variables),
		fragments: map[string]*language.FragmentDefinition{},
		visiting:  map[string]bool{},
	}
	for _, frag := range req.Document.Fragments {
		b.fragments[frag.Name] = frag
	}

	root := &Node{
		Kind:          KindObject,
		Name:          rootTypeName,
		TypeName:      rootTypeName,
		RootParameter: &expr.Parameter{Name: "ctx", TypeName: rootTypeName},
	}
	children, err := b.buildSelectionSet(rootType, op.SelectionSet)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		root.AddField(c)
	}

	if len(b.violations) > 0 {
		return nil, b.violations
	}
	return root, nil
}

func getOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if len(doc.Operations) == 0 {
		return nil, compileErrorf("no operations in query document")
	}
	if name == "" {
		if len(doc.Operations) > 1 {
			return nil, compileErrorf("more than one operation in query document and no operation name given")
		}
		return doc.Operations[0], nil
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, compileErrorf("no operation with name %q", name)
}

// coerceVariables fills declared defaults for variables the caller did not
// supply.
func coerceVariables(op *language.OperationDefinition, vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	for _, vd := range op.VariableDefinitions {
		if _, ok := out[vd.Variable]; ok {
			continue
		}
		if vd.DefaultValue != nil {
			if v, err := vd.DefaultValue.Value(nil); err == nil {
				out[vd.Variable] = v
			}
		}
	}
	return out
}

type treeBuilder struct {
	req        *Request
	vars       map[string]any
	fragments  map[string]*language.FragmentDefinition
	visiting   map[string]bool
	violations schema.ValidationError
}

func (b *treeBuilder) buildSelectionSet(parentType *schema.Type, sels language.SelectionSet) ([]*Node, error) {
	var nodes []*Node
	for _, sel := range sels {
		switch sel := sel.(type) {
		case *language.Field:
			n, err := b.buildField(parentType, sel)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case *language.FragmentSpread:
			frag, ok := b.fragments[sel.Name]
			if !ok {
				return nil, compileErrorf("unknown fragment %q", sel.Name)
			}
			if b.visiting[sel.Name] {
				return nil, compileErrorf("fragment %q cycles back into itself", sel.Name)
			}
			b.visiting[sel.Name] = true
			children, err := b.buildSelectionSet(b.fragmentType(parentType, frag.TypeCondition), frag.SelectionSet)
			b.visiting[sel.Name] = false
			if err != nil {
				return nil, err
			}
			n := &Node{
				Kind:         KindFragment,
				Name:         sel.Name,
				FragmentName: sel.Name,
				TypeName:     frag.TypeCondition,
				Directives:   b.buildDirectives(sel.Directives),
			}
			for _, c := range children {
				n.AddField(c)
			}
			nodes = append(nodes, n)

		case *language.InlineFragment:
			children, err := b.buildSelectionSet(b.fragmentType(parentType, sel.TypeCondition), sel.SelectionSet)
			if err != nil {
				return nil, err
			}
			n := &Node{
				Kind:       KindFragment,
				Name:       sel.TypeCondition,
				TypeName:   sel.TypeCondition,
				Directives: b.buildDirectives(sel.Directives),
			}
			for _, c := range children {
				n.AddField(c)
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func (b *treeBuilder) fragmentType(parentType *schema.Type, condition string) *schema.Type {
	if condition == "" {
		return parentType
	}
	if t := b.req.Schema.Types[condition]; t != nil {
		return t
	}
	return parentType
}

func (b *treeBuilder) buildField(parentType *schema.Type, f *language.Field) (*Node, error) {
	def := parentType.GetField(f.Name)
	if def == nil {
		return nil, compileErrorf("field %q is not defined on type %q", f.Name, parentType.Name)
	}

	name := f.Name
	if f.Alias != "" {
		name = f.Alias
	}
	typeName := def.Type.GetNamedType()
	fieldType := b.req.Schema.Types[typeName]

	kind := KindScalar
	if def.Type.IsList() {
		kind = KindList
	} else if fieldType != nil && fieldType.Kind == schema.TypeKindObject {
		kind = KindObject
	}

	n := &Node{
		Kind:       kind,
		Name:       name,
		Field:      def,
		TypeName:   typeName,
		Directives: b.buildDirectives(f.Directives),
	}
	n.Arguments = b.resolveArguments(parentType.Name, def, f.Arguments)

	if len(f.SelectionSet) > 0 {
		if kind == KindScalar {
			return nil, compileErrorf("field %q of scalar type %q cannot have a selection", name, typeName)
		}
		children, err := b.buildSelectionSet(fieldType, f.SelectionSet)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			n.AddField(c)
		}
	} else if kind != KindScalar && !def.HasServices() {
		return nil, compileErrorf("field %q of type %q requires a selection", name, typeName)
	}
	return n, nil
}

func (b *treeBuilder) buildDirectives(list language.DirectiveList) []DirectiveUse {
	var uses []DirectiveUse
	for _, d := range list {
		args := make(map[string]any, len(d.Arguments))
		for _, a := range d.Arguments {
			if v, err := a.Value.Value(b.vars); err == nil {
				args[a.Name] = v
			}
		}
		uses = append(uses, DirectiveUse{Name: d.Name, Args: args})
	}
	return uses
}

// resolveArguments resolves a field's inline arguments against the
// declaration: defaults fill in, required arguments must be present, and
// declared validators run. All problems are recorded as violations and
// raised together after the whole document is processed.
func (b *treeBuilder) resolveArguments(typeName string, def *schema.Field, args language.ArgumentList) map[string]any {
	if len(args) == 0 && len(def.Arguments) == 0 {
		return nil
	}
	out := make(map[string]any)
	for _, a := range args {
		decl := def.GetArgument(a.Name)
		if decl == nil {
			b.violations = append(b.violations, violationf(a.Position, "field %s.%s has no argument %q", typeName, def.Name, a.Name))
			continue
		}
		v, err := a.Value.Value(b.vars)
		if err != nil {
			b.violations = append(b.violations, violationf(a.Position, "argument %q: %v", a.Name, err))
			continue
		}
		out[a.Name] = v
	}
	for _, decl := range def.Arguments {
		v, present := out[decl.Name]
		if !present {
			if decl.DefaultValue != nil {
				out[decl.Name] = decl.DefaultValue
				v, present = decl.DefaultValue, true
			} else if decl.Required {
				b.violations = append(b.violations, violationf(nil, "field %s.%s: required argument %q missing", typeName, def.Name, decl.Name))
				continue
			}
		}
		if present && decl.Validate != nil {
			if err := decl.Validate(v); err != nil {
				b.violations = append(b.violations, violationf(nil, "field %s.%s: argument %q: %v", typeName, def.Name, decl.Name, err))
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func violationf(pos *language.Position, format string, args ...any) *schema.Violation {
	v := &schema.Violation{Message: fmt.Sprintf(format, args...)}
	if pos != nil && pos.Src != nil {
		v.File = pos.Src.Name
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}
