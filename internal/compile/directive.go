package compile

import "fmt"

// Directive alters or drops a field node at expansion time. Directives
// apply in declared order; each sees the node the previous directive
// produced. Returning (nil, nil) drops the field from the output, which is
// not an error.
type Directive interface {
	Name() string
	ProcessField(node *Node, args map[string]any) (*Node, error)
}

// DirectiveRegistry maps directive names to their executable behavior.
type DirectiveRegistry map[string]Directive

// NewDirectiveRegistry returns a registry with the standard include/skip
// directives.
func NewDirectiveRegistry() DirectiveRegistry {
	r := DirectiveRegistry{}
	r.Register(includeDirective{})
	r.Register(skipDirective{})
	return r
}

func (r DirectiveRegistry) Register(d Directive) { r[d.Name()] = d }

// apply runs the node's directive chain in declared order. A nil node
// result means the field was dropped.
func (r DirectiveRegistry) apply(n *Node) (*Node, error) {
	for _, use := range n.Directives {
		d, ok := r[use.Name]
		if !ok {
			return nil, compileErrorf("unknown directive @%s on field %q", use.Name, n.Name)
		}
		next, err := d.ProcessField(n, use.Args)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		n = next
	}
	return n, nil
}

type includeDirective struct{}

func (includeDirective) Name() string { return "include" }

func (includeDirective) ProcessField(node *Node, args map[string]any) (*Node, error) {
	cond, err := boolArg(args, "if", "include")
	if err != nil {
		return nil, err
	}
	if !cond {
		return nil, nil
	}
	return node, nil
}

type skipDirective struct{}

func (skipDirective) Name() string { return "skip" }

func (skipDirective) ProcessField(node *Node, args map[string]any) (*Node, error) {
	cond, err := boolArg(args, "if", "skip")
	if err != nil {
		return nil, err
	}
	if cond {
		return nil, nil
	}
	return node, nil
}

func boolArg(args map[string]any, name, directive string) (bool, error) {
	v, ok := args[name]
	if !ok {
		return false, compileErrorf("@%s requires an %q argument", directive, name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("@%s: argument %q must be a boolean, got %T", directive, name, v)
	}
	return b, nil
}
