package expr

import "fmt"

// Extraction holds the distinct context-rooted sub-expressions found by
// Extract. Keys are canonical renderings (KeyOf) in first-seen order;
// structurally identical paths collapse into one key whose instance list
// records every original node, so each occurrence can later be replaced
// in place.
type Extraction struct {
	keys      []string
	instances map[string][]Expr
}

// Keys returns the slot names in first-seen order.
func (x *Extraction) Keys() []string { return x.keys }

// Instances returns the original expression nodes recorded under key.
func (x *Extraction) Instances(key string) []Expr { return x.instances[key] }

// Len reports the number of distinct slots.
func (x *Extraction) Len() int { return len(x.keys) }

func (x *Extraction) record(e Expr) {
	key := KeyOf(e)
	if _, ok := x.instances[key]; !ok {
		x.keys = append(x.keys, key)
	}
	x.instances[key] = append(x.instances[key], e)
}

// RootReferenceError reports a service computation that referenced the raw
// context parameter instead of a specific field path. There is no data slot
// that could stand in for the whole context, so this is fatal.
type RootReferenceError struct {
	Parameter string
}

func (e *RootReferenceError) Error() string {
	return fmt.Sprintf("expression references the context parameter %q directly; service computations must access a specific field or method of the context so its value can be materialized", e.Parameter)
}

// Extract walks e and collects every maximal sub-expression rooted at root:
// a member-access chain or an instance method call reaching the context,
// captured at the outermost point. matchByType relaxes the root check from
// parameter identity to parameter type name, for re-entrant composition
// where the literal parameter differs but the contextual type matches.
//
// A bare reference to root with no enclosing extractable unit is a
// *RootReferenceError.
func Extract(root *Parameter, e Expr, matchByType bool) (*Extraction, error) {
	x := &Extraction{instances: map[string][]Expr{}}
	m := &extractor{root: root, matchByType: matchByType, out: x}
	if err := m.walk(e, false); err != nil {
		return nil, err
	}
	return x, nil
}

type extractor struct {
	root        *Parameter
	matchByType bool
	out         *Extraction
}

func (m *extractor) isRoot(p *Parameter) bool {
	if m.matchByType {
		return p.TypeName != "" && p.TypeName == m.root.TypeName
	}
	return p == m.root
}

// rooted reports whether the member/call chain of e terminates at the
// context parameter.
func (m *extractor) rooted(e Expr) bool {
	for {
		switch n := e.(type) {
		case *Parameter:
			return m.isRoot(n)
		case *Member:
			e = n.Target
		case *Call:
			if n.Target == nil {
				return false
			}
			e = n.Target
		default:
			return false
		}
	}
}

// walk carries "the currently open extractable unit, or none" as the open
// argument rather than shared stack state, so each branch decides locally
// whether it starts a new unit.
func (m *extractor) walk(e Expr, open bool) error {
	switch n := e.(type) {
	case nil:
		return nil
	case *Parameter:
		if !open && m.isRoot(n) {
			return &RootReferenceError{Parameter: n.Name}
		}
		return nil
	case *Constant:
		return nil
	case *Member:
		if !open && !n.Transparent && m.rooted(n) {
			m.out.record(n)
			return m.walk(n.Target, true)
		}
		// A transparent accessor never opens its own unit; the walk
		// continues into its target, where the wrapped value opens one.
		return m.walk(n.Target, open)
	case *Call:
		if !open && n.Target != nil && m.rooted(n) {
			m.out.record(n)
			open = true
		}
		if n.Target != nil {
			if err := m.walk(n.Target, open); err != nil {
				return err
			}
		}
		for _, a := range n.Args {
			if err := m.walk(a, open); err != nil {
				return err
			}
		}
		return nil
	case *Lambda:
		return m.walk(n.Body, open)
	case *Projection:
		if err := m.walk(n.Source, open); err != nil {
			return err
		}
		for _, f := range n.Fields {
			if err := m.walk(f.Value, open); err != nil {
				return err
			}
		}
		return nil
	case *Condition:
		if err := m.walk(n.Test, open); err != nil {
			return err
		}
		if err := m.walk(n.IfTrue, open); err != nil {
			return err
		}
		return m.walk(n.IfFalse, open)
	case *IsNull:
		return m.walk(n.Target, open)
	case *Binary:
		if err := m.walk(n.Left, open); err != nil {
			return err
		}
		return m.walk(n.Right, open)
	case *Binding:
		if err := m.walk(n.Value, open); err != nil {
			return err
		}
		return m.walk(n.Body, open)
	default:
		return fmt.Errorf("extract: unknown expression node %T", e)
	}
}
