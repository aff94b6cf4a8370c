package expr

// Replace returns a copy of root with every occurrence of old (by pointer
// identity) substituted with repl. Untouched subtrees are shared, not
// copied.
func Replace(root, old, repl Expr) Expr {
	if root == nil {
		return nil
	}
	if root == old {
		return repl
	}
	switch n := root.(type) {
	case *Parameter, *Constant:
		return root
	case *Member:
		t := Replace(n.Target, old, repl)
		if t == n.Target {
			return n
		}
		m := *n
		m.Target = t
		return &m
	case *Call:
		changed := false
		var t Expr
		if n.Target != nil {
			t = Replace(n.Target, old, repl)
			changed = changed || t != n.Target
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Replace(a, old, repl)
			changed = changed || args[i] != a
		}
		if !changed {
			return n
		}
		return &Call{Target: t, Service: n.Service, Method: n.Method, Args: args}
	case *Lambda:
		b := Replace(n.Body, old, repl)
		if b == n.Body {
			return n
		}
		l := *n
		l.Body = b
		return &l
	case *Projection:
		changed := false
		var src Expr
		if n.Source != nil {
			src = Replace(n.Source, old, repl)
			changed = changed || src != n.Source
		}
		fields := make([]ProjectedField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = ProjectedField{Key: f.Key, Value: Replace(f.Value, old, repl)}
			changed = changed || fields[i].Value != f.Value
		}
		if !changed {
			return n
		}
		return &Projection{Source: src, Item: n.Item, Fields: fields}
	case *Condition:
		test := Replace(n.Test, old, repl)
		ifTrue := Replace(n.IfTrue, old, repl)
		ifFalse := Replace(n.IfFalse, old, repl)
		if test == n.Test && ifTrue == n.IfTrue && ifFalse == n.IfFalse {
			return n
		}
		return &Condition{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
	case *IsNull:
		t := Replace(n.Target, old, repl)
		if t == n.Target {
			return n
		}
		return &IsNull{Target: t}
	case *Binary:
		l := Replace(n.Left, old, repl)
		r := Replace(n.Right, old, repl)
		if l == n.Left && r == n.Right {
			return n
		}
		return &Binary{Op: n.Op, Left: l, Right: r}
	case *Binding:
		v := Replace(n.Value, old, repl)
		b := Replace(n.Body, old, repl)
		if v == n.Value && b == n.Body {
			return n
		}
		return &Binding{Param: n.Param, Value: v, Body: b}
	default:
		return root
	}
}

// ReplaceAll applies Replace for each (old, repl) pair in order.
func ReplaceAll(root Expr, pairs map[Expr]Expr) Expr {
	for old, repl := range pairs {
		root = Replace(root, old, repl)
	}
	return root
}
