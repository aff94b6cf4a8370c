package compile

// Expand applies every node's directive chain and inlines fragment nodes
// into their enclosing selection, in place. After Expand the tree contains
// no fragment nodes and no unconsumed directives, so expanding an already
// expanded tree is a no-op.
func Expand(req *Request, root *Node) error {
	children, err := expandChildren(req.directives(), root.ChildFields)
	if err != nil {
		return err
	}
	root.ChildFields = nil
	for _, c := range children {
		root.AddField(c)
	}
	return nil
}

func expandChildren(reg DirectiveRegistry, nodes []*Node) ([]*Node, error) {
	var out []*Node
	for _, n := range nodes {
		n, err := reg.apply(n)
		if err != nil {
			return nil, err
		}
		if n == nil {
			continue
		}
		n.Directives = nil
		kids, err := expandChildren(reg, n.ChildFields)
		if err != nil {
			return nil, err
		}
		if n.Kind == KindFragment {
			out = append(out, kids...)
			continue
		}
		n.ChildFields = nil
		for _, k := range kids {
			n.AddField(k)
		}
		out = append(out, n)
	}
	return out, nil
}
