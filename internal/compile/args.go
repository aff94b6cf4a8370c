package compile

// EffectiveArguments returns the node's arguments after inheritance. When
// the field declares an argument source, the nearest ancestor whose field
// name matches contributes its resolved arguments; the node's own values
// win on collision. Without a matching ancestor the node's own arguments
// stand alone.
func EffectiveArguments(n *Node) map[string]any {
	if n.Field == nil || n.Field.ArgumentSource == "" {
		return n.Arguments
	}
	var inherited map[string]any
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Field != nil && p.Field.Name == n.Field.ArgumentSource {
			inherited = p.Arguments
			break
		}
	}
	if len(inherited) == 0 {
		return n.Arguments
	}
	out := make(map[string]any, len(inherited)+len(n.Arguments))
	for k, v := range inherited {
		out[k] = v
	}
	for k, v := range n.Arguments {
		out[k] = v
	}
	return out
}
