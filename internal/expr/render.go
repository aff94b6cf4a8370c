package expr

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces the canonical textual form of an expression. The rendering
// is deterministic for a given graph, so it doubles as a structural
// fingerprint: named constants render as their placeholder, which keeps two
// compilations differing only in literal values textually identical.
func Render(e Expr) string {
	var sb strings.Builder
	render(&sb, e)
	return sb.String()
}

func render(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Parameter:
		sb.WriteString(n.Name)
	case *Constant:
		switch {
		case n.Name != "":
			sb.WriteByte('$')
			sb.WriteString(n.Name)
		case n.Value == nil:
			sb.WriteString("null")
		default:
			if s, ok := n.Value.(string); ok {
				fmt.Fprintf(sb, "%q", s)
			} else {
				fmt.Fprintf(sb, "%v", n.Value)
			}
		}
	case *Member:
		render(sb, n.Target)
		sb.WriteByte('.')
		sb.WriteString(n.Name)
	case *Call:
		if n.Service != "" {
			sb.WriteString(n.Service)
			sb.WriteByte('.')
		} else if n.Target != nil {
			render(sb, n.Target)
			sb.WriteByte('.')
		}
		sb.WriteString(n.Method)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, a)
		}
		sb.WriteByte(')')
	case *Lambda:
		sb.WriteByte('(')
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
		}
		sb.WriteString(") => ")
		render(sb, n.Body)
	case *Projection:
		if n.Item != nil {
			render(sb, n.Source)
			sb.WriteString(".Select(")
			sb.WriteString(n.Item.Name)
			sb.WriteString(" => ")
			renderFields(sb, n.Fields)
			sb.WriteByte(')')
		} else {
			renderFields(sb, n.Fields)
		}
	case *Condition:
		sb.WriteString("iif(")
		render(sb, n.Test)
		sb.WriteString(", ")
		render(sb, n.IfTrue)
		sb.WriteString(", ")
		render(sb, n.IfFalse)
		sb.WriteByte(')')
	case *IsNull:
		render(sb, n.Target)
		sb.WriteString(" == null")
	case *Binary:
		sb.WriteByte('(')
		render(sb, n.Left)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		render(sb, n.Right)
		sb.WriteByte(')')
	case *Binding:
		sb.WriteString("let ")
		sb.WriteString(n.Param.Name)
		sb.WriteString(" = ")
		render(sb, n.Value)
		sb.WriteString(" in ")
		render(sb, n.Body)
	default:
		sb.WriteString("<?>")
	}
}

func renderFields(sb *strings.Builder, fields []ProjectedField) {
	sb.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Key)
		sb.WriteString(": ")
		render(sb, f.Value)
	}
	sb.WriteByte('}')
}

// KeyOf renders e and normalizes punctuation into an identifier-safe form.
// Structurally identical paths yield the same key, which is what the
// extractor dedups on and what names materialized slots.
func KeyOf(e Expr) string {
	raw := Render(e)
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}

// SortedKeys returns the keys of m in lexical order. Small helper for
// deterministic iteration in renderings and error messages.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
