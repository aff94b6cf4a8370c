package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cyl1d3/EntityGraphQL/internal/extensions"
)

// Render produces SDL from the Schema, reconstructing the field-definition
// directives the builder folded into Field metadata.
// Deterministic ordering: type names sorted lexicographically.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		switch typ {
		case stringType, intType, floatType, booleanType, idType:
			continue
		default:
			typeNames = append(typeNames, name)
		}
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderDescription(&b, typ.Description)
			b.WriteString("scalar ")
			b.WriteString(typ.Name)
			b.WriteString("\n\n")
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, typ)
		case TypeKindObject:
			renderObject(&b, typ)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderDescription(b *strings.Builder, desc string) {
	if desc == "" {
		return
	}
	b.WriteString("\"\"\"\n")
	b.WriteString(strings.ReplaceAll(desc, "\"", "\\\""))
	b.WriteString("\n\"\"\"\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description)
	b.WriteString("enum ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, val := range typ.EnumValues {
		b.WriteString("  ")
		b.WriteString(val.Name)
		if val.IsDeprecated {
			b.WriteString(" @deprecated")
			if val.DeprecationReason != "" {
				fmt.Fprintf(b, "(reason: %q)", val.DeprecationReason)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description)
	b.WriteString("input ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, f := range typ.InputFields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(RenderTypeRef(f.Type))
		if f.DefaultValue != nil {
			fmt.Fprintf(b, " = %s", renderValue(f.DefaultValue))
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description)
	b.WriteString("type ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, f := range typ.Fields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		renderArguments(b, f.Arguments)
		b.WriteString(": ")
		b.WriteString(RenderTypeRef(f.Type))
		renderFieldDirectives(b, f)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderArguments(b *strings.Builder, args []*Argument) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name)
		b.WriteString(": ")
		b.WriteString(RenderTypeRef(a.Type))
		if a.DefaultValue != nil {
			fmt.Fprintf(b, " = %s", renderValue(a.DefaultValue))
		}
	}
	b.WriteString(")")
}

func renderFieldDirectives(b *strings.Builder, f *Field) {
	for _, sm := range f.ServiceMethods {
		fmt.Fprintf(b, " @service(name: %q, method: %q", sm.Service, sm.Method)
		if len(sm.Requires) > 0 {
			b.WriteString(", requires: [")
			for i, req := range sm.Requires {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%q", req)
			}
			b.WriteString("]")
		}
		b.WriteString(")")
	}
	if f.ArgumentSource != "" {
		fmt.Fprintf(b, " @argsFrom(field: %q)", f.ArgumentSource)
	}
	for _, ext := range f.Extensions {
		switch e := ext.(type) {
		case *extensions.Filter:
			if e.Arg != "" {
				fmt.Fprintf(b, " @filter(arg: %q)", e.Arg)
			} else {
				b.WriteString(" @filter")
			}
		case *extensions.Sort:
			if e.Arg != "" {
				fmt.Fprintf(b, " @sort(arg: %q)", e.Arg)
			} else {
				b.WriteString(" @sort")
			}
		case *extensions.Paging:
			if e.DefaultLimit > 0 {
				fmt.Fprintf(b, " @paging(defaultLimit: %d)", e.DefaultLimit)
			} else {
				b.WriteString(" @paging")
			}
		}
	}
	if f.IsDeprecated {
		b.WriteString(" @deprecated")
		if f.DeprecationReason != "" {
			fmt.Fprintf(b, "(reason: %q)", f.DeprecationReason)
		}
	}
}

// RenderTypeRef renders a type reference in SDL notation.
func RenderTypeRef(t *TypeRef) string {
	switch {
	case t == nil:
		return ""
	case t.Kind == TypeRefKindNonNull:
		return RenderTypeRef(t.OfType) + "!"
	case t.Kind == TypeRefKindList:
		return "[" + RenderTypeRef(t.OfType) + "]"
	default:
		return t.Named
	}
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
