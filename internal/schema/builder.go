package schema

import (
	"strings"
	"unicode"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/extensions"
	language "github.com/cyl1d3/EntityGraphQL/internal/language"
)

// Build parses SDL and builds an executable schema. Field-definition
// directives are folded into Field metadata:
//
//	@service(name:, method:, requires:)  → service-bound Resolve
//	@argsFrom(field:)                    → argument inheritance source
//	@sort(arg:) @filter(arg:) @paging(…) → extension pipeline, declared order
//
// Problems are collected and returned together as a ValidationError.
func Build(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a schema from an already-parsed SDL document.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema("")
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective).
		AddDirective(serviceDirective).
		AddDirective(argsFromDirective).
		AddDirective(sortDirective).
		AddDirective(filterDirective).
		AddDirective(pagingDirective).
		AddDirective(deprecatedDirective)

	var violations ValidationError

	for _, def := range doc.Definitions {
		if _, exists := s.Types[def.Name]; exists {
			violations = append(violations, violationf(def.Position, "duplicate type definition %q", def.Name))
			continue
		}
		switch def.Kind {
		case language.Object:
			s.AddType(buildObject(def, &violations))
		case language.Scalar:
			s.AddType(&Type{Name: def.Name, Kind: TypeKindScalar, Description: def.Description})
		case language.Enum:
			s.AddType(buildEnum(def))
		case language.InputObject:
			s.AddType(buildInput(def, &violations))
		default:
			violations = append(violations, violationf(def.Position, "unsupported definition kind %s for %q", def.Kind, def.Name))
		}
	}

	s.QueryType = "Query"
	if _, ok := s.Types["Mutation"]; ok {
		s.MutationType = "Mutation"
	}
	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.QueryType = op.Type
			case language.Mutation:
				s.MutationType = op.Type
			}
		}
	}
	if _, ok := s.Types[s.QueryType]; !ok {
		violations = append(violations, violationf(nil, "schema has no query type %q", s.QueryType))
	}

	// Referenced types must exist.
	for _, t := range s.Types {
		for _, f := range t.Fields {
			if named := f.Type.GetNamedType(); named != "" {
				if _, ok := s.Types[named]; !ok {
					violations = append(violations, violationf(nil, "field %s.%s references unknown type %q", t.Name, f.Name, named))
				}
			}
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return s, nil
}

func buildObject(def *language.Definition, violations *ValidationError) *Type {
	t := &Type{Name: def.Name, Kind: TypeKindObject, Description: def.Description}
	for _, fd := range def.Fields {
		t.AddField(buildField(def.Name, fd, violations))
	}
	return t
}

func buildField(typeName string, fd *language.FieldDefinition, violations *ValidationError) *Field {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        convertTypeRef(fd.Type),
	}
	for _, ad := range fd.Arguments {
		arg := &Argument{
			Name:     ad.Name,
			Type:     convertTypeRef(ad.Type),
			Required: ad.Type != nil && ad.Type.NonNull && ad.DefaultValue == nil,
		}
		if ad.DefaultValue != nil {
			v, err := ad.DefaultValue.Value(nil)
			if err != nil {
				*violations = append(*violations, violationf(ad.Position, "argument %s.%s(%s): bad default: %v", typeName, fd.Name, ad.Name, err))
			} else {
				arg.DefaultValue = v
			}
		}
		f.Arguments = append(f.Arguments, arg)
	}

	for _, d := range fd.Directives {
		switch d.Name {
		case "service":
			applyServiceDirective(f, d, typeName, violations)
		case "argsFrom":
			src := directiveArgString(d, "field")
			if src == "" {
				*violations = append(*violations, violationf(d.Position, "field %s.%s: @argsFrom requires a field name", typeName, fd.Name))
				continue
			}
			f.ArgumentSource = src
		case "sort":
			f.Extensions = append(f.Extensions, &extensions.Sort{Arg: directiveArgString(d, "arg")})
		case "filter":
			f.Extensions = append(f.Extensions, &extensions.Filter{Arg: directiveArgString(d, "arg")})
		case "paging":
			f.Extensions = append(f.Extensions, &extensions.Paging{
				OffsetArg:    directiveArgString(d, "offsetArg"),
				LimitArg:     directiveArgString(d, "limitArg"),
				DefaultLimit: directiveArgInt(d, "defaultLimit"),
			})
		case "deprecated":
			f.IsDeprecated = true
			if reason := directiveArgString(d, "reason"); reason != "" {
				f.DeprecationReason = reason
			}
		default:
			*violations = append(*violations, violationf(d.Position, "field %s.%s: unknown directive @%s", typeName, fd.Name, d.Name))
		}
	}
	return f
}

// applyServiceDirective turns @service into a service-bound Resolve: a call
// on the named service whose arguments are the declared context paths.
func applyServiceDirective(f *Field, d *language.Directive, typeName string, violations *ValidationError) {
	svc := directiveArgString(d, "name")
	if svc == "" {
		*violations = append(*violations, violationf(d.Position, "field %s.%s: @service requires a service name", typeName, f.Name))
		return
	}
	method := directiveArgString(d, "method")
	if method == "" {
		method = Exported(f.Name)
	}
	requires := directiveArgStrings(d, "requires")
	f.Services = append(f.Services, svc)
	f.ServiceMethods = append(f.ServiceMethods, &ServiceMethod{Service: svc, Method: method, Requires: requires})
	f.Resolve = func(source expr.Expr, args map[string]any) expr.Expr {
		callArgs := make([]expr.Expr, 0, len(requires)+len(args))
		for _, path := range requires {
			callArgs = append(callArgs, MemberPath(source, path))
		}
		// Declared-order argument constants follow the context paths.
		for _, a := range f.Arguments {
			if v, ok := args[a.Name]; ok {
				if e, isExpr := v.(expr.Expr); isExpr {
					callArgs = append(callArgs, e)
				} else {
					callArgs = append(callArgs, &expr.Constant{Value: v})
				}
			}
		}
		return &expr.Call{Service: svc, Method: method, Args: callArgs}
	}
}

func buildEnum(def *language.Definition) *Type {
	t := &Type{Name: def.Name, Kind: TypeKindEnum, Description: def.Description}
	for _, ev := range def.EnumValues {
		t.EnumValues = append(t.EnumValues, &EnumValue{Name: ev.Name, Description: ev.Description})
	}
	return t
}

func buildInput(def *language.Definition, violations *ValidationError) *Type {
	t := &Type{Name: def.Name, Kind: TypeKindInputObject, Description: def.Description}
	for _, fd := range def.Fields {
		iv := &InputValue{Name: fd.Name, Description: fd.Description, Type: convertTypeRef(fd.Type)}
		if fd.DefaultValue != nil {
			v, err := fd.DefaultValue.Value(nil)
			if err != nil {
				*violations = append(*violations, violationf(fd.Position, "input %s.%s: bad default: %v", def.Name, fd.Name, err))
			} else {
				iv.DefaultValue = v
			}
		}
		t.InputFields = append(t.InputFields, iv)
	}
	return t
}

func convertTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.NamedType != "" {
		ref = NamedType(t.NamedType)
	} else {
		ref = ListType(convertTypeRef(t.Elem))
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func directiveArgString(d *language.Directive, name string) string {
	for _, a := range d.Arguments {
		if a.Name == name && a.Value != nil {
			v, err := a.Value.Value(nil)
			if err == nil {
				if s, ok := v.(string); ok {
					return s
				}
			}
		}
	}
	return ""
}

func directiveArgInt(d *language.Directive, name string) int {
	for _, a := range d.Arguments {
		if a.Name == name && a.Value != nil {
			v, err := a.Value.Value(nil)
			if err == nil {
				if n, ok := v.(int64); ok {
					return int(n)
				}
			}
		}
	}
	return 0
}

func directiveArgStrings(d *language.Directive, name string) []string {
	for _, a := range d.Arguments {
		if a.Name == name && a.Value != nil {
			v, err := a.Value.Value(nil)
			if err != nil {
				return nil
			}
			list, ok := v.([]any)
			if !ok {
				return nil
			}
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

// Exported capitalizes the first rune of a field name, mapping the query
// document's camelCase onto the data model's exported member names.
func Exported(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// MemberPath builds a member-access chain on source from a dotted,
// camelCase path.
func MemberPath(source expr.Expr, path string) expr.Expr {
	e := source
	for _, part := range strings.Split(path, ".") {
		e = &expr.Member{Target: e, Name: Exported(part)}
	}
	return e
}

// DefaultResolve is the fallback base expression: a member access on the
// source context named after the field.
func DefaultResolve(f *Field) ResolveFunc {
	return func(source expr.Expr, args map[string]any) expr.Expr {
		return &expr.Member{
			Target:   source,
			Name:     Exported(f.Name),
			Nullable: !f.Type.IsNonNull(),
		}
	}
}
