// Package schema holds the typed schema the compiler works against: named
// types, field definitions with their extensions and service requirements,
// and directive metadata.
package schema

import (
	"context"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/extensions"
)

// Schema is the complete compiled schema.
type Schema struct {
	QueryType    string
	MutationType string
	Types        map[string]*Type // All named types keyed by name
	Directives   map[string]*Directive
	Description  string
}

func NewSchema(description string) *Schema {
	return &Schema{
		Types:       map[string]*Type{},
		Directives:  map[string]*Directive{},
		Description: description,
	}
}

// GetQueryType returns the root query type (may be nil if absent).
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent).
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// Type is a named schema type.
type Type struct {
	Name        string
	Kind        TypeKind
	Description string
	Fields      []*Field      // For OBJECT
	EnumValues  []*EnumValue  // For ENUM
	InputFields []*InputValue // For INPUT_OBJECT
}

// GetField returns the field definition by name, or nil.
func (t *Type) GetField(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

// TypeKind represents the kind of schema type.
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// ResolveFunc produces a field's base expression over the given source
// context, with the field's effective arguments in hand. args values may be
// lifted placeholder constants.
type ResolveFunc func(source expr.Expr, args map[string]any) expr.Expr

// AuthorizeFunc is the capability check consulted before a field is
// compiled. A non-nil error prevents compilation of the field's subtree and
// surfaces as a field-level error.
type AuthorizeFunc func(ctx context.Context) error

// Field is a field definition on an object type.
type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*Argument

	// Services lists the service types this field's value requires at
	// runtime. A non-empty list makes the field service-bound: it is
	// omitted from the pure compilation pass and compiled against
	// materialized slots in the service pass.
	Services []string

	// ServiceMethods records the declared call bindings behind Services,
	// one per @service application. The SDL renderer and the gRPC
	// descriptor builder read these; Resolve is derived from the first.
	ServiceMethods []*ServiceMethod

	// ArgumentSource names the ancestor field this field inherits
	// arguments from. Empty means no inheritance.
	ArgumentSource string

	// Extensions rewrite the expression graph around this field, in
	// declaration order.
	Extensions []extensions.Extension

	// Resolve builds the field's base expression. Nil falls back to a
	// member access on the source context named after the field.
	Resolve ResolveFunc

	// Authorize is consulted before compiling the field. Nil means
	// unrestricted.
	Authorize AuthorizeFunc

	IsDeprecated      bool
	DeprecationReason string
}

// HasServices reports whether this definition itself declares required
// services. The compiler's HasAnyServices recurses over child fields.
func (f *Field) HasServices() bool { return len(f.Services) > 0 }

// ServiceMethod is one declared service call binding.
type ServiceMethod struct {
	Service  string
	Method   string
	Requires []string
}

// Argument is a declared field argument.
type Argument struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any
	Required     bool

	// Validate checks a resolved argument value. Failures are collected
	// across all arguments of a field and raised together.
	Validate func(value any) error
}

// GetArgument returns the argument definition by name, or nil.
func (f *Field) GetArgument(name string) *Argument {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any
}

// Directive is schema-level directive metadata. Executable behavior is
// registered with the compiler separately; nodes reference directives by
// name.
type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

// TypeRef references a type, possibly wrapped in List/Non-Null.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// IsList reports whether the type is (or is wrapped by) a list type.
func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

// Unwrap removes one layer of Non-Null or List wrapping.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// GetNamedType returns the innermost named type.
func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}
