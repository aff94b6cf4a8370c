package schema

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Include this field only when the `if` argument is true.",
	Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	Arguments: []*InputValue{{
		Name: "if",
		Type: NonNullType(NamedType("Boolean")),
	}},
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Skip this field when the `if` argument is true.",
	Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	Arguments: []*InputValue{{
		Name: "if",
		Type: NonNullType(NamedType("Boolean")),
	}},
}

// Schema-definition directives consumed by the builder. They never reach
// the compiler; the builder folds them into Field metadata.
var serviceDirective = &Directive{
	Name:        "service",
	Description: "Binds the field's value to an external service method. `requires` lists the context paths the call reads.",
	Locations:   []string{"FIELD_DEFINITION"},
	Arguments: []*InputValue{
		{Name: "name", Type: NonNullType(NamedType("String"))},
		{Name: "method", Type: NamedType("String")},
		{Name: "requires", Type: ListType(NonNullType(NamedType("String")))},
	},
}

var argsFromDirective = &Directive{
	Name:        "argsFrom",
	Description: "Inherit arguments from the nearest ancestor with the named schema field; own arguments win on collision.",
	Locations:   []string{"FIELD_DEFINITION"},
	Arguments: []*InputValue{{
		Name: "field",
		Type: NonNullType(NamedType("String")),
	}},
}

var sortDirective = &Directive{
	Name:        "sort",
	Description: "Attach a sort extension driven by the named argument.",
	Locations:   []string{"FIELD_DEFINITION"},
	Arguments:   []*InputValue{{Name: "arg", Type: NamedType("String")}},
}

var filterDirective = &Directive{
	Name:        "filter",
	Description: "Attach a filter extension driven by the named argument.",
	Locations:   []string{"FIELD_DEFINITION"},
	Arguments:   []*InputValue{{Name: "arg", Type: NamedType("String")}},
}

var pagingDirective = &Directive{
	Name:        "paging",
	Description: "Attach offset/limit paging to a collection field.",
	Locations:   []string{"FIELD_DEFINITION"},
	Arguments: []*InputValue{
		{Name: "offsetArg", Type: NamedType("String")},
		{Name: "limitArg", Type: NamedType("String")},
		{Name: "defaultLimit", Type: NamedType("Int")},
	},
}

var deprecatedDirective = &Directive{
	Name:        "deprecated",
	Description: "Marks a field as no longer supported.",
	Locations:   []string{"FIELD_DEFINITION", "ENUM_VALUE"},
	Arguments: []*InputValue{{
		Name:         "reason",
		Type:         NamedType("String"),
		DefaultValue: "No longer supported",
	}},
}
