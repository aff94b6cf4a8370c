package language

import "github.com/vektah/gqlparser/v2/ast"

// Aliases for the parser AST nodes the compiler and schema builder walk,
// so the rest of the module imports one parsing surface.

// Executable documents.
type (
	QueryDocument       = ast.QueryDocument
	OperationDefinition = ast.OperationDefinition
	Operation           = ast.Operation
	SelectionSet        = ast.SelectionSet
	Field               = ast.Field
	FragmentDefinition  = ast.FragmentDefinition
	FragmentSpread      = ast.FragmentSpread
	InlineFragment      = ast.InlineFragment
)

// Schema documents.
type (
	SchemaDocument  = ast.SchemaDocument
	Definition      = ast.Definition
	DefinitionKind  = ast.DefinitionKind
	FieldDefinition = ast.FieldDefinition
	Type            = ast.Type
)

// Shared by both document kinds.
type (
	Directive     = ast.Directive
	DirectiveList = ast.DirectiveList
	ArgumentList  = ast.ArgumentList
	Position      = ast.Position
)

const (
	Query    Operation = ast.Query
	Mutation Operation = ast.Mutation

	Object      DefinitionKind = ast.Object
	Scalar      DefinitionKind = ast.Scalar
	Enum        DefinitionKind = ast.Enum
	InputObject DefinitionKind = ast.InputObject
)
