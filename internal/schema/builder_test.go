package schema

import (
	"testing"

	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/extensions"
	"github.com/stretchr/testify/require"
)

const testSDL = `
type Query {
    person: Person
    people(filter: String, sort: String, offset: Int, limit: Int): [Person!] @filter @sort @paging(defaultLimit: 100)
}

type Person {
    name: String!
    firstName: String!
    lastName: String!
    fullName: String @service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])
    friends: [Person!] @argsFrom(field: "people")
}
`

func TestBuild(t *testing.T) {
	s, err := Build("test.graphql", testSDL)
	require.NoError(t, err)

	require.Equal(t, "Query", s.QueryType)
	require.Empty(t, s.MutationType)

	person := s.Types["Person"]
	require.NotNil(t, person)
	require.Equal(t, TypeKindObject, person.Kind)

	t.Run("service directive", func(t *testing.T) {
		fullName := person.GetField("fullName")
		require.NotNil(t, fullName)
		require.Equal(t, []string{"Formatter"}, fullName.Services)
		require.True(t, fullName.HasServices())
		require.Len(t, fullName.ServiceMethods, 1)
		require.Equal(t, &ServiceMethod{
			Service:  "Formatter",
			Method:   "Format",
			Requires: []string{"firstName", "lastName"},
		}, fullName.ServiceMethods[0])

		source := &expr.Parameter{Name: "p", TypeName: "Person"}
		e := fullName.Resolve(source, nil)
		require.Equal(t, "Formatter.Format(p.FirstName, p.LastName)", expr.Render(e))
	})

	t.Run("argsFrom directive", func(t *testing.T) {
		friends := person.GetField("friends")
		require.NotNil(t, friends)
		require.Equal(t, "people", friends.ArgumentSource)
	})

	t.Run("extension directives in declared order", func(t *testing.T) {
		people := s.Types["Query"].GetField("people")
		require.NotNil(t, people)
		require.Len(t, people.Extensions, 3)
		require.IsType(t, &extensions.Filter{}, people.Extensions[0])
		require.IsType(t, &extensions.Sort{}, people.Extensions[1])
		paging, ok := people.Extensions[2].(*extensions.Paging)
		require.True(t, ok)
		require.Equal(t, 100, paging.DefaultLimit)
	})

	t.Run("arguments", func(t *testing.T) {
		people := s.Types["Query"].GetField("people")
		limit := people.GetArgument("limit")
		require.NotNil(t, limit)
		require.False(t, limit.Required)
		require.Equal(t, "Int", limit.Type.GetNamedType())
	})

	t.Run("type refs", func(t *testing.T) {
		people := s.Types["Query"].GetField("people")
		require.True(t, people.Type.IsList())
		require.Equal(t, "Person", people.Type.GetNamedType())
		name := person.GetField("name")
		require.True(t, name.Type.IsNonNull())
	})
}

func TestBuild_ViolationsBatch(t *testing.T) {
	_, err := Build("bad.graphql", `
type Query {
    a: Missing
    b: AlsoMissing
    c: String @argsFrom
}
`)
	require.Error(t, err)
	verr, ok := err.(ValidationError)
	require.True(t, ok, "want ValidationError, got %T", err)
	// All three problems reported together, not just the first.
	require.Len(t, verr, 3)
}

func TestRender_ReconstructsFieldDirectives(t *testing.T) {
	s, err := Build("test.graphql", testSDL)
	require.NoError(t, err)
	out := Render(s)
	require.Contains(t, out, `fullName: String @service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])`)
	require.Contains(t, out, `@filter @sort @paging(defaultLimit: 100)`)
	require.Contains(t, out, `friends: [Person!] @argsFrom(field: "people")`)
}

func TestDefaultResolve(t *testing.T) {
	f := &Field{Name: "firstName", Type: NonNullType(NamedType("String"))}
	source := &expr.Parameter{Name: "p", TypeName: "Person"}
	e := DefaultResolve(f)(source, nil)
	require.Equal(t, "p.FirstName", expr.Render(e))
	m := e.(*expr.Member)
	require.False(t, m.Nullable)
}
