package grpcsvc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cyl1d3/EntityGraphQL/internal/schema"
)

const testSDL = `
type Query {
    person: Person!
}

type Person {
    firstName: String!
    lastName: String!
    age: Int!
    fullName: String! @service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])
    initials: String! @service(name: "Formatter", method: "Initials", requires: ["firstName", "lastName"])
    bestFriend: Person! @service(name: "Matchmaker", method: "Match", requires: ["age"])
}
`

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := schema.Build("test.graphql", testSDL)
	require.NoError(t, err)
	reg, err := BuildRegistry(s)
	require.NoError(t, err)
	return reg
}

func TestBuildRegistry_OneFilePerService(t *testing.T) {
	reg := buildTestRegistry(t)
	files := reg.Files()
	require.Len(t, files, 2)

	var paths []string
	for _, fd := range files {
		paths = append(paths, fd.Path())
		require.Equal(t, "entitygraphql", string(fd.Package()))
	}
	if diff := cmp.Diff([]string{"entitygraphql/formatter.proto", "entitygraphql/matchmaker.proto"}, paths); diff != "" {
		t.Fatalf("file paths mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRegistry_MethodDescriptors(t *testing.T) {
	reg := buildTestRegistry(t)

	format := reg.Method("Formatter", "Format")
	require.NotNil(t, format)
	require.Equal(t, "entitygraphql.Formatter.Format", string(format.FullName()))
	require.Equal(t, "entitygraphql.FormatterInvokeRequest", string(format.Input().FullName()))
	require.Equal(t, "entitygraphql.FormatterInvokeResponse", string(format.Output().FullName()))
	require.NotNil(t, format.Input().Fields().ByName("args_json"))
	require.NotNil(t, format.Output().Fields().ByName("data_json"))

	var methods []string
	svc := reg.Files()[0].Services().Get(0)
	for i := 0; i < svc.Methods().Len(); i++ {
		methods = append(methods, string(svc.Methods().Get(i).Name()))
	}
	if diff := cmp.Diff([]string{"Format", "Initials"}, methods); diff != "" {
		t.Fatalf("Formatter methods mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, reg.Method("Matchmaker", "Match"))
	require.Nil(t, reg.Method("Formatter", "Missing"))
	require.Nil(t, reg.Method("Missing", "Format"))
}

func TestRegistry_HasService(t *testing.T) {
	reg := buildTestRegistry(t)
	require.True(t, reg.HasService("Formatter"))
	require.True(t, reg.HasService("Matchmaker"))
	require.False(t, reg.HasService("Oracle"))
}
