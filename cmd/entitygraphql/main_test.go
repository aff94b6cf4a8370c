package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSDL = `
type Query {
    person: Person!
}

type Person {
    firstName: String!
    lastName: String!
    fullName: String! @service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])
}
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { io.Copy(&buf, r); close(done) }()

	runErr := fn()
	w.Close()
	<-done
	return buf.String(), runErr
}

func TestRun_UnknownCommand(t *testing.T) {
	require.Error(t, run([]string{"frobnicate"}))
	require.Error(t, run(nil))
}

func TestRun_Help(t *testing.T) {
	out, err := captureStdout(t, func() error { return run([]string{"help", "compile"}) })
	require.NoError(t, err)
	require.Contains(t, out, "-query")
}

func TestRun_Compile(t *testing.T) {
	schemaPath := writeTempFile(t, "schema.graphql", testSDL)
	queryPath := writeTempFile(t, "query.graphql", `{ person { firstName fullName } }`)

	out, err := captureStdout(t, func() error {
		return run([]string{"compile", "-schema", schemaPath, "-query", queryPath})
	})
	require.NoError(t, err)

	var plan map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Contains(t, plan["passOne"], "ctx.Person.FirstName")
	require.Contains(t, plan["passTwo"], "Formatter.Format")
	require.NotEmpty(t, plan["fingerprint"])
}

func TestRun_CompileMissingQuery(t *testing.T) {
	schemaPath := writeTempFile(t, "schema.graphql", testSDL)
	require.Error(t, run([]string{"compile", "-schema", schemaPath}))
}

func TestRun_RenderSDL(t *testing.T) {
	schemaPath := writeTempFile(t, "schema.graphql", testSDL)
	out, err := captureStdout(t, func() error {
		return run([]string{"render-sdl", "-schema", schemaPath})
	})
	require.NoError(t, err)
	require.Contains(t, out, `@service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])`)
}

func TestRun_RenderSDLInvalidSchema(t *testing.T) {
	schemaPath := writeTempFile(t, "schema.graphql", `type Query { a: Missing }`)
	require.Error(t, run([]string{"render-sdl", "-schema", schemaPath}))
}
