package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cyl1d3/EntityGraphQL/internal/compile"
	"github.com/cyl1d3/EntityGraphQL/internal/eventbus"
	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	"github.com/cyl1d3/EntityGraphQL/internal/grpcsvc"
	language "github.com/cyl1d3/EntityGraphQL/internal/language"
	"github.com/cyl1d3/EntityGraphQL/internal/otel"
	"github.com/cyl1d3/EntityGraphQL/internal/schema"
	"github.com/cyl1d3/EntityGraphQL/internal/server"
)

const rootUsage = `entitygraphql — GraphQL query-to-expression compiler & tools

USAGE:
  entitygraphql <command> [flags]

COMMANDS:
  serve        Run the HTTP compile endpoint backed by gRPC services
  compile      Compile one query document into an expression plan
  render-sdl   Validate SDL and print its normalized form
  help         Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>                      GraphQL SDL file (required)
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.metadata-header <name>      Forward HTTP header to gRPC metadata. Repeatable
  -transport.backend <Svc=host:port>  Map gRPC service to endpoint. Repeatable; at least
                                      one mapping required. Use wildcard to set default:
                                        -transport.backend *=host:port
                                      Specific mappings override the wildcard.
  -transport.max-conns-per-endpoint N Max TCP conns per endpoint (default: 2)
  -transport.rpc-timeout <duration>   RPC timeout, e.g. 3s (default: 3s)
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: entitygraphql)
`

const compileUsage = `compile FLAGS:
  -schema <file>      GraphQL SDL file (required)
  -query <file>       Query document file (required)
  -operation <name>   Operation to compile when the document has several
  -variables <json>   Variable values as a JSON object
  -pretty             Pretty-print the plan JSON
`

const renderSDLUsage = `render-sdl FLAGS:
  -schema <file>  GraphQL SDL file (required)
  -out <file>     Write normalized SDL to file (default: stdout)
  (Validation always runs; exits non-zero on errors)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("entitygraphql", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "compile":
		return cmdCompile(cmdArgs)
	case "render-sdl":
		return cmdRenderSDL(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "compile":
		fmt.Print(compileUsage)
	case "render-sdl":
		fmt.Print(renderSDLUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type backendFlag struct {
	m map[string][]string
}

func (b *backendFlag) String() string { return "" }

func (b *backendFlag) Set(v string) error {
	parts := strings.SplitN(v, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid backend %q", v)
	}
	svc := strings.TrimSpace(parts[0])
	ep := strings.TrimSpace(parts[1])
	if svc == "" || ep == "" {
		return fmt.Errorf("invalid backend %q", v)
	}
	if b.m == nil {
		b.m = map[string][]string{}
	}
	b.m[svc] = append(b.m[svc], ep)
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, fmt.Errorf("-schema is required")
	}
	sdl, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.Build(path, string(sdl))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func cmdServe(args []string) error {
	schemaFile := ""
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	maxConns := 2
	rpcTimeout := 3 * time.Second
	otelEndpoint := ""
	otelService := "entitygraphql"
	var metadataHeaders stringListFlag
	var bf backendFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&metadataHeaders, "server.metadata-header", "Forward HTTP header to gRPC metadata")
	fs.Var(&bf, "transport.backend", "Map gRPC service to endpoint")
	fs.IntVar(&maxConns, "transport.max-conns-per-endpoint", maxConns, "Max conns per endpoint")
	fs.DurationVar(&rpcTimeout, "transport.rpc-timeout", rpcTimeout, "RPC timeout")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	reg, err := grpcsvc.BuildRegistry(sch)
	if err != nil {
		return fmt.Errorf("build service descriptors: %w", err)
	}

	wildcard := bf.m["*"]
	endpoints := map[string][]string{}
	for _, fd := range reg.Files() {
		svcs := fd.Services()
		for i := 0; i < svcs.Len(); i++ {
			svc := svcs.Get(i)
			fn := string(svc.FullName())

			eps := bf.m[fn]
			if len(eps) == 0 {
				eps = bf.m[string(svc.Name())]
			}
			if len(eps) == 0 {
				eps = wildcard
			}
			if len(eps) == 0 {
				return fmt.Errorf("no backend mapping for %s", fn)
			}
			endpoints[fn] = eps
		}
	}
	if len(endpoints) == 0 && len(reg.Files()) > 0 {
		return fmt.Errorf("no backend mappings provided")
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	trOpts := []grpcsvc.Option{
		grpcsvc.WithProvider(grpcsvc.NewStaticEndpoints(endpoints)),
		grpcsvc.WithMaxConnsPerEndpoint(maxConns),
	}
	if rpcTimeout > 0 {
		trOpts = append(trOpts, grpcsvc.WithRPCTimeout(rpcTimeout))
	}
	transport := grpcsvc.NewTransport(trOpts...)
	defer func() { _ = transport.Close() }()
	provider := grpcsvc.NewProvider(reg, transport)

	var sopts []server.Option
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(metadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(metadataHeaders...))
	}
	h, err := server.New(sch, provider, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("compile server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func cmdCompile(args []string) error {
	schemaFile := ""
	queryFile := ""
	operation := ""
	variablesJSON := ""
	pretty := false

	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&queryFile, "query", queryFile, "Query document file")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	fs.StringVar(&variablesJSON, "variables", variablesJSON, "Variable values as JSON")
	fs.BoolVar(&pretty, "pretty", pretty, "Pretty-print the plan JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, compileUsage)
		return err
	}
	if queryFile == "" {
		fmt.Fprint(os.Stderr, compileUsage)
		return fmt.Errorf("-query is required")
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		fmt.Fprint(os.Stderr, compileUsage)
		return err
	}
	src, err := os.ReadFile(queryFile)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	doc, err := language.ParseQuery(string(src))
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	vars := map[string]any{}
	if variablesJSON != "" {
		if err := json.Unmarshal([]byte(variablesJSON), &vars); err != nil {
			return fmt.Errorf("parse variables: %w", err)
		}
	}

	// A descriptor-backed provider with no transport is enough to compile:
	// service calls are planned, not performed.
	reg, err := grpcsvc.BuildRegistry(sch)
	if err != nil {
		return fmt.Errorf("build service descriptors: %w", err)
	}

	q, err := compile.CompileQuery(context.Background(), &compile.Request{
		Schema:    sch,
		Document:  doc,
		Variables: vars,
		Services:  grpcsvc.NewProvider(reg, nil),
	}, operation)
	if err != nil {
		return err
	}

	out := map[string]any{
		"passOne":     expr.Render(q.PassOne),
		"fingerprint": q.Fingerprint(),
	}
	if q.TwoPass() {
		out["passTwo"] = expr.Render(q.PassTwo)
	}
	if len(q.Slots) > 0 {
		out["slots"] = q.Slots
	}
	if len(q.ConstantParameters) > 0 {
		out["constants"] = q.ConstantParameters
	}
	if len(q.FieldErrors) > 0 {
		msgs := make([]string, len(q.FieldErrors))
		for i, fe := range q.FieldErrors {
			msgs[i] = fe.Error()
		}
		out["errors"] = msgs
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func cmdRenderSDL(args []string) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("render-sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write normalized SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, renderSDLUsage)
		return err
	}

	sch, err := loadSchema(schemaFile)
	if err != nil {
		fmt.Fprint(os.Stderr, renderSDLUsage)
		return err
	}
	sdl := schema.Render(sch)
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}
