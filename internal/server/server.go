// Package server exposes query compilation over HTTP. A request carries a
// GraphQL document; the response carries the compiled plan (or errors)
// rather than executed data.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/cyl1d3/EntityGraphQL/internal/compile"
	"github.com/cyl1d3/EntityGraphQL/internal/eventbus"
	"github.com/cyl1d3/EntityGraphQL/internal/events"
	"github.com/cyl1d3/EntityGraphQL/internal/expr"
	language "github.com/cyl1d3/EntityGraphQL/internal/language"
	"github.com/cyl1d3/EntityGraphQL/internal/reqid"
	"github.com/cyl1d3/EntityGraphQL/internal/schema"
	"github.com/cyl1d3/EntityGraphQL/internal/services"
)

// Handler is an http.Handler that compiles GraphQL documents into query
// plans. It parses requests, runs the compiler, and formats responses.
type Handler struct {
	schema   *schema.Schema
	services services.Provider
	opt      Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into gRPC metadata.
	// Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// Directives is the executable directive registry. Nil gets the
	// standard include/skip set.
	Directives compile.DirectiveRegistry
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
func WithDirectives(reg compile.DirectiveRegistry) Option {
	return func(o *Options) { o.Directives = reg }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a compile HTTP handler over the given schema. provider may be
// nil for schemas without service-bound fields.
func New(sch *schema.Schema, provider services.Provider, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{schema: sch, services: provider, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Method: r.Method, Path: r.URL.Path})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Method: r.Method, Path: r.URL.Path, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, messageResponse("method not allowed"), h.opt.Pretty)
		return
	}

	// Map configured headers into metadata forwarded to service calls.
	md := metadata.MD{}
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{strconv.FormatInt(rid, 10)}
	ctx = metadata.NewOutgoingContext(ctx, md)

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != "" {
		status = http.StatusBadRequest
		if berr == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, messageResponse(berr), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.compileOne(ctx, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	writeJSON(w, status, h.compileOne(ctx, req), h.opt.Pretty)
}

func (h *Handler) compileOne(ctx context.Context, req GraphQLRequest) planResponse {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return errorResponse(err)
	}

	creq := &compile.Request{
		Schema:     h.schema,
		Document:   doc,
		Variables:  req.Variables,
		Services:   h.services,
		Directives: h.opt.Directives,
	}

	start := time.Now()
	eventbus.Publish(ctx, events.CompileStart{Query: req.Query, OperationName: req.OperationName})
	q, err := compile.CompileQuery(ctx, creq, req.OperationName)
	finish := events.CompileFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		Err:           err,
		Duration:      time.Since(start),
	}
	if q != nil {
		finish.TwoPass = q.TwoPass()
		finish.Slots = len(q.Slots)
		finish.FieldErrors = len(q.FieldErrors)
	}
	eventbus.Publish(ctx, finish)

	if err != nil {
		return errorResponse(err)
	}

	plan := &queryPlan{
		PassOne:     expr.Render(q.PassOne),
		Slots:       q.Slots,
		Constants:   q.ConstantParameters,
		Fingerprint: q.Fingerprint(),
	}
	if q.TwoPass() {
		plan.PassTwo = expr.Render(q.PassTwo)
	}
	res := planResponse{Plan: plan}
	for _, fe := range q.FieldErrors {
		res.Errors = append(res.Errors, specError{Message: fe.Err.Error(), Path: []any{fe.Field}})
	}
	return res
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, "missing 'query'"
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, "invalid 'variables' JSON"
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, ""
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;") {
		reader := io.Reader(r.Body)
		if maxBody > 0 {
			reader = io.LimitReader(r.Body, maxBody+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return GraphQLRequest{}, nil, "failed to read body"
		}
		defer r.Body.Close()
		if maxBody > 0 && int64(len(body)) > maxBody {
			return GraphQLRequest{}, nil, errBodyTooLargeMessage
		}

		// Try array (batch)
		var arr []GraphQLRequest
		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &arr); err != nil {
				return GraphQLRequest{}, nil, "invalid JSON"
			}
			if len(arr) == 0 {
				return GraphQLRequest{}, nil, "empty batch"
			}
			return GraphQLRequest{}, arr, ""
		}
		// Single
		var req GraphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return GraphQLRequest{}, nil, "invalid JSON"
		}
		if req.Query == "" {
			return GraphQLRequest{}, nil, "missing 'query'"
		}
		if req.Variables == nil {
			req.Variables = map[string]any{}
		}
		return req, nil, ""
	}

	return GraphQLRequest{}, nil, "unsupported Content-Type"
}

// ------------------ Response formatting ------------------

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message   string         `json:"message"`
	Locations []specLocation `json:"locations,omitempty"`
	Path      []any          `json:"path,omitempty"`
}

// queryPlan is the wire form of a compiled plan. PassTwo is present only
// for documents with service-bound fields.
type queryPlan struct {
	PassOne     string         `json:"passOne"`
	PassTwo     string         `json:"passTwo,omitempty"`
	Slots       []string       `json:"slots,omitempty"`
	Constants   map[string]any `json:"constants,omitempty"`
	Fingerprint string         `json:"fingerprint"`
}

type planResponse struct {
	Plan   *queryPlan  `json:"plan"`
	Errors []specError `json:"errors,omitempty"`
}

func messageResponse(msg string) planResponse {
	return planResponse{Errors: []specError{{Message: msg}}}
}

func errorResponse(err error) planResponse {
	var verr schema.ValidationError
	if errors.As(err, &verr) {
		out := planResponse{}
		for _, v := range verr {
			se := specError{Message: v.Message}
			if v.Line > 0 {
				se.Locations = []specLocation{{Line: v.Line, Column: v.Column}}
			}
			out.Errors = append(out.Errors, se)
		}
		return out
	}
	return messageResponse(err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if containsOrigin(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func containsOrigin(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
