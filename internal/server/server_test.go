package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"google.golang.org/grpc/metadata"

	"github.com/cyl1d3/EntityGraphQL/internal/eventbus"
	"github.com/cyl1d3/EntityGraphQL/internal/events"
	"github.com/cyl1d3/EntityGraphQL/internal/reqid"
	"github.com/cyl1d3/EntityGraphQL/internal/schema"
	"github.com/cyl1d3/EntityGraphQL/internal/services"
)

const testSDL = `
type Query {
    hello: String!
    person: Person!
}

type Person {
    firstName: String!
    lastName: String!
    fullName: String! @service(name: "Formatter", method: "Format", requires: ["firstName", "lastName"])
}
`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.Build("test.graphql", testSDL)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	reg := services.NewRegistry()
	reg.Register("Formatter", services.InvokerFunc(func(ctx context.Context, method string, args []any) (any, error) {
		return nil, nil
	}))
	h, err := New(sch, reg, opts...)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

type wirePlan struct {
	PassOne     string         `json:"passOne"`
	PassTwo     string         `json:"passTwo"`
	Slots       []string       `json:"slots"`
	Constants   map[string]any `json:"constants"`
	Fingerprint string         `json:"fingerprint"`
}

type wireResponse struct {
	Plan   *wirePlan `json:"plan"`
	Errors []struct {
		Message string `json:"message"`
		Path    []any  `json:"path"`
	} `json:"errors"`
}

func post(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, wireResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var res wireResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return w, res
}

func TestCompilePlan(t *testing.T) {
	h := newTestHandler(t)
	w, res := post(t, h, `{"query":"{ hello }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if res.Plan == nil || res.Plan.PassOne != `{hello: ctx.Hello}` {
		t.Fatalf("unexpected plan: %+v", res.Plan)
	}
	if res.Plan.PassTwo != "" || len(res.Errors) > 0 {
		t.Fatalf("pure query should compile single-pass: %+v", res)
	}
}

func TestCompilePlanTwoPass(t *testing.T) {
	h := newTestHandler(t)
	w, res := post(t, h, `{"query":"{ person { fullName } }"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if res.Plan == nil || res.Plan.PassTwo == "" {
		t.Fatalf("expected a two-pass plan: %+v", res.Plan)
	}
	if len(res.Plan.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %v", res.Plan.Slots)
	}
	if res.Plan.Fingerprint == "" {
		t.Fatalf("missing fingerprint")
	}
}

func TestParseErrorReported(t *testing.T) {
	h := newTestHandler(t)
	w, res := post(t, h, `{"query":"{ hello "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if res.Plan != nil || len(res.Errors) == 0 {
		t.Fatalf("expected errors without a plan: %+v", res)
	}
}

func TestBatchRequests(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(
		`[{"query":"{ hello }"},{"query":"{ person { firstName } }"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out []wireResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode batch: %v\n%s", err, w.Body.String())
	}
	if len(out) != 2 || out[0].Plan == nil || out[1].Plan == nil {
		t.Fatalf("unexpected batch result: %+v", out)
	}
}

func TestGETQuery(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("GET", "/?query=%7B%20hello%20%7D", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var res wireResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Plan == nil {
		t.Fatalf("missing plan: %s", w.Body.String())
	}
}

func TestForwardedHeaders(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	var captured metadata.MD
	unsub := eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
		captured, _ = metadata.FromOutgoingContext(ctx)
	})
	defer unsub()

	h := newTestHandler(t, WithMetadataHeaders("X-Test"))
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test", "abc")
	req.Header.Set("X-Other", "nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if captured == nil || captured.Get("x-test")[0] != "abc" || len(captured.Get("x-other")) > 0 {
		t.Fatalf("metadata not propagated correctly: %v", captured)
	}
}

func TestRequestID(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	var capturedMD metadata.MD
	var capturedID int64
	unsub := eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
		capturedMD, _ = metadata.FromOutgoingContext(ctx)
		capturedID, _ = reqid.FromContext(ctx)
	})
	defer unsub()

	h := newTestHandler(t)
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if capturedID == 0 {
		t.Fatalf("missing request id in context")
	}
	if got := capturedMD.Get("graphql-request-id"); len(got) == 0 || got[0] != strconv.FormatInt(capturedID, 10) {
		t.Fatalf("metadata mismatch: %v id %d", capturedMD, capturedID)
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	// simple request
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))

	body := bytes.NewBufferString(`{"query":"1234567890"}`)
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}
