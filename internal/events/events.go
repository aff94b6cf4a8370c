// Package events declares the typed events published on the bus, one
// start/finish pair per stage of serving a plan: the HTTP request, the
// compilation, and each backing service call. Events carry plain values;
// the request context and its correlation ID travel with Publish.
package events

import (
	"time"

	"google.golang.org/grpc/codes"
)

// HTTPStart is emitted when the plan endpoint receives a request.
type HTTPStart struct {
	Method string
	Path   string
}

// HTTPFinish is emitted once the response is written.
type HTTPFinish struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

// CompileStart is emitted before compiling a query document.
type CompileStart struct {
	Query         string
	OperationName string
}

// CompileFinish is emitted after compilation completes.
type CompileFinish struct {
	Query         string
	OperationName string
	TwoPass       bool
	Slots         int
	FieldErrors   int
	Err           error
	Duration      time.Duration
}

// ServiceCallStart is emitted before the provider invokes a
// schema-declared service over gRPC.
type ServiceCallStart struct {
	Service string
	Method  string
	Target  string
}

// ServiceCallFinish is emitted after the invocation completes.
type ServiceCallFinish struct {
	Service  string
	Method   string
	Target   string
	Code     codes.Code
	Err      error
	Duration time.Duration
}
