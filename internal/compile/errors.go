package compile

import "fmt"

// CompileError is a structural problem that aborts the whole compilation:
// cyclic fragment expansion, an unknown field, a service computation
// referencing the bare context.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return "compile: " + e.Message }

func compileErrorf(format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}

// FieldError is a per-field failure that removes one subtree from the
// output without aborting the document. Authorization failures surface
// here.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
