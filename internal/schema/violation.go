package schema

import (
	"fmt"

	language "github.com/cyl1d3/EntityGraphQL/internal/language"
)

// Violation is one recoverable schema or argument problem. Violations are
// collected across a whole build/validation step and raised together as a
// ValidationError rather than aborting on the first.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

func violationf(pos *language.Position, format string, args ...any) *Violation {
	v := &Violation{Message: fmt.Sprintf(format, args...)}
	if pos != nil && pos.Src != nil {
		v.File = pos.Src.Name
		v.Line = pos.Line
		v.Column = pos.Column
	}
	return v
}
