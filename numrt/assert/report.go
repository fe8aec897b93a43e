package assert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ExitCode is the process exit status used when a check fails. It is the
// value a shell observes for exit(-1) and differs from the status 1 used for
// ordinary runtime failures.
const ExitCode = 255

// ErrAssertionFailed is the sentinel wrapped by TerminationError.
var ErrAssertionFailed = errors.New("assertion failed")

// Kind names the form of check that produced a report.
type Kind string

const (
	KindThat            Kind = "That"
	KindEquals          Kind = "Equals"
	KindNumericalEquals Kind = "NumericalEquals"
	KindVectorEquals    Kind = "VectorNumericalEquals"
	KindFail            Kind = "Fail"
)

// Location is the source position of a failed check.
type Location struct {
	File string
	Line int
}

// Report is the rendered content of one failed check. It only exists on the
// failure path and is always followed by process termination.
type Report struct {
	Kind        Kind
	Location    Location
	Expression  string
	Operands    []RenderedField
	Fields      []RenderedField
	Explanation string
}

// Field returns the rendered value of the named auxiliary field.
func (r *Report) Field(name string) (string, bool) {
	if r == nil {
		return "", false
	}

	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}

	return "", false
}

// String renders the report text, one item per line, ending in a newline.
func (r *Report) String() string {
	if r == nil {
		return ""
	}

	var sb strings.Builder

	if r.Kind == KindFail {
		fmt.Fprintf(&sb, "fail-assertion in file %s, line %d\n", r.Location.File, r.Location.Line)

		if r.Expression != "" {
			sb.WriteString(r.Expression)
			sb.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&sb, "assertion in file %s, line %d failed: %s\n", r.Location.File, r.Location.Line, r.Expression)
	}

	for _, op := range r.Operands {
		sb.WriteString(op.Name)
		sb.WriteString(": ")
		sb.WriteString(op.Value)
		sb.WriteString("\n")
	}

	for _, f := range r.Fields {
		sb.WriteString("parameter ")
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
		sb.WriteString("\n")
	}

	if r.Explanation != "" {
		sb.WriteString(r.Explanation)
		sb.WriteString("\n")
	}

	return sb.String()
}

// TerminationError is raised as a panic when an injected exit function
// returns instead of ending the process.
type TerminationError struct {
	Code   int
	Report *Report
}

// Error returns a one-line summary of the termination.
func (e *TerminationError) Error() string {
	if e == nil || e.Report == nil {
		return ErrAssertionFailed.Error()
	}

	return "assertion failed at " + e.Report.Location.File + ":" + strconv.Itoa(e.Report.Location.Line) +
		" (exit status " + strconv.Itoa(e.Code) + ")"
}

// Unwrap returns the sentinel assertion error for errors.Is.
func (e *TerminationError) Unwrap() error {
	return ErrAssertionFailed
}
