package types

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the failure classes an analysis can produce.
type Kind int

const (
	KindUnexpected Kind = iota
	KindSchema
	KindDivisionByZero
	KindCoercion
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema_error"
	case KindDivisionByZero:
		return "division_by_zero"
	case KindCoercion:
		return "coercion_issue"
	case KindInput:
		return "bad_request"
	default:
		return "unexpected"
	}
}

// SchemaError reports required columns absent from an input table.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Table, strings.Join(e.Missing, ", "))
}

// DivisionByZeroError reports a percentage whose denominator is zero.
type DivisionByZeroError struct {
	Metric      string
	Denominator string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("cannot compute %s: %s is zero", e.Metric, e.Denominator)
}

// CoercionError wraps a single CoercionIssue. It is never fatal for an
// analysis but lets callers classify per-cell failures uniformly.
type CoercionError struct {
	Issue CoercionIssue
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s row %d: cannot parse %s %q", e.Issue.Table, e.Issue.Row, e.Issue.Field, e.Issue.Value)
}

// InputError reports an upload that could not be decoded at all: a missing
// file, a malformed CSV stream, a corrupt Parquet footer.
type InputError struct {
	Table string
	Err   error
}

func (e *InputError) Error() string {
	if e.Table == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: unreadable upload: %v", e.Table, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// KindOf classifies err. A nil error has no kind and reports KindUnexpected.
func KindOf(err error) Kind {
	var (
		schema *SchemaError
		div    *DivisionByZeroError
		coerce *CoercionError
		input  *InputError
	)
	switch {
	case errors.As(err, &schema):
		return KindSchema
	case errors.As(err, &div):
		return KindDivisionByZero
	case errors.As(err, &coerce):
		return KindCoercion
	case errors.As(err, &input):
		return KindInput
	default:
		return KindUnexpected
	}
}
