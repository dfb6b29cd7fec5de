package processor

import "fmt"

// InvalidInputError reports a ticker payload that is structurally unusable.
// It is the only condition under which a whole batch is rejected.
type InvalidInputError struct {
	Index  int // element index, -1 when the payload itself is malformed
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := "invalid ticker payload"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: element %d", msg, e.Index)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// FieldParseError records a single numeric field that could not be parsed.
// It never aborts normalization; the field is marked unavailable instead.
type FieldParseError struct {
	Symbol string
	Field  string
	Value  string
	Err    error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("%s: field %s: cannot parse %q: %v", e.Symbol, e.Field, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }
