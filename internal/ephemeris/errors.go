package ephemeris

import (
	"errors"
	"fmt"
)

// ErrTruncatedInput is matched by every *TruncatedInputError.
var ErrTruncatedInput = errors.New("ephemeris input ended mid-record")

// UnexpectedLabelError reports a line that does not start with the field label
// required at that position.
type UnexpectedLabelError struct {
	Expected string
	Line     string
}

func (e *UnexpectedLabelError) Error() string {
	return fmt.Sprintf("expected label %q, found %q", e.Expected, e.Line)
}

// NumericParseError reports a fixed-width field that is not a decimal float.
type NumericParseError struct {
	Field string
	Raw   string
	Err   error
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("field %s: cannot parse %q as float", e.Field, e.Raw)
}

func (e *NumericParseError) Unwrap() error { return e.Err }

// DateParseError reports an epoch preamble that is not
// "<julian day> = A.D. YYYY-Mon-DD HH:MM:SS".
type DateParseError struct {
	Raw string
	Err error
}

func (e *DateParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid epoch %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("invalid epoch %q", e.Raw)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// TruncatedInputError is returned when the line source ends before $$EOE.
type TruncatedInputError struct {
	// State is the parser state that was waiting for more input.
	State string
	// Lines is the number of lines consumed.
	Lines int
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("%v after %d lines (state %s)", ErrTruncatedInput, e.Lines, e.State)
}

func (e *TruncatedInputError) Is(target error) bool {
	return target == ErrTruncatedInput
}

// LineError locates a streaming parse failure.
type LineError struct {
	// Line is the 1-based number of the offending line.
	Line  int
	State string
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.State, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
