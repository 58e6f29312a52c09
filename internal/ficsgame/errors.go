package ficsgame

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every ParseError.
var ErrMalformed = errors.New("malformed input")

const (
	FormatSummary = "summary"
	FormatStyle12 = "style12"
)

type ParseError struct {
	Format string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s: %q", e.Format, e.Reason, truncate(e.Input, 96))
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

func summaryErr(line, format string, args ...any) *ParseError {
	return &ParseError{Format: FormatSummary, Input: line, Reason: fmt.Sprintf(format, args...)}
}

func style12Err(line, format string, args ...any) *ParseError {
	return &ParseError{Format: FormatStyle12, Input: line, Reason: fmt.Sprintf(format, args...)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
