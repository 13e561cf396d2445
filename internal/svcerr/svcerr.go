package svcerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is the single error kind surfaced across component boundaries.
// Message is safe to show to users; Cause keeps the underlying failure.
type Error struct {
	Message string
	Cause   error
	Context map[string]string
}

// New creates an Error with the given message.
func New(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// Wrap creates an Error with the given message and cause.
func Wrap(cause error, format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...), Cause: cause}
}

// With returns e with key=value added to its context.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" | Details: ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Context[k])
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// As reports whether err is, or wraps, an *Error and returns it.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
