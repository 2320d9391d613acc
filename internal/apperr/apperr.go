// Package apperr defines the failure taxonomy shared by the data client,
// the indicator engine and the analysis facade.
package apperr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a failure. A Kind is itself an error, so callers can test
// with errors.Is(err, apperr.InvalidRequest).
type Kind string

const (
	// MissingCredential is fatal and only raised at startup.
	MissingCredential Kind = "missing credential"
	// InvalidRequest is a caller error and is never retried.
	InvalidRequest Kind = "invalid request"
	// UpstreamUnavailable is raised once transient retries are exhausted.
	UpstreamUnavailable Kind = "upstream unavailable"
	// MalformedResponse means the upstream answered with data that fails validation.
	MalformedResponse Kind = "malformed response"
	// InsufficientData means the series is too short for a requested indicator.
	InsufficientData Kind = "insufficient data"
	// EmptySeries means a zero-length series reached the facade.
	EmptySeries Kind = "empty series"
	// SummarizerUnavailable wraps summarizer failures; it is never fatal.
	SummarizerUnavailable Kind = "summarizer unavailable"
)

func (k Kind) Error() string { return string(k) }

// StackTracer is implemented by errors created through github.com/pkg/errors.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// Error carries enough context to diagnose a failure without retrying blindly.
type Error struct {
	Kind   Kind
	Op     string
	Symbol string
	Params string
	Err    error
}

// Newf builds an Error whose cause is a freshly formatted message.
func Newf(kind Kind, op, symbol, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Symbol: symbol, Err: errors.Errorf(format, args...)}
}

// Wrap builds an Error around an existing cause, attaching a stack trace if
// the cause does not carry one yet.
func Wrap(kind Kind, op, symbol string, err error) *Error {
	if err != nil {
		if _, ok := err.(StackTracer); !ok {
			err = errors.WithStack(err)
		}
	}
	return &Error{Kind: kind, Op: op, Symbol: symbol, Err: err}
}

// WithParams records the parameters of the failed call.
func (e *Error) WithParams(format string, args ...any) *Error {
	e.Params = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(e.Symbol)
	}
	if e.Params != "" {
		b.WriteString(" (")
		b.WriteString(e.Params)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error against a Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// StackTrace exposes the stack of the wrapped cause, if any.
func (e *Error) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
