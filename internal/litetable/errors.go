package litetable

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema covers unknown families and duplicate family creation.
	ErrSchema = errors.New("schema error")
	// ErrIO covers log append, flush and checkpoint failures.
	ErrIO = errors.New("io error")
	// ErrClosed is returned by any operation on a closed table or scanner.
	ErrClosed = errors.New("closed")
	// ErrValidation covers malformed records and values.
	ErrValidation = errors.New("validation error")
	// ErrDone is returned by a scanner once every row has been produced.
	ErrDone = errors.New("no more rows")
)

// Error wraps a sentinel error with additional context and an optional cause.
type Error struct {
	err     error  // The underlying sentinel error
	context string // Additional error context
	cause   error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	msg := e.err.Error()
	if e.context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.context)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.err}
	}
	return []error{e.err, e.cause}
}

// Kind returns the sentinel this error belongs to.
func (e *Error) Kind() error {
	return e.err
}

func newError(kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		err:     kind,
		context: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func SchemaError(format string, args ...interface{}) error {
	return newError(ErrSchema, nil, format, args...)
}

func ValidationError(format string, args ...interface{}) error {
	return newError(ErrValidation, nil, format, args...)
}

func ClosedError(format string, args ...interface{}) error {
	return newError(ErrClosed, nil, format, args...)
}

// IOError wraps cause, which may be nil when the failure has no underlying error.
func IOError(cause error, format string, args ...interface{}) error {
	return newError(ErrIO, cause, format, args...)
}
