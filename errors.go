package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a tiling failure.
type ErrorKind string

// Error kinds. Every kind is fatal for the run.
const (
	InvalidDimension ErrorKind = "INVALID_DIMENSION"
	SourceReadError  ErrorKind = "SOURCE_READ_ERROR"
	IOError          ErrorKind = "IO_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrInvalidDimension = &Error{Kind: InvalidDimension}
	ErrSourceRead       = &Error{Kind: SourceReadError}
	ErrIO               = &Error{Kind: IOError}
)

// Error is a tiling error with a kind and an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err, or "" when err is not a tiling error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
