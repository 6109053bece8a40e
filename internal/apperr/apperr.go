// Package apperr defines the error taxonomy shared by every domain service
// and its translation into the JSON error envelope.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindConflict
	KindState
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// GeneralField is the key used when an error is not tied to an input field.
const GeneralField = "GeneralError"

// Error is a field-scoped domain failure.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	// Entries are echoed back in the response body alongside the error, e.g. a userId.
	Entries map[string]any
	// Others holds additional field errors reported together with this one.
	Others []*Error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func newError(kind Kind, field, format string, args ...any) *Error {
	if field == "" {
		field = GeneralField
	}
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(field, format string, args ...any) *Error {
	return newError(KindNotFound, field, format, args...)
}

func Validation(field, format string, args ...any) *Error {
	return newError(KindValidation, field, format, args...)
}

func Conflict(field, format string, args ...any) *Error {
	return newError(KindConflict, field, format, args...)
}

func State(field, format string, args ...any) *Error {
	return newError(KindState, field, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, GeneralField, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, GeneralField, format, args...)
}

// WithEntries attaches response entries to the error and returns it.
func (e *Error) WithEntries(entries map[string]any) *Error {
	e.Entries = entries
	return e
}

// Fields merges several field errors into one validation error. It returns nil
// when errs is empty.
func Fields(errs ...*Error) error {
	if len(errs) == 0 {
		return nil
	}
	first := *errs[0]
	first.Others = errs[1:]
	return &first
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
