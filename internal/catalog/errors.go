package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the API boundary. Every error leaving the
// catalog carries a stable kind plus a human-readable message; internal
// detail stays wrapped underneath.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is the catalog's error type.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Named error conditions from the operation contracts. Compared with
// errors.Is after wrapping.
var (
	ErrEmptyUpload            = &Error{Kind: KindInvalidInput, Message: "uploaded file is absent or empty"}
	ErrInvalidBoundingBox     = &Error{Kind: KindInvalidInput, Message: "invalid bounding box"}
	ErrDimensionMismatch      = &Error{Kind: KindInvalidInput, Message: "embedding dimension mismatch"}
	ErrPersonWouldBeOrphaned  = &Error{Kind: KindConflict, Message: "deletion would leave a named person without faces"}
	ErrCrossAccountAssignment = &Error{Kind: KindConflict, Message: "face and person belong to different accounts"}
)

// newError builds a one-off catalog error.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError attaches a kind and message to an underlying error.
func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindInternal; nil reports the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
