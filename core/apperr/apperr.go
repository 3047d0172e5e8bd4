package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the failure categories the
// service distinguishes at its boundaries.
type Kind int

const (
	// KindInternal is the default for unclassified failures.
	KindInternal Kind = iota
	// KindNotFound indicates an entity or blob is absent.
	KindNotFound
	// KindConflict indicates a uniqueness or duplicate-state violation (e.g. slug collision).
	KindConflict
	// KindForbidden indicates the caller lacks the rights for the operation,
	// or the target is protected against it.
	KindForbidden
	// KindInvalidInput indicates a malformed or unacceptable request value.
	KindInvalidInput
	// KindUnavailable indicates an external collaborator (identity, storage) failed.
	KindUnavailable
	// KindPartialReplication indicates the authoritative write succeeded but one
	// or more mirror/index steps failed. Never rolled back; left for reconciliation.
	KindPartialReplication
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnavailable:
		return "unavailable"
	case KindPartialReplication:
		return "partial_replication"
	default:
		return "internal"
	}
}

// Error is a classified error with a human-readable detail message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, keeping it available via Unwrap.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientVisible reports whether the error's detail message may be returned
// to the caller regardless of environment.
func ClientVisible(kind Kind) bool {
	switch kind {
	case KindNotFound, KindConflict, KindForbidden, KindInvalidInput:
		return true
	default:
		return false
	}
}
