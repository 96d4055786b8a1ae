// Package apperr defines the error taxonomy shared by every component of
// the session engine. Errors are classified by Kind rather than by Go type,
// so callers can branch on "what went wrong" without importing every
// producer package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy's buckets. Every error
// that crosses a component boundary carries exactly one Kind.
type Kind string

const (
	// KindTransientStore means the state backend is unreachable or
	// overloaded. Retryable; callers must not assume local state changed.
	KindTransientStore Kind = "transient_store"

	// KindConflict means an optimistic CAS failed on a version advance.
	KindConflict Kind = "conflict"

	// KindBusy means per-session lock acquisition exceeded its timeout.
	KindBusy Kind = "busy"

	// KindNeedsClarification means reference resolution could not find a
	// referent; not a failure, but a distinct success-with-choices result.
	KindNeedsClarification Kind = "needs_clarification"

	// KindModelError means the upstream LLM failed after retries.
	KindModelError Kind = "model_error"

	// KindInvalidOutput means the LLM returned a structurally invalid
	// wireframe. Never retried; session state is left unchanged.
	KindInvalidOutput Kind = "invalid_output"

	// KindTimeout means an edit's end-to-end budget was exhausted before
	// a version committed.
	KindTimeout Kind = "timeout"

	// KindNotFound means an unknown session_id or version was requested.
	KindNotFound Kind = "not_found"

	// KindGone means the requested version's wireframe body was discarded
	// by compaction; metadata is still available via history.
	KindGone Kind = "gone"

	// KindFatal means an integrity violation was detected (e.g.
	// current_version points to a missing state). The session is
	// quarantined: further writes rejected, reads still permitted.
	KindFatal Kind = "fatal"
)

// Error is the concrete error type carried across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind, wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap)
// an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Retryable reports whether the taxonomy considers kind safe to retry
// automatically at the transport level. Semantic failures are never
// retryable; only transient, transport-shaped ones are.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTransientStore, KindTimeout, KindModelError:
		return true
	default:
		return false
	}
}
