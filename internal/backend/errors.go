package backend

import (
	"errors"
	"fmt"
)

// ErrorKind partitions backend failures into the closed set the measurement
// loop counts separately. Drivers map their library-specific error shapes
// into one of these kinds so that callers never pattern-match on raw errors.
type ErrorKind int

const (
	// KindException is any backend rejection without a more specific cause.
	KindException ErrorKind = iota

	// KindRateLimited is an explicit admission rejection by the backend.
	KindRateLimited

	// KindBackendTimeout is a timeout signaled by the backend itself,
	// distinct from the client-side request deadline.
	KindBackendTimeout
)

// String returns the metric-facing name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "ratelimited"
	case KindBackendTimeout:
		return "backend_timeout"
	default:
		return "exception"
	}
}

// Error is a backend failure tagged with its kind. It wraps the driver-level
// cause for logging while keeping classification independent of it.
type Error struct {
	Kind  ErrorKind
	cause error
}

// NewError wraps cause as a backend error of the given kind.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("backend %s", e.Kind)
	}
	return fmt.Sprintf("backend %s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the ErrorKind from err. Errors that are not tagged backend
// errors classify as KindException.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindException
}
