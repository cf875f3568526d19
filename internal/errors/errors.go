// Package errors defines the error taxonomy of the query path.
//
// Every failure the core surfaces belongs to one of a small set of
// kinds: InvalidArgument (user-visible parse and validation errors),
// InvalidState (structural expectations violated, including corrupt
// persisted formats), IO (segment reader failures), ResourceExhausted
// (cache budget violations), and Config (ambient configuration).
// Early termination is not an error kind at all but a sentinel value,
// caught at the bulk-scorer boundary and never user-visible.
package errors

import (
	"errors"
	"fmt"
)

// ErrTerminated is the cooperative early-termination signal raised by
// collectors when the hits threshold is reached and no incoming
// document can improve the result queues. It unwinds only the current
// segment's collection; bulk scorers must catch it with errors.Is and
// translate it into a total-hits relation change.
var ErrTerminated = errors.New("collection terminated early")

// IsTerminated reports whether err is the early-termination signal.
func IsTerminated(err error) bool {
	return errors.Is(err, ErrTerminated)
}

// Kind classifies an engine error.
type Kind string

const (
	// KindInvalidArgument marks user-visible parse and validation
	// failures: bad prune ratios, non-positive k, invalid token ids.
	KindInvalidArgument Kind = "invalid_argument"

	// KindInvalidState marks violated structural expectations: postings
	// of unexpected shape, reads from closed indexes, corrupt persisted
	// formats.
	KindInvalidState Kind = "invalid_state"

	// KindIO marks underlying segment reader failures. The scorer layer
	// never retries these; the coordinator decides.
	KindIO Kind = "io_failure"

	// KindResource marks cache allocations rejected under the
	// configured memory budget.
	KindResource Kind = "resource_exhausted"

	// KindConfig marks configuration failures outside the query path.
	KindConfig Kind = "config"
)

// EngineError couples a Kind with its message and cause. Requests
// failing with KindInvalidArgument or KindInvalidState are rendered as
// failed-query responses by the host; KindIO aborts the segment.
type EngineError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind. cause may be nil.
func New(kind Kind, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Cause: cause}
}

// InvalidArgument creates a user-visible validation error.
func InvalidArgument(message string) *EngineError {
	return New(KindInvalidArgument, message, nil)
}

// InvalidArgumentf creates a user-visible validation error with
// formatting.
func InvalidArgumentf(format string, args ...any) *EngineError {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// InvalidState creates an error for violated structural expectations.
func InvalidState(message string) *EngineError {
	return New(KindInvalidState, message, nil)
}

// IOFailure wraps an underlying segment reader error.
func IOFailure(message string, cause error) *EngineError {
	return New(KindIO, message, cause)
}

// ResourceExhausted creates an error for cache budget violations.
func ResourceExhausted(message string) *EngineError {
	return New(KindResource, message, nil)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *EngineError {
	return New(KindConfig, message, cause)
}

// KindOf extracts the kind from anywhere in err's chain. Returns the
// empty kind for plain errors.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsInvalidArgument reports whether err is a user-visible validation
// error.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == KindInvalidArgument
}

// IsInvalidState reports whether err is a structural violation.
func IsInvalidState(err error) bool {
	return KindOf(err) == KindInvalidState
}

// IsRetryable reports whether the failed operation may be retried.
// Only segment reads qualify.
func IsRetryable(err error) bool {
	return KindOf(err) == KindIO
}
