package segz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine errors.
var (
	// ErrNilReference is returned when Invoke is handed a nil input or output slot.
	ErrNilReference = errors.New("nil input or output reference")
	// ErrNextReused is returned by a continuation that has already been called.
	ErrNextReused = errors.New("continuation already invoked")
	// ErrSegmentPanic wraps a panic recovered from a segment.
	ErrSegmentPanic = errors.New("segment panicked")
)

// Error provides rich context about a failed invocation.
// It wraps the underlying error with the path of pipe and segment names
// that led to the failure, the index of the failing segment within its
// own pipe, and how long the segment ran before failing.
//
// Nested pipes extend the path rather than wrapping again, so a failure
// deep in a composition reads as a single location:
//
//	var segErr *segz.Error
//	if errors.As(err, &segErr) {
//	    log.Printf("failed at %s", strings.Join(segErr.Path, " -> "))
//	}
type Error struct {
	Timestamp time.Time
	Err       error
	Path      []Name
	Stage     int
	Duration  time.Duration
	Panicked  bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	path := strings.Join(e.Path, " -> ")
	if e.Panicked {
		return fmt.Sprintf("%s panicked: %v", path, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsPanic reports whether the failure was a recovered panic.
func (e *Error) IsPanic() bool {
	return e.Panicked || errors.Is(e.Err, ErrSegmentPanic)
}

// panicError converts a recovered value into an error wrapping ErrSegmentPanic.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrSegmentPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrSegmentPanic, r)
}
