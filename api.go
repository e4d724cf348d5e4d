package segz

import "context"

// Segment defines the interface for any step that can run inside a Pipe.
// A segment receives the invocation's input and output slots by pointer and
// mutates them in place. When it has finished its work it calls next to hand
// control to the following segment; next returns once the remainder of the
// chain has run, carrying any downstream failure back up.
//
// Segment is the foundation of segz - inline segments, named segment types
// and pipes all implement it, so a Pipe can be appended to another Pipe as a
// single opaque step.
//
// Contract:
//   - Call next exactly once to continue the chain.
//   - Returning without calling next halts the chain. The halt is silent to
//     the caller of Invoke but is counted and announced by the pipe.
//   - Returning an error (or panicking) aborts the remainder of the chain and
//     surfaces as an *Error from Invoke.
//
// A typical named segment:
//
//	type IntAdder struct{ Addend int }
//
//	func (*IntAdder) Name() segz.Name { return "add" }
//
//	func (a *IntAdder) Process(_ context.Context, _ *int, out *int, next segz.Next) error {
//	    *out += a.Addend
//	    return next()
//	}
type Segment[I, O any] interface {
	Process(ctx context.Context, in *I, out *O, next Next) error
	Name() Name
}

// Next is the continuation handed to every segment. Invoking it runs the rest
// of the chain synchronously on the calling goroutine.
type Next func() error

// Name is a type alias for segment and pipe names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Example:
//
//	const (
//	    CopyName       segz.Name = "copy"
//	    CapitalizeName segz.Name = "capitalize"
//	)
type Name = string

// Func is the shape of an inline segment behaviour.
type Func[I, O any] func(ctx context.Context, in *I, out *O, next Next) error

// Passthrough is the default segment behaviour: continue immediately without
// touching either slot.
func Passthrough[I, O any](_ context.Context, _ *I, _ *O, next Next) error {
	return next()
}

// Initializer is implemented by segment types that need non-zero defaults.
// Add calls Init on a freshly allocated segment before appending it.
type Initializer interface {
	Init()
}
