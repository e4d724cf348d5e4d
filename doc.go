// Package segz composes synchronous pipelines of segments that mutate a
// shared input and output in place.
//
// # Overview
//
// A Pipe is an ordered list of segments. Invoking it hands the caller's input
// and output slots to the first segment; each segment mutates them and calls
// its continuation to hand control to the next. When the chain runs past its
// last segment, Invoke returns and the caller sees every mutation.
//
// The library is built around a single interface:
//
//	type Segment[I, O any] interface {
//	    Process(ctx context.Context, in *I, out *O, next Next) error
//	    Name() Name
//	}
//
// A Pipe implements Segment too, so pipes nest: the parent sees a nested pipe
// as one opaque step that runs its whole chain before continuing.
//
// # Building Pipes
//
// Segments can be appended as existing instances, as inline functions, or as
// freshly allocated named types whose configuration is tuned afterwards:
//
//	pipe := segz.NewPipe[int, int]("arithmetic").
//	    Then(addTen).
//	    ThenFunc(func(_ context.Context, _ *int, out *int, next segz.Next) error {
//	        *out *= 2
//	        return next()
//	    })
//
//	triple := segz.Add[segments.IntMultiplier](pipe)
//	triple.Multiplier = 3
//
// Standalone segments with inline behaviour are declared with Takes:
//
//	copier := segz.Takes[string, string]("copy").
//	    Does(func(_ context.Context, in, out *string, next segz.Next) error {
//	        *out = *in
//	        return next()
//	    })
//
// Effect observes the slots without touching them, and Filter runs a wrapped
// segment only when a condition holds:
//
//	audit := segz.Effect("audit", func(ctx context.Context, in, out int) error {
//	    return recorder.Record(ctx, in, out)
//	})
//	onlyBig := segz.NewFilter("only-big", isBig, segments.NewIntMultiplier(2))
//
// # Invoking Pipes
//
// Invoke mutates caller-owned values; Out allocates the output itself:
//
//	in, out := 5, 5
//	err := pipe.Invoke(ctx, &in, &out)
//
//	containers := segz.NewPipe[Box, *Box]("boxes").WithOutput(func() *Box { return &Box{} })
//	result, err := containers.Out(ctx, &input)
//
// # Control Flow
//
// Control moves strictly forward, one continuation per segment:
//   - Calling next runs the rest of the chain and returns its error
//   - Returning without calling next halts the chain; Invoke returns nil
//   - Returning an error or panicking aborts the chain; Invoke returns *Error
//   - Calling next twice returns ErrNextReused without re-running the tail
//
// Each invocation has its own working state, so a pipe can be invoked again
// (or concurrently) without residue from earlier runs. Segments that keep
// their own mutable configuration are shared as-is.
//
// # Error Handling
//
// Failures are reported as *Error with the path of names that led to them:
//
//	var segErr *segz.Error
//	if errors.As(err, &segErr) {
//	    log.Printf("failed at %s (stage %d)", strings.Join(segErr.Path, " -> "), segErr.Stage)
//	}
//
// Partial mutations made before a failure stay visible to the caller.
package segz
