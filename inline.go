package segz

import (
	"context"
	"sync"
)

// Inline is a Segment whose behaviour is supplied as a function value rather
// than by declaring a named type. It lets pipe assembly read as a declarative
// list of steps.
//
// An Inline without behaviour is a pass-through: it calls next without
// mutating either slot. The behaviour can be replaced with Does any number of
// times before use; the last assignment wins.
//
// Example:
//
//	doubler := segz.Takes[string, string]("double").
//	    Does(func(_ context.Context, _ *string, out *string, next segz.Next) error {
//	        *out += *out
//	        return next()
//	    })
type Inline[I, O any] struct {
	name Name
	fn   Func[I, O]
	mu   sync.RWMutex
}

// Takes declares a standalone segment over input type I and output type O.
// The returned segment passes through until Does assigns a behaviour.
func Takes[I, O any](name Name) *Inline[I, O] {
	return &Inline[I, O]{name: name}
}

// NewInline creates an inline segment with the given behaviour.
// A nil fn behaves like Takes.
func NewInline[I, O any](name Name, fn Func[I, O]) *Inline[I, O] {
	return &Inline[I, O]{name: name, fn: fn}
}

// Does replaces the segment's behaviour and returns the segment for chaining.
// Passing nil restores the pass-through default.
func (s *Inline[I, O]) Does(fn Func[I, O]) *Inline[I, O] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	return s
}

// Process runs the assigned behaviour, or continues immediately when none is set.
func (s *Inline[I, O]) Process(ctx context.Context, in *I, out *O, next Next) error {
	s.mu.RLock()
	fn := s.fn
	s.mu.RUnlock()

	if fn == nil {
		return next()
	}
	return fn(ctx, in, out, next)
}

// Name returns the name of the segment.
func (s *Inline[I, O]) Name() Name {
	return s.name
}
