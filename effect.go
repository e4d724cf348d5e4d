package segz

import "context"

// Effect creates a segment that observes the slots without modifying them.
// fn receives copies of the current input and output values. A returned
// error stops the chain; otherwise control passes to next.
//
// Use Effect for logging, assertions or audit trails between the segments
// that do the work.
//
// Example:
//
//	audit := segz.Effect("audit", func(ctx context.Context, in Order, out Receipt) error {
//	    return auditLog.Record(ctx, in.ID, out.Total)
//	})
func Effect[I, O any](name Name, fn func(ctx context.Context, in I, out O) error) *Inline[I, O] {
	return NewInline(name, func(ctx context.Context, in *I, out *O, next Next) error {
		if err := fn(ctx, *in, *out); err != nil {
			return err
		}
		return next()
	})
}
