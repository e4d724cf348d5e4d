package segz

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Filter.
const (
	// Metrics.
	FilterEvaluatedTotal = metricz.Key("filter.evaluated.total")
	FilterPassedTotal    = metricz.Key("filter.passed.total")
	FilterSkippedTotal   = metricz.Key("filter.skipped.total")

	// Spans.
	FilterEvaluateSpan = tracez.Key("filter.evaluate")

	// Tags.
	FilterTagConditionMet = tracez.Tag("filter.condition_met")
	FilterTagSegmentName  = tracez.Tag("filter.segment_name")

	// Hook event keys.
	FilterEventPassed  = hookz.Key("filter.passed")
	FilterEventSkipped = hookz.Key("filter.skipped")
)

// FilterEvent represents a filter decision.
type FilterEvent struct {
	Name         Name      // Filter name
	SegmentName  Name      // Wrapped segment
	ConditionMet bool      // Whether the wrapped segment ran
	Timestamp    time.Time // When the decision was made
}

// Condition decides whether a Filter runs its wrapped segment. It sees the
// slots as they stand when the filter is reached.
type Condition[I, O any] func(ctx context.Context, in *I, out *O) bool

// Filter runs a wrapped segment only when its condition holds. Otherwise it
// hands straight to next, leaving both slots untouched. Either way the chain
// continues unless the wrapped segment decides otherwise.
//
// Errors raised by the wrapped segment gain the filter's name in their path.
// Errors coming back from further down the chain pass through unchanged.
//
// # Observability
//
// Metrics:
//   - filter.evaluated.total: Counter of condition evaluations
//   - filter.passed.total: Counter of evaluations that ran the segment
//   - filter.skipped.total: Counter of evaluations that skipped it
//
// Traces:
//   - filter.evaluate: Span for the condition evaluation
//
// Events (via hooks):
//   - filter.passed: Fired when the wrapped segment is about to run
//   - filter.skipped: Fired when it is skipped
//
// Example:
//
//	shoutLong := segz.NewFilter("shout-long",
//	    func(_ context.Context, _ *string, out *string) bool {
//	        return len(*out) > 10
//	    },
//	    segments.NewStringCapitalizer(segments.All),
//	)
type Filter[I, O any] struct {
	segment   Segment[I, O]
	condition Condition[I, O]
	name      Name
	clock     clockz.Clock
	mu        sync.RWMutex

	// Observability
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[FilterEvent]
}

// NewFilter creates a Filter that runs segment when condition returns true.
func NewFilter[I, O any](name Name, condition Condition[I, O], segment Segment[I, O]) *Filter[I, O] {
	registry := metricz.New()
	registry.Counter(FilterEvaluatedTotal)
	registry.Counter(FilterPassedTotal)
	registry.Counter(FilterSkippedTotal)

	return &Filter[I, O]{
		name:      name,
		condition: condition,
		segment:   segment,
		metrics:   registry,
		tracer:    tracez.New(),
		hooks:     hookz.New[FilterEvent](),
	}
}

// Process implements Segment.
func (f *Filter[I, O]) Process(ctx context.Context, in *I, out *O, next Next) error {
	f.mu.RLock()
	condition := f.condition
	segment := f.segment
	clock := f.clock
	f.mu.RUnlock()
	if clock == nil {
		clock = clockz.RealClock
	}

	f.metrics.Counter(FilterEvaluatedTotal).Inc()
	_, span := f.tracer.StartSpan(ctx, FilterEvaluateSpan)
	met := segment != nil && condition != nil && condition(ctx, in, out)
	span.SetTag(FilterTagConditionMet, strconv.FormatBool(met))

	event := FilterEvent{Name: f.name, ConditionMet: met}
	if segment != nil {
		event.SegmentName = segment.Name()
		span.SetTag(FilterTagSegmentName, event.SegmentName)
	}
	span.Finish()
	event.Timestamp = clock.Now()

	if !met {
		f.metrics.Counter(FilterSkippedTotal).Inc()
		_ = f.hooks.Emit(ctx, FilterEventSkipped, event) //nolint:errcheck
		return next()
	}

	f.metrics.Counter(FilterPassedTotal).Inc()
	_ = f.hooks.Emit(ctx, FilterEventPassed, event) //nolint:errcheck

	var downstream error
	err := segment.Process(ctx, in, out, func() error {
		downstream = next()
		return downstream
	})
	if err == nil || (downstream != nil && errors.Is(err, downstream)) {
		return err
	}
	var segErr *Error
	if errors.As(err, &segErr) {
		segErr.Path = append([]Name{f.name}, segErr.Path...)
	}
	return err
}

// SetCondition replaces the condition.
func (f *Filter[I, O]) SetCondition(condition Condition[I, O]) *Filter[I, O] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.condition = condition
	return f
}

// SetSegment replaces the wrapped segment.
func (f *Filter[I, O]) SetSegment(segment Segment[I, O]) *Filter[I, O] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segment = segment
	return f
}

// WithClock sets a custom clock for event timestamps.
func (f *Filter[I, O]) WithClock(clock clockz.Clock) *Filter[I, O] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = clock
	return f
}

// Segment returns the wrapped segment.
func (f *Filter[I, O]) Segment() Segment[I, O] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.segment
}

// Name returns the name of this filter.
func (f *Filter[I, O]) Name() Name {
	return f.name
}

// Metrics returns the metrics registry for this filter.
func (f *Filter[I, O]) Metrics() *metricz.Registry {
	return f.metrics
}

// Tracer returns the tracer for this filter.
func (f *Filter[I, O]) Tracer() *tracez.Tracer {
	return f.tracer
}

// Close gracefully shuts down observability components.
func (f *Filter[I, O]) Close() error {
	if f.tracer != nil {
		f.tracer.Close()
	}
	f.hooks.Close()
	return nil
}

// OnPassed registers a handler called asynchronously when the wrapped segment is chosen to run.
func (f *Filter[I, O]) OnPassed(handler func(context.Context, FilterEvent) error) error {
	_, err := f.hooks.Hook(FilterEventPassed, handler)
	return err
}

// OnSkipped registers a handler called asynchronously when the wrapped segment is skipped.
func (f *Filter[I, O]) OnSkipped(handler func(context.Context, FilterEvent) error) error {
	_, err := f.hooks.Hook(FilterEventSkipped, handler)
	return err
}
