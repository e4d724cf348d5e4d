package segz

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Pipe.
const (
	// Metrics.
	PipeInvokedTotal      = metricz.Key("pipe.invoked.total")
	PipeCompletedTotal    = metricz.Key("pipe.completed.total")
	PipeFailedTotal       = metricz.Key("pipe.failed.total")
	PipeHaltedTotal       = metricz.Key("pipe.halted.total")
	PipeSegmentsTotal     = metricz.Key("pipe.segments.total")
	PipeSegmentsCompleted = metricz.Key("pipe.segments.completed")
	PipeDurationMs        = metricz.Key("pipe.duration.ms")

	// Spans.
	PipeInvokeSpan  = tracez.Key("pipe.invoke")
	PipeSegmentSpan = tracez.Key("pipe.segment")

	// Tags.
	PipeTagSegmentCount  = tracez.Tag("pipe.segment_count")
	PipeTagSegmentNumber = tracez.Tag("pipe.segment_number")
	PipeTagSegmentName   = tracez.Tag("pipe.segment_name")
	PipeTagSuccess       = tracez.Tag("pipe.success")
	PipeTagHalted        = tracez.Tag("pipe.halted")
	PipeTagError         = tracez.Tag("pipe.error")

	// Hook event keys.
	PipeEventSegmentComplete = hookz.Key("pipe.segment_complete")
	PipeEventComplete        = hookz.Key("pipe.complete")
	PipeEventHalted          = hookz.Key("pipe.halted")
	PipeEventFailed          = hookz.Key("pipe.failed")
)

// PipeEvent represents a pipe execution event.
// Segment events are emitted as each segment hands off, halts or fails;
// invocation events are emitted once the whole chain has settled.
type PipeEvent struct {
	Name              Name          // Pipe name
	SegmentName       Name          // Segment the event refers to
	SegmentNumber     int           // Segment position (1-based)
	TotalSegments     int           // Segments in the pipe for this invocation
	Success           bool          // Whether the segment or invocation succeeded
	Halted            bool          // Segment returned without calling next
	Error             error         // Failure, if any
	Duration          time.Duration // Time the segment held control
	CompletedSegments int           // Segments that handed off (invocation events)
	TotalDuration     time.Duration // Wall time of the invocation (invocation events)
	Timestamp         time.Time     // When the event occurred
}

// Pipe is an ordered composite of segments that is itself a Segment.
// Invoking a pipe binds the caller's input and output slots to a fresh run,
// then threads control through the segments by continuation: segment i
// receives a next function that runs segment i+1, and so on until the chain
// runs past its end.
//
// Key features:
//   - Append-only assembly in execution order
//   - Nesting: a Pipe appended to another Pipe runs as one opaque step
//   - Per-invocation working state, nothing leaks between invocations
//   - Fail-fast with a named path to the failing segment
//   - Metrics, spans and hook events for every invocation
//
// The whole chain runs synchronously on the caller's goroutine. Call depth
// grows with the number of segments, one continuation frame per segment.
//
// # Observability
//
// Metrics:
//   - pipe.invoked.total: Counter of invocations
//   - pipe.completed.total: Counter of chains that ran to the end
//   - pipe.failed.total: Counter of failed invocations
//   - pipe.halted.total: Counter of chains stopped by a segment that did not continue
//   - pipe.segments.total: Gauge of segments in the last invocation
//   - pipe.segments.completed: Gauge of segments that handed off in the last invocation
//   - pipe.duration.ms: Gauge of the last invocation's duration
//
// Traces:
//   - pipe.invoke: Parent span for an invocation
//   - pipe.segment: Span per segment, ending when the segment hands off
//
// Events (via hooks):
//   - pipe.segment_complete: Fired as each segment settles
//   - pipe.complete: Fired when the chain runs to the end
//   - pipe.halted: Fired when a segment stops the chain
//   - pipe.failed: Fired when an invocation fails
//
// Example:
//
//	pipe := segz.NewPipe[string, string]("greeting").
//	    ThenFunc(func(_ context.Context, in, out *string, next segz.Next) error {
//	        *out = *in
//	        return next()
//	    }).
//	    Then(capitalizer)
//
//	in, out := "test", ""
//	if err := pipe.Invoke(ctx, &in, &out); err != nil {
//	    return err
//	}
type Pipe[I, O any] struct {
	name     Name
	segments []Segment[I, O]
	output   func() O
	clock    clockz.Clock
	mu       sync.RWMutex
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[PipeEvent]
}

// NewPipe declares a pipe over input type I and output type O, with optional
// initial segments. Further segments are appended with Then, ThenFunc or Add.
//
// Example:
//
//	arithmetic := segz.NewPipe[int, int]("arithmetic", addTen, double)
func NewPipe[I, O any](name Name, segments ...Segment[I, O]) *Pipe[I, O] {
	// Initialize observability
	metrics := metricz.New()
	metrics.Counter(PipeInvokedTotal)
	metrics.Counter(PipeCompletedTotal)
	metrics.Counter(PipeFailedTotal)
	metrics.Counter(PipeHaltedTotal)
	metrics.Gauge(PipeSegmentsTotal)
	metrics.Gauge(PipeSegmentsCompleted)
	metrics.Gauge(PipeDurationMs)

	p := &Pipe[I, O]{
		name:    name,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[PipeEvent](),
	}
	return p.Then(segments...)
}

// Then appends segments in execution order and returns the pipe for chaining.
// The same instance may be appended more than once. Nil segments are ignored.
func (p *Pipe[I, O]) Then(segments ...Segment[I, O]) *Pipe[I, O] {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, segment := range segments {
		if segment == nil {
			continue
		}
		p.segments = append(p.segments, segment)
	}
	return p
}

// ThenFunc wraps fn in an Inline segment and appends it. The segment is named
// after the pipe and its position, e.g. "greeting[0]".
func (p *Pipe[I, O]) ThenFunc(fn Func[I, O]) *Pipe[I, O] {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := fmt.Sprintf("%s[%d]", p.name, len(p.segments))
	p.segments = append(p.segments, NewInline(name, fn))
	return p
}

// Add allocates a new segment of type S, appends it to p and returns it so its
// configuration can be tuned before the pipe runs. If *S implements
// Initializer, Init is called before the segment is appended.
//
// Example:
//
//	addFive := segz.Add[segments.IntAdder](pipe)
//	addFive.Addend = 5
func Add[S any, PS interface {
	*S
	Segment[I, O]
}, I, O any](p *Pipe[I, O]) PS {
	segment := PS(new(S))
	if initializer, ok := any(segment).(Initializer); ok {
		initializer.Init()
	}
	p.Then(segment)
	return segment
}

// WithOutput sets the factory Out uses to allocate a fresh output value.
// Without one, Out uses the zero O, or a pointer to a new zero value when O
// is a pointer type. Set a factory when the output needs more than that:
//
//	pipe.WithOutput(func() *Container { return &Container{Items: map[string]int{}} })
func (p *Pipe[I, O]) WithOutput(factory func() O) *Pipe[I, O] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = factory
	return p
}

// Alloc returns a pointer to a new zero T. It is shaped to be passed to WithOutput.
func Alloc[T any]() *T {
	return new(T)
}

// WithClock sets a custom clock for timestamps and durations.
// This is useful for testing time-dependent observability.
func (p *Pipe[I, O]) WithClock(clock clockz.Clock) *Pipe[I, O] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

func (p *Pipe[I, O]) getClock() clockz.Clock {
	if p.clock == nil {
		return clockz.RealClock
	}
	return p.clock
}

// Invoke runs every segment against the given input and output slots and
// returns once the chain has completed, halted or failed.
//
// Mutations are applied directly through in and out, so they remain visible
// to the caller whatever the outcome. A failing segment stops the chain and
// the returned error is an *Error naming the path to it. A segment that
// returns without calling next stops the chain without an error.
//
// Invoke does not watch ctx for cancellation; it is handed to each segment
// and carries the invocation span.
func (p *Pipe[I, O]) Invoke(ctx context.Context, in *I, out *O) error {
	p.mu.RLock()
	segments := make([]Segment[I, O], len(p.segments))
	copy(segments, p.segments)
	clock := p.getClock()
	p.mu.RUnlock()

	// Handle nil context
	if ctx == nil {
		ctx = context.Background()
	}

	if in == nil || out == nil {
		return &Error{
			Timestamp: clock.Now(),
			Err:       ErrNilReference,
			Path:      []Name{p.name},
			Stage:     -1,
		}
	}

	// Track metrics
	p.metrics.Counter(PipeInvokedTotal).Inc()
	p.metrics.Gauge(PipeSegmentsTotal).Set(float64(len(segments)))
	start := clock.Now()

	// Start main span
	ctx, span := p.tracer.StartSpan(ctx, PipeInvokeSpan)
	span.SetTag(PipeTagSegmentCount, strconv.Itoa(len(segments)))

	r := &run[I, O]{
		pipe:     p,
		ctx:      ctx,
		clock:    clock,
		segments: segments,
		in:       in,
		out:      out,
		haltedAt: -1,
	}
	err := r.step(0)
	if err == nil && r.failure != nil {
		// A segment swallowed a downstream failure.
		err = r.failure
	}

	elapsed := clock.Since(start)
	p.metrics.Gauge(PipeDurationMs).Set(float64(elapsed.Milliseconds()))
	p.metrics.Gauge(PipeSegmentsCompleted).Set(float64(r.completed))

	event := PipeEvent{
		Name:              p.name,
		TotalSegments:     len(segments),
		CompletedSegments: r.completed,
		TotalDuration:     elapsed,
	}

	switch {
	case err != nil:
		span.SetTag(PipeTagSuccess, "false")
		span.SetTag(PipeTagError, err.Error())
		p.metrics.Counter(PipeFailedTotal).Inc()
		event.Error = err
		event.Timestamp = clock.Now()
		_ = p.hooks.Emit(ctx, PipeEventFailed, event) //nolint:errcheck
	case !r.done:
		span.SetTag(PipeTagSuccess, "true")
		span.SetTag(PipeTagHalted, "true")
		p.metrics.Counter(PipeHaltedTotal).Inc()
		event.Success = true
		event.Halted = true
		event.SegmentName = segments[r.haltedAt].Name()
		event.SegmentNumber = r.haltedAt + 1
		event.Timestamp = clock.Now()
		_ = p.hooks.Emit(ctx, PipeEventHalted, event) //nolint:errcheck
	default:
		span.SetTag(PipeTagSuccess, "true")
		p.metrics.Counter(PipeCompletedTotal).Inc()
		event.Success = true
		event.Timestamp = clock.Now()
		_ = p.hooks.Emit(ctx, PipeEventComplete, event) //nolint:errcheck
	}
	span.Finish()

	return err
}

// Out allocates a fresh output value, invokes the pipe with it and returns it.
// The output is returned even when the invocation fails, holding whatever the
// segments wrote before the failure.
func (p *Pipe[I, O]) Out(ctx context.Context, in *I) (O, error) {
	p.mu.RLock()
	factory := p.output
	p.mu.RUnlock()

	out := newOutput(factory)
	err := p.Invoke(ctx, in, &out)
	return out, err
}

func newOutput[O any](factory func() O) O {
	if factory != nil {
		return factory()
	}
	var out O
	if t := reflect.TypeFor[O](); t.Kind() == reflect.Pointer {
		out = reflect.New(t.Elem()).Interface().(O)
	}
	return out
}

// Process implements Segment so a pipe can be nested inside another pipe.
// The whole inner chain runs against the parent's slots before next is called.
// A halted inner chain still continues the parent; a failed one does not.
func (p *Pipe[I, O]) Process(ctx context.Context, in *I, out *O, next Next) error {
	if err := p.Invoke(ctx, in, out); err != nil {
		return err
	}
	return next()
}

// Name returns the name of this pipe.
func (p *Pipe[I, O]) Name() Name {
	return p.name
}

// Len returns the number of segments in the pipe.
func (p *Pipe[I, O]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.segments)
}

// Names returns the names of all segments in execution order.
func (p *Pipe[I, O]) Names() []Name {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]Name, len(p.segments))
	for i, segment := range p.segments {
		names[i] = segment.Name()
	}
	return names
}

// Metrics returns the metrics registry for this pipe.
func (p *Pipe[I, O]) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the tracer for this pipe.
func (p *Pipe[I, O]) Tracer() *tracez.Tracer {
	return p.tracer
}

// Close gracefully shuts down observability components.
func (p *Pipe[I, O]) Close() error {
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.hooks.Close()
	return nil
}

// OnSegmentComplete registers a handler called asynchronously each time a
// segment hands off, halts or fails.
func (p *Pipe[I, O]) OnSegmentComplete(handler func(context.Context, PipeEvent) error) error {
	_, err := p.hooks.Hook(PipeEventSegmentComplete, handler)
	return err
}

// OnComplete registers a handler called asynchronously when a chain runs to the end.
func (p *Pipe[I, O]) OnComplete(handler func(context.Context, PipeEvent) error) error {
	_, err := p.hooks.Hook(PipeEventComplete, handler)
	return err
}

// OnHalted registers a handler called asynchronously when a segment stops the
// chain by returning without calling next.
func (p *Pipe[I, O]) OnHalted(handler func(context.Context, PipeEvent) error) error {
	_, err := p.hooks.Hook(PipeEventHalted, handler)
	return err
}

// OnFailed registers a handler called asynchronously when an invocation fails.
func (p *Pipe[I, O]) OnFailed(handler func(context.Context, PipeEvent) error) error {
	_, err := p.hooks.Hook(PipeEventFailed, handler)
	return err
}

// run is the working state of a single invocation.
type run[I, O any] struct {
	pipe      *Pipe[I, O]
	ctx       context.Context
	clock     clockz.Clock
	segments  []Segment[I, O]
	in        *I
	out       *O
	failure   *Error
	completed int
	haltedAt  int
	done      bool
}

// step runs segment i. The continuation it hands to the segment runs i+1.
func (r *run[I, O]) step(i int) (err error) {
	if i >= len(r.segments) {
		r.done = true
		return nil
	}

	segment := r.segments[i]
	name := segment.Name()

	stageCtx, stageSpan := r.pipe.tracer.StartSpan(r.ctx, PipeSegmentSpan)
	stageSpan.SetTag(PipeTagSegmentNumber, strconv.Itoa(i+1))
	stageSpan.SetTag(PipeTagSegmentName, name)
	start := r.clock.Now()

	var settled bool
	settle := func(success, halted bool, cause error) {
		if settled {
			return
		}
		settled = true
		duration := r.clock.Since(start)
		stageSpan.SetTag(PipeTagSuccess, strconv.FormatBool(success))
		if halted {
			stageSpan.SetTag(PipeTagHalted, "true")
		}
		if cause != nil {
			stageSpan.SetTag(PipeTagError, cause.Error())
		}
		stageSpan.Finish()

		_ = r.pipe.hooks.Emit(r.ctx, PipeEventSegmentComplete, PipeEvent{ //nolint:errcheck
			Name:          r.pipe.name,
			SegmentName:   name,
			SegmentNumber: i + 1,
			TotalSegments: len(r.segments),
			Success:       success,
			Halted:        halted,
			Error:         cause,
			Duration:      duration,
			Timestamp:     r.clock.Now(),
		})
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = r.fail(i, name, start, panicError(recovered), true)
			settle(false, false, err)
		}
	}()

	var handedOff bool
	var downstream error
	err = segment.Process(stageCtx, r.in, r.out, func() error {
		if handedOff {
			return ErrNextReused
		}
		handedOff = true
		r.completed++
		settle(true, false, nil)
		downstream = r.step(i + 1)
		return downstream
	})

	switch {
	case err == nil && !handedOff:
		r.haltedAt = i
		settle(true, true, nil)
		return nil
	case err == nil:
		return nil
	case downstream != nil && err == downstream:
		return err
	default:
		err = r.fail(i, name, start, err, false)
		settle(false, false, err)
		return err
	}
}

// fail records a failure raised at stage i. An *Error that is already this
// run's failure passes through untouched; one raised by a nested pipe gains
// this pipe's name at the front of its path.
func (r *run[I, O]) fail(stage int, name Name, start time.Time, cause error, panicked bool) error {
	var segErr *Error
	if !panicked && errors.As(cause, &segErr) {
		if segErr == r.failure {
			return cause
		}
		segErr.Path = append([]Name{r.pipe.name}, segErr.Path...)
	} else {
		segErr = &Error{
			Timestamp: r.clock.Now(),
			Err:       cause,
			Path:      []Name{r.pipe.name, name},
			Stage:     stage,
			Duration:  r.clock.Since(start),
			Panicked:  panicked,
		}
		cause = segErr
	}
	if r.failure == nil {
		r.failure = segErr
	}
	return cause
}
