// Package testing provides test utilities and helpers for segz-based applications.
//
// This package includes mock segments, an ordering journal, assertion helpers
// and chaos testing tools to make testing pipes easier.
//
// Example usage:
//
//	func TestMyPipe(t *testing.T) {
//		journal := segztest.NewJournal()
//		first := segztest.NewMockSegment[int, int](t, "first").WithJournal(journal)
//		second := segztest.NewMockSegment[int, int](t, "second").WithJournal(journal)
//
//		pipe := segz.NewPipe[int, int]("test-pipe", first, second)
//		in, out := 1, 0
//		_ = pipe.Invoke(context.Background(), &in, &out)
//
//		segztest.AssertProcessed(t, first, 1)
//		segztest.AssertOrder(t, journal, "first", "second")
//	}
package testing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/segz"
)

// MockSegment provides a configurable mock implementation of segz.Segment.
// It records every call, can mutate the slots it receives, and can be told to
// fail, panic or halt the chain instead of continuing.
type MockSegment[I, O any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	lastInput   I
	lastOutput  O
	mutate      func(in *I, out *O)
	returnErr   error
	panicMsg    string
	halt        bool
	journal     *Journal
	mu          sync.RWMutex
	callHistory []MockCall[I, O]
	maxHistory  int
}

// MockCall represents a single call to the mock segment, with the slot values
// as they were on entry.
type MockCall[I, O any] struct {
	Input     I
	Output    O
	Timestamp time.Time
	Context   context.Context
}

// NewMockSegment creates a new mock segment for testing.
// By default it records the call and continues the chain.
func NewMockSegment[I, O any](t *testing.T, name string) *MockSegment[I, O] {
	return &MockSegment[I, O]{
		t:          t,
		name:       name,
		maxHistory: 100, // Keep last 100 calls by default
	}
}

// WithMutation configures a function applied to the slots before continuing.
func (m *MockSegment[I, O]) WithMutation(fn func(in *I, out *O)) *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutate = fn
	return m
}

// WithError configures the mock to return err instead of continuing.
func (m *MockSegment[I, O]) WithError(err error) *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnErr = err
	return m
}

// WithPanic configures the mock to panic with a specific message.
// This is useful for testing error recovery and panic handling.
func (m *MockSegment[I, O]) WithPanic(msg string) *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHalt configures the mock to return without calling next.
func (m *MockSegment[I, O]) WithHalt() *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halt = true
	return m
}

// WithJournal makes the mock append its name to journal on every call.
func (m *MockSegment[I, O]) WithJournal(journal *Journal) *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = journal
	return m
}

// WithHistorySize configures how many calls to keep in history.
// Set to 0 to disable history tracking.
func (m *MockSegment[I, O]) WithHistorySize(size int) *MockSegment[I, O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		// Trim history to new size
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name returns the name of the mock segment.
func (m *MockSegment[I, O]) Name() segz.Name {
	return segz.Name(m.name)
}

// Process implements segz.Segment. It records the call, applies the
// configured mutation, then panics, fails, halts or continues.
func (m *MockSegment[I, O]) Process(ctx context.Context, in *I, out *O, next segz.Next) error {
	// Record the call
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = *in
	m.lastOutput = *out
	if m.maxHistory > 0 {
		m.callHistory = append(m.callHistory, MockCall[I, O]{
			Input:     *in,
			Output:    *out,
			Timestamp: time.Now(),
			Context:   ctx,
		})
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:] // Remove oldest
		}
	}

	// Get configured behavior
	mutate := m.mutate
	returnErr := m.returnErr
	panicMsg := m.panicMsg
	halt := m.halt
	journal := m.journal
	m.mu.Unlock()

	if journal != nil {
		journal.Record(m.name)
	}
	if mutate != nil {
		mutate(in, out)
	}

	// Handle panic
	if panicMsg != "" {
		panic(panicMsg)
	}
	if returnErr != nil {
		return returnErr
	}
	if halt {
		return nil
	}
	return next()
}

// CallCount returns the number of times Process has been called.
func (m *MockSegment[I, O]) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastInput returns the input slot value seen on the most recent call.
func (m *MockSegment[I, O]) LastInput() I {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// LastOutput returns the output slot value seen on the most recent call.
func (m *MockSegment[I, O]) LastOutput() O {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastOutput
}

// CallHistory returns a copy of all recorded calls.
// Returns empty slice if history tracking is disabled.
func (m *MockSegment[I, O]) CallHistory() []MockCall[I, O] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall[I, O], len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking and resets the mock to initial state.
func (m *MockSegment[I, O]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastInput = *new(I)
	m.lastOutput = *new(O)
	m.callHistory = nil
}

// Journal records the order in which segments ran. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends name to the journal.
func (j *Journal) Record(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, name)
}

// Entries returns a copy of the recorded names.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}

// Reset clears the journal.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// Assertion Helpers

// AssertProcessed verifies that a mock segment was called exactly n times.
func AssertProcessed[I, O any](t *testing.T, mock *MockSegment[I, O], expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock segment %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotProcessed verifies that a mock segment was never called.
func AssertNotProcessed[I, O any](t *testing.T, mock *MockSegment[I, O]) {
	t.Helper()
	AssertProcessed(t, mock, 0)
}

// AssertProcessedWith verifies that the most recent call saw the given input.
func AssertProcessedWith[I comparable, O any](t *testing.T, mock *MockSegment[I, O], expectedInput I) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock segment %s to be called with input %v, but it was never called",
			mock.name, expectedInput)
		return
	}

	actualInput := mock.LastInput()
	if actualInput != expectedInput {
		t.Errorf("expected mock segment %s to be called with input %v, but was called with %v",
			mock.name, expectedInput, actualInput)
	}
}

// AssertOrder verifies that the journal recorded exactly the given names, in order.
func AssertOrder(t *testing.T, journal *Journal, expected ...string) {
	t.Helper()
	actual := journal.Entries()
	if !slices.Equal(actual, expected) {
		t.Errorf("expected segments to run in order %v, but ran %v", expected, actual)
	}
}

// ChaosSegment introduces controlled failures, panics and halts for chaos testing.
// It wraps another segment and, based on configured rates, disrupts the chain
// instead of delegating.
type ChaosSegment[I, O any] struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	name        string
	wrapped     segz.Segment[I, O]
	failureRate float64
	panicRate   float64
	haltRate    float64
	rng         *mathrand.Rand
	mu          sync.Mutex
	totalCalls  int64
	failedCalls int64
	panicCalls  int64
	haltedCalls int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	FailureRate float64 // Probability of returning an error (0.0 to 1.0)
	PanicRate   float64 // Probability of panicking (0.0 to 1.0)
	HaltRate    float64 // Probability of returning without calling next (0.0 to 1.0)
	Seed        int64   // Random seed for reproducible chaos (0 for random seed)
}

// ErrChaos is returned by a ChaosSegment that injects a failure.
var ErrChaos = errors.New("chaos segment induced failure")

// NewChaosSegment creates a chaos segment that wraps another segment.
func NewChaosSegment[I, O any](name string, wrapped segz.Segment[I, O], config ChaosConfig) *ChaosSegment[I, O] {
	seed := config.Seed
	if seed == 0 {
		// Use crypto/rand for better randomness
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			// Fallback to time-based seed if crypto/rand fails
			seed = time.Now().UnixNano()
		} else {
			seed = int64(seedBytes[0])<<56 | int64(seedBytes[1])<<48 | int64(seedBytes[2])<<40 | int64(seedBytes[3])<<32 |
				int64(seedBytes[4])<<24 | int64(seedBytes[5])<<16 | int64(seedBytes[6])<<8 | int64(seedBytes[7])
		}
	}

	return &ChaosSegment[I, O]{
		name:        name,
		wrapped:     wrapped,
		failureRate: config.FailureRate,
		panicRate:   config.PanicRate,
		haltRate:    config.HaltRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: Test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Name returns the name of the chaos segment.
func (c *ChaosSegment[I, O]) Name() segz.Name {
	return segz.Name(c.name)
}

// Process implements segz.Segment with chaos injection.
func (c *ChaosSegment[I, O]) Process(ctx context.Context, in *I, out *O, next segz.Next) error {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	injectPanic := c.rng.Float64() < c.panicRate
	injectFailure := c.rng.Float64() < c.failureRate
	injectHalt := c.rng.Float64() < c.haltRate
	c.mu.Unlock()

	switch {
	case injectPanic:
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos segment induced panic")
	case injectFailure:
		atomic.AddInt64(&c.failedCalls, 1)
		return ErrChaos
	case injectHalt:
		atomic.AddInt64(&c.haltedCalls, 1)
		return nil
	}
	return c.wrapped.Process(ctx, in, out, next)
}

// Stats returns statistics about chaos injection.
func (c *ChaosSegment[I, O]) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:  atomic.LoadInt64(&c.totalCalls),
		FailedCalls: atomic.LoadInt64(&c.failedCalls),
		PanicCalls:  atomic.LoadInt64(&c.panicCalls),
		HaltedCalls: atomic.LoadInt64(&c.haltedCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls  int64
	FailedCalls int64
	PanicCalls  int64
	HaltedCalls int64
}

// FailureRate returns the actual failure rate observed.
func (s ChaosStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// PanicRate returns the actual panic rate observed.
func (s ChaosStats) PanicRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.PanicCalls) / float64(s.TotalCalls)
}

// HaltRate returns the actual halt rate observed.
func (s ChaosStats) HaltRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.HaltedCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d (%.1f%%), Panics: %d (%.1f%%), Halted: %d (%.1f%%)}",
		s.TotalCalls, s.FailedCalls, s.FailureRate()*100,
		s.PanicCalls, s.PanicRate()*100,
		s.HaltedCalls, s.HaltRate()*100)
}

// Helper Functions

// ParallelTest runs a test function in parallel with multiple goroutines.
// Useful for checking that separate invocations of a shared pipe stay isolated.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}
