package testing

import (
	"context"
	"testing"

	"github.com/zoobzio/segz"
	"github.com/zoobzio/segz/segments"
)

// Simple test to verify the testing infrastructure works.
func TestSimpleInfrastructure(t *testing.T) {
	ctx := context.Background()

	// Test basic segment
	pipe := segz.NewPipe[int, int]("simple",
		segments.NewIntAdder(10),
		segments.NewIntMultiplier(2),
	)
	defer pipe.Close()

	in, out := 1, 1
	if err := pipe.Invoke(ctx, &in, &out); err != nil {
		t.Fatalf("pipe failed: %v", err)
	}

	expected := 22 // (1 + 10) * 2
	if out != expected {
		t.Errorf("expected %d, got %d", expected, out)
	}
}

func TestConcurrentInvocations(t *testing.T) {
	mock := NewMockSegment[int, int](t, "shared").
		WithMutation(func(in *int, out *int) {
			*out = *in * 2
		})

	pipe := segz.NewPipe[int, int]("shared-pipe", mock)
	defer pipe.Close()

	results := make([]int, 20)
	ParallelTest(t, 20, func(id int) {
		in := id
		out, err := pipe.Out(context.Background(), &in)
		if err != nil {
			t.Errorf("invocation %d failed: %v", id, err)
			return
		}
		results[id] = out
	})

	for id, got := range results {
		if got != id*2 {
			t.Errorf("invocation %d: expected %d, got %d", id, id*2, got)
		}
	}
	AssertProcessed(t, mock, 20)
}
