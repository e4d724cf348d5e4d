package segz

import (
	"context"
	"errors"
	"testing"
)

func TestEffect(t *testing.T) {
	ctx := context.Background()

	t.Run("Effect Pass", func(t *testing.T) {
		var seen []int
		observe := Effect("observe", func(_ context.Context, in int, out int) error {
			seen = append(seen, in, out)
			return nil
		})
		pipe := NewPipe[int, int](testPipe, addInt(addTen, 10), observe, mulInt(double, 2))
		defer pipe.Close()

		in, out := 1, 5
		if err := pipe.Invoke(ctx, &in, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != 30 {
			t.Errorf("expected 30, got %d", out)
		}
		if len(seen) != 2 || seen[0] != 1 || seen[1] != 15 {
			t.Errorf("expected effect to see (1, 15), got %v", seen)
		}
	})

	t.Run("Effect Fail", func(t *testing.T) {
		errInvalid := errors.New("invalid")
		validate := Effect("validate", func(_ context.Context, _ int, out int) error {
			if out < 0 {
				return errInvalid
			}
			return nil
		})
		var log []Name
		pipe := NewPipe[int, int](testPipe, validate, trace("after", &log))
		defer pipe.Close()

		in, out := 0, -1
		err := pipe.Invoke(ctx, &in, &out)
		if !errors.Is(err, errInvalid) {
			t.Fatalf("expected invalid error, got %v", err)
		}
		if len(log) != 0 {
			t.Errorf("expected chain to stop, ran %v", log)
		}
		var segErr *Error
		if errors.As(err, &segErr) && segErr.Path[1] != "validate" {
			t.Errorf("expected failing segment 'validate', got %v", segErr.Path)
		}
	})

	t.Run("Effect Does Not Modify", func(t *testing.T) {
		type counter struct{ N int }
		tamper := Effect("tamper", func(_ context.Context, in counter, out counter) error {
			in.N++
			out.N++
			return nil
		})
		pipe := NewPipe[counter, counter](testPipe, tamper)
		defer pipe.Close()

		in, out := counter{N: 1}, counter{N: 2}
		if err := pipe.Invoke(ctx, &in, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if in.N != 1 || out.N != 2 {
			t.Errorf("expected (1, 2), got (%d, %d)", in.N, out.N)
		}
	})

	t.Run("Effect Name", func(t *testing.T) {
		if name := Effect("named", func(context.Context, int, int) error { return nil }).Name(); name != "named" {
			t.Errorf("expected 'named', got %q", name)
		}
	})
}
