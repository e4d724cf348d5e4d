package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/segz"
)

// syncBuffer guards a bytes.Buffer written by async hook handlers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewWithWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo)

	logger.Error("boom", "error", errors.New("bad"))
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "err=bad")
	assert.NotContains(t, out, "error=bad")
	assert.NotContains(t, out, "hidden")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	require.NotNil(t, logger)
	logger.Error("discarded")
}

func TestObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Complete", func(t *testing.T) {
		buf := &syncBuffer{}
		pipe := segz.NewPipe[int, int]("observed").
			ThenFunc(func(_ context.Context, _ *int, out *int, next segz.Next) error {
				*out++
				return next()
			})
		defer pipe.Close()
		require.NoError(t, Observe(NewWithWriter(buf, slog.LevelDebug), pipe))

		in, out := 0, 0
		require.NoError(t, pipe.Invoke(ctx, &in, &out))

		assert.Eventually(t, func() bool {
			s := buf.String()
			return strings.Contains(s, "pipe complete") && strings.Contains(s, "segment settled")
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Halted", func(t *testing.T) {
		buf := &syncBuffer{}
		pipe := segz.NewPipe[int, int]("observed").
			ThenFunc(func(_ context.Context, _ *int, _ *int, _ segz.Next) error {
				return nil
			})
		defer pipe.Close()
		require.NoError(t, Observe(NewWithWriter(buf, slog.LevelInfo), pipe))

		in, out := 0, 0
		require.NoError(t, pipe.Invoke(ctx, &in, &out))

		assert.Eventually(t, func() bool {
			return strings.Contains(buf.String(), "pipe halted")
		}, time.Second, 10*time.Millisecond)
		assert.NotContains(t, buf.String(), "segment settled")
	})

	t.Run("Failed", func(t *testing.T) {
		buf := &syncBuffer{}
		pipe := segz.NewPipe[int, int]("observed").
			ThenFunc(func(_ context.Context, _ *int, _ *int, _ segz.Next) error {
				return errors.New("kaput")
			})
		defer pipe.Close()
		require.NoError(t, Observe(NewWithWriter(buf, slog.LevelInfo), pipe))

		in, out := 0, 0
		require.Error(t, pipe.Invoke(ctx, &in, &out))

		assert.Eventually(t, func() bool {
			s := buf.String()
			return strings.Contains(s, "pipe failed") && strings.Contains(s, "kaput")
		}, time.Second, 10*time.Millisecond)
	})
}
