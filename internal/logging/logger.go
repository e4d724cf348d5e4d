// Package logging configures the CLI logger and bridges pipe events into it.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/zoobzio/segz"
)

// New creates a configured application logger.
// It writes to Stderr so pipe output on Stdout stays clean.
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with a caller-supplied destination.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Observable is the part of a pipe that publishes events.
type Observable interface {
	OnSegmentComplete(func(context.Context, segz.PipeEvent) error) error
	OnComplete(func(context.Context, segz.PipeEvent) error) error
	OnHalted(func(context.Context, segz.PipeEvent) error) error
	OnFailed(func(context.Context, segz.PipeEvent) error) error
}

// Observe logs every event p publishes. Segment events are logged at debug,
// completions and halts at info, failures at error.
func Observe(logger *slog.Logger, p Observable) error {
	if err := p.OnSegmentComplete(func(ctx context.Context, e segz.PipeEvent) error {
		logger.DebugContext(ctx, "segment settled",
			"pipe", e.Name,
			"segment", e.SegmentName,
			"number", e.SegmentNumber,
			"of", e.TotalSegments,
			"success", e.Success,
			"halted", e.Halted,
			"duration", e.Duration,
		)
		return nil
	}); err != nil {
		return err
	}
	if err := p.OnComplete(func(ctx context.Context, e segz.PipeEvent) error {
		logger.InfoContext(ctx, "pipe complete",
			"pipe", e.Name,
			"segments", e.CompletedSegments,
			"duration", e.TotalDuration,
		)
		return nil
	}); err != nil {
		return err
	}
	if err := p.OnHalted(func(ctx context.Context, e segz.PipeEvent) error {
		logger.InfoContext(ctx, "pipe halted",
			"pipe", e.Name,
			"segment", e.SegmentName,
			"number", e.SegmentNumber,
			"duration", e.TotalDuration,
		)
		return nil
	}); err != nil {
		return err
	}
	return p.OnFailed(func(ctx context.Context, e segz.PipeEvent) error {
		logger.ErrorContext(ctx, "pipe failed",
			"pipe", e.Name,
			"segments", e.CompletedSegments,
			"error", e.Error,
		)
		return nil
	})
}
