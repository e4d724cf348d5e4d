package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/zoobzio/segz"
	"github.com/zoobzio/segz/internal/logging"
	"github.com/zoobzio/segz/internal/metrics"
	"github.com/zoobzio/segz/recipe"
)

type runOptions struct {
	recipePath string
	input      string
	inputType  string
	selector   string
	verbose    bool
	metrics    bool
}

var (
	runOpts runOptions

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a recipe against one input",
		Long: `Build the pipe described by a recipe and invoke it once.

The output slot starts as a copy of the input. The final output is printed
to stdout. With --verbose every pipe event is logged to stderr.

Examples:
  segz run --recipe recipes/strings/meta.yaml --input test
  segz run --recipe recipes/ints/arithmetic.yaml --type int --input 5
  segz run --recipe recipes/strings/shout.yaml --input '{"user":{"name":"ada"}}' --select user.name`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if runOpts.verbose {
				level = slog.LevelDebug
			}
			return runRecipe(cmd.Context(), cmd.OutOrStdout(), logging.New(level), runOpts)
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runOpts.recipePath, "recipe", "r", "", "Path to the recipe file")
	runCmd.Flags().StringVarP(&runOpts.input, "input", "i", "", "Input value")
	runCmd.Flags().StringVarP(&runOpts.inputType, "type", "t", typeString, "Slot type: string or int")
	runCmd.Flags().StringVarP(&runOpts.selector, "select", "s", "", "Treat the input as JSON and take the value at this path")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "Log pipe events to stderr")
	runCmd.Flags().BoolVar(&runOpts.metrics, "metrics", false, "Print pipe metrics in Prometheus text format after the output")
	_ = runCmd.MarkFlagRequired("recipe")
}

func runRecipe(ctx context.Context, w io.Writer, logger *slog.Logger, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := recipe.Load(opts.recipePath)
	if err != nil {
		return err
	}
	switch opts.inputType {
	case typeString:
		return execute(ctx, w, logger, opts, rec, recipe.Strings(), parseString)
	case typeInt:
		return execute(ctx, w, logger, opts, rec, recipe.Ints(), parseInt)
	default:
		return fmt.Errorf("unsupported type %q (want %s or %s)", opts.inputType, typeString, typeInt)
	}
}

func execute[T any](ctx context.Context, w io.Writer, logger *slog.Logger, opts runOptions, rec *recipe.Recipe, reg *recipe.Registry[T, T], parse func(string) (T, error)) error {
	raw, err := selectInput(opts.input, opts.selector)
	if err != nil {
		return err
	}
	in, err := parse(raw)
	if err != nil {
		return err
	}

	pipe, err := recipe.Build(rec, reg)
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", rec.Name, err)
	}
	defer pipe.Close()

	if opts.verbose {
		for _, p := range pipe.Pipes() {
			if err := logging.Observe(logger, p); err != nil {
				return err
			}
		}
	}

	out := in
	invokeErr := pipe.Invoke(ctx, &in, &out)
	if invokeErr != nil {
		var segErr *segz.Error
		if errors.As(invokeErr, &segErr) {
			logger.Error("pipe failed",
				"path", strings.Join(segErr.Path, " -> "),
				"stage", segErr.Stage,
				"panicked", segErr.Panicked,
				"error", segErr.Err,
			)
		}
	}
	fmt.Fprintln(w, out)

	if opts.metrics {
		if err := writeMetrics(w, metrics.NewCollector(pipe)); err != nil {
			return err
		}
	}
	return invokeErr
}

func writeMetrics(w io.Writer, c *metrics.Collector) error {
	families, err := metrics.Registry(c).Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return err
		}
	}
	return nil
}
