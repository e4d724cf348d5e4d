package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/segz"
	"github.com/zoobzio/segz/segments"
)

var demoCmd = &cobra.Command{
	Use:   "demo [scenario]",
	Short: "Run the built-in scenarios",
	Long: `Run the built-in scenarios and print what each pipe produced.

When run without arguments, runs every scenario in order.
When run with a scenario name, runs only that scenario.`,
	ValidArgsFunction: func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []string
		for _, s := range scenarios() {
			if strings.HasPrefix(s.name, toComplete) {
				completions = append(completions, s.name)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	},
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only := ""
		if len(args) > 0 {
			only = args[0]
		}
		return runDemo(cmd.Context(), cmd.OutOrStdout(), only)
	},
}

// scenario is one demonstration pipe and the result it should produce.
type scenario struct {
	name        string
	description string
	want        string
	run         func(ctx context.Context) (string, error)
}

func scenarios() []scenario {
	return []scenario{
		{
			name:        "strings",
			description: "copy, double, capitalize on \"test\"",
			want:        "Testtest",
			run:         demoStrings,
		},
		{
			name:        "ints",
			description: "add 10, double on 5",
			want:        "30",
			run:         demoInts,
		},
		{
			name:        "tuned",
			description: "segments allocated by the pipe and tuned afterwards",
			want:        "120",
			run:         demoTuned,
		},
		{
			name:        "references",
			description: "pointer slots: output from a factory, input mutated in place",
			want:        "in=10 out=30",
			run:         demoReferences,
		},
		{
			name:        "meta",
			description: "a pipe nested in a pipe",
			want:        "tseTtseT",
			run:         demoMeta,
		},
	}
}

func runDemo(ctx context.Context, w io.Writer, only string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ran := 0
	for _, s := range scenarios() {
		if only != "" && s.name != only {
			continue
		}
		ran++

		fmt.Fprintf(w, "%s%s%s %s%s%s\n", colorCyan, s.name, colorReset, colorGray, s.description, colorReset)
		got, err := s.run(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  %sfailed: %v%s\n", colorRed, err, colorReset)
			return err
		case got != s.want:
			fmt.Fprintf(w, "  %sgot %s, want %s%s\n", colorYellow, got, s.want, colorReset)
			return fmt.Errorf("scenario %s: got %s, want %s", s.name, got, s.want)
		default:
			fmt.Fprintf(w, "  %s%s%s\n", colorGreen, got, colorReset)
		}
	}
	if ran == 0 {
		return fmt.Errorf("unknown scenario: %s\n\nRun 'segz demo' to run them all", only)
	}
	return nil
}

func demoStrings(ctx context.Context) (string, error) {
	double := segz.Takes[string, string]("double").
		Does(func(_ context.Context, _ *string, out *string, next segz.Next) error {
			*out += *out
			return next()
		})

	pipe := segz.NewPipe[string, string]("strings", &segments.Copy[string]{}, double)
	segz.Add[segments.StringCapitalizer](pipe)
	defer pipe.Close()

	in := "test"
	return pipe.Out(ctx, &in)
}

func demoInts(ctx context.Context) (string, error) {
	pipe := segz.NewPipe[int, int]("ints", segments.NewIntAdder(10), segments.NewIntMultiplier(2))
	defer pipe.Close()

	in, out := 5, 5
	err := pipe.Invoke(ctx, &in, &out)
	return strconv.Itoa(out), err
}

func demoTuned(ctx context.Context) (string, error) {
	pipe := segz.NewPipe[int, int]("tuned", segments.NewIntAdder(10))
	addFive := segz.Add[segments.IntAdder](pipe)
	pipe.Then(segments.NewIntMultiplier(2))
	triple := segz.Add[segments.IntMultiplier](pipe)
	defer pipe.Close()

	addFive.Addend = 5
	triple.Multiplier = 3

	in, out := 5, 5
	err := pipe.Invoke(ctx, &in, &out)
	return strconv.Itoa(out), err
}

type container struct {
	Contents int
}

func demoReferences(ctx context.Context) (string, error) {
	pipe := segz.NewPipe[*container, *container]("references").
		ThenFunc(func(_ context.Context, in **container, out **container, next segz.Next) error {
			(*out).Contents = (*in).Contents
			return next()
		}).
		ThenFunc(func(_ context.Context, _ **container, out **container, next segz.Next) error {
			(*out).Contents += 10
			return next()
		}).
		ThenFunc(func(_ context.Context, _ **container, out **container, next segz.Next) error {
			(*out).Contents *= 2
			return next()
		}).
		ThenFunc(func(_ context.Context, in **container, _ **container, next segz.Next) error {
			(*in).Contents *= 2
			return next()
		}).
		WithOutput(segz.Alloc[container])
	defer pipe.Close()

	in := &container{Contents: 5}
	out, err := pipe.Out(ctx, &in)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("in=%d out=%d", in.Contents, out.Contents), nil
}

func demoMeta(ctx context.Context) (string, error) {
	inner := segz.NewPipe[string, string]("inner")
	segz.Add[segments.StringRepeater](inner)
	segz.Add[segments.StringReverser](inner)
	defer inner.Close()

	outer := segz.NewPipe[string, string]("outer", &segments.Copy[string]{})
	segz.Add[segments.StringCapitalizer](outer)
	outer.Then(inner)
	defer outer.Close()

	in := "test"
	return outer.Out(ctx, &in)
}
