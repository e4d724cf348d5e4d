// Package segments provides ready-made segments for text and integer pipes.
//
// Every type here follows the segz.Segment contract: mutate the output slot,
// then call next. Configurable fields can be changed after a segment has been
// appended with segz.Add and before the pipe runs.
package segments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/segz"
)

// Segment names.
const (
	CopyName       segz.Name = "copy"
	AddName        segz.Name = "add"
	MultiplyName   segz.Name = "multiply"
	CapitalizeName segz.Name = "capitalize"
	RepeatName     segz.Name = "repeat"
	ReverseName    segz.Name = "reverse"
)

// Copy sets the output to the input.
type Copy[T any] struct{}

// Name returns the segment name.
func (*Copy[T]) Name() segz.Name { return CopyName }

// Process copies *in into *out.
func (*Copy[T]) Process(_ context.Context, in *T, out *T, next segz.Next) error {
	*out = *in
	return next()
}

// IntAdder adds Addend to the output.
type IntAdder struct {
	Addend int `mapstructure:"addend"`
}

// NewIntAdder returns an adder for addend.
func NewIntAdder(addend int) *IntAdder {
	return &IntAdder{Addend: addend}
}

// Name returns the segment name.
func (*IntAdder) Name() segz.Name { return AddName }

// Process adds the configured addend to *out.
func (a *IntAdder) Process(_ context.Context, _ *int, out *int, next segz.Next) error {
	*out += a.Addend
	return next()
}

// IntMultiplier multiplies the output by Multiplier. The default multiplier is 1.
type IntMultiplier struct {
	Multiplier int `mapstructure:"multiplier"`
}

// NewIntMultiplier returns a multiplier for factor.
func NewIntMultiplier(factor int) *IntMultiplier {
	return &IntMultiplier{Multiplier: factor}
}

// Init sets the default multiplier.
func (m *IntMultiplier) Init() {
	m.Multiplier = 1
}

// Name returns the segment name.
func (*IntMultiplier) Name() segz.Name { return MultiplyName }

// Process multiplies *out by the configured factor.
func (m *IntMultiplier) Process(_ context.Context, _ *int, out *int, next segz.Next) error {
	*out *= m.Multiplier
	return next()
}

// CapitalizationMode selects how StringCapitalizer rewrites its output.
type CapitalizationMode string

// Capitalization modes.
const (
	FirstLetter CapitalizationMode = "first"
	All         CapitalizationMode = "all"
)

// StringCapitalizer upper-cases the first letter of the output, or all of it.
// The default mode is FirstLetter.
type StringCapitalizer struct {
	Mode CapitalizationMode `mapstructure:"mode"`
}

// NewStringCapitalizer returns a capitalizer using mode.
func NewStringCapitalizer(mode CapitalizationMode) *StringCapitalizer {
	return &StringCapitalizer{Mode: mode}
}

// Init sets the default mode.
func (c *StringCapitalizer) Init() {
	c.Mode = FirstLetter
}

// Name returns the segment name.
func (*StringCapitalizer) Name() segz.Name { return CapitalizeName }

// Process capitalizes *out. Unknown modes capitalize everything.
func (c *StringCapitalizer) Process(_ context.Context, _ *string, out *string, next segz.Next) error {
	switch c.Mode {
	case FirstLetter:
		*out = capitalizeFirst(*out)
	default:
		*out = strings.ToUpper(*out)
	}
	return next()
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// MaxRepeatCount bounds StringRepeater. Each repeat doubles the output, so
// the output grows by a factor of 2^RepeatCount.
const MaxRepeatCount = 16

// ErrRepeatCount is returned for a repeat count outside [0, MaxRepeatCount].
var ErrRepeatCount = errors.New("repeat count out of range")

// StringRepeater doubles the output RepeatCount times. The default count is 1.
type StringRepeater struct {
	RepeatCount int `mapstructure:"count"`
}

// NewStringRepeater returns a repeater that doubles count times.
func NewStringRepeater(count int) *StringRepeater {
	return &StringRepeater{RepeatCount: count}
}

// Init sets the default repeat count.
func (r *StringRepeater) Init() {
	r.RepeatCount = 1
}

// Validate rejects counts outside [0, MaxRepeatCount].
func (r *StringRepeater) Validate() error {
	if r.RepeatCount < 0 || r.RepeatCount > MaxRepeatCount {
		return fmt.Errorf("%w: %d (max %d)", ErrRepeatCount, r.RepeatCount, MaxRepeatCount)
	}
	return nil
}

// Name returns the segment name.
func (*StringRepeater) Name() segz.Name { return RepeatName }

// Process appends *out to itself RepeatCount times.
func (r *StringRepeater) Process(_ context.Context, _ *string, out *string, next segz.Next) error {
	if err := r.Validate(); err != nil {
		return err
	}
	*out = strings.Repeat(*out, 1<<r.RepeatCount)
	return next()
}

// StringReverser reverses the output rune by rune.
type StringReverser struct{}

// Name returns the segment name.
func (*StringReverser) Name() segz.Name { return ReverseName }

// Process reverses *out.
func (*StringReverser) Process(_ context.Context, _ *string, out *string, next segz.Next) error {
	runes := []rune(*out)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	*out = string(runes)
	return next()
}
