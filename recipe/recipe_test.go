package recipe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/segz"
	"github.com/zoobzio/segz/recipe"
	"github.com/zoobzio/segz/segments"
)

func TestParse(t *testing.T) {
	rec, err := recipe.Parse([]byte(`
name: shout
steps:
  - kind: copy
  - kind: capitalize
    params: { mode: all }
  - kind: pipe
    name: inner
    steps:
      - kind: repeat
        params: { count: 1 }
      - kind: reverse
`))
	require.NoError(t, err)

	assert.Equal(t, "shout", rec.Name)
	require.Len(t, rec.Steps, 3)
	assert.Equal(t, "capitalize", rec.Steps[1].Kind)
	assert.Equal(t, "all", rec.Steps[1].Params["mode"])
	assert.Equal(t, recipe.KindPipe, rec.Steps[2].Kind)
	assert.Equal(t, "inner", rec.Steps[2].Name)
	assert.Len(t, rec.Steps[2].Steps, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"missing name", "steps: [{kind: copy}]", recipe.ErrUnnamed},
		{"empty kind", "name: x\nsteps: [{params: {a: 1}}]", recipe.ErrUnknownKind},
		{"empty nested pipe", "name: x\nsteps: [{kind: pipe, name: inner}]", recipe.ErrEmptyPipe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recipe.Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("steps on a segment", func(t *testing.T) {
		_, err := recipe.Parse([]byte("name: x\nsteps: [{kind: copy, steps: [{kind: copy}]}]"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := recipe.Parse([]byte("name: [unterminated"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	rec, err := recipe.Load("testdata/meta.yaml")
	require.NoError(t, err)
	assert.Equal(t, "meta", rec.Name)
	assert.NotEmpty(t, rec.Description)

	_, err = recipe.Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = recipe.Load("testdata/broken.yaml")
	assert.Error(t, err)
}

func TestBuild_Strings(t *testing.T) {
	rec, err := recipe.Load("testdata/meta.yaml")
	require.NoError(t, err)

	pipe, err := recipe.Build(rec, recipe.Strings())
	require.NoError(t, err)
	defer pipe.Close()

	assert.Equal(t, []segz.Name{"copy", "capitalize", "inner"}, pipe.Names())
	assert.Equal(t, []segz.Name{"inner"}, pipe.Nested())

	pipes := pipe.Pipes()
	require.Len(t, pipes, 2)
	assert.Same(t, pipe.Pipe, pipes[0])
	assert.Equal(t, "inner", pipes[1].Name())

	in := "test"
	out, err := pipe.Out(context.Background(), &in)
	require.NoError(t, err)
	assert.Equal(t, "tseTtseT", out)
}

func TestBuild_Ints(t *testing.T) {
	rec, err := recipe.Parse([]byte(`
name: arithmetic
steps:
  - kind: add
    params: { addend: 10 }
  - kind: add
    params: { addend: 5 }
  - kind: multiply
    params: { multiplier: 2 }
  - kind: multiply
    params: { multiplier: 3 }
`))
	require.NoError(t, err)

	pipe, err := recipe.Build(rec, recipe.Ints())
	require.NoError(t, err)
	defer pipe.Close()

	in, out := 5, 5
	require.NoError(t, pipe.Invoke(context.Background(), &in, &out))
	assert.Equal(t, 120, out)
}

func TestBuild_Defaults(t *testing.T) {
	rec, err := recipe.Parse([]byte("name: defaults\nsteps: [{kind: multiply}, {kind: repeat}]"))
	require.NoError(t, err)

	ints, err := recipe.Build(rec, recipe.Ints())
	require.ErrorIs(t, err, recipe.ErrUnknownKind)
	assert.Nil(t, ints)

	reg := recipe.Ints()
	require.NoError(t, recipe.Register[segments.IntMultiplier](reg, "repeat"))
	ints, err = recipe.Build(rec, reg)
	require.NoError(t, err)
	defer ints.Close()

	in, out := 0, 7
	require.NoError(t, ints.Invoke(context.Background(), &in, &out))
	assert.Equal(t, 7, out, "multiplier should default to 1")
}

func TestBuild_NestedName(t *testing.T) {
	rec, err := recipe.Parse([]byte("name: outer\nsteps: [{kind: pipe, steps: [{kind: reverse}]}]"))
	require.NoError(t, err)

	pipe, err := recipe.Build(rec, recipe.Strings())
	require.NoError(t, err)
	defer pipe.Close()

	assert.Equal(t, []segz.Name{"outer[0]"}, pipe.Names())
}

func TestBuild_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		rec, err := recipe.Parse([]byte("name: x\nsteps: [{kind: explode}]"))
		require.NoError(t, err)

		_, err = recipe.Build(rec, recipe.Strings())
		assert.ErrorIs(t, err, recipe.ErrUnknownKind)
		assert.Contains(t, err.Error(), "explode")
	})

	t.Run("unknown kind in nested pipe", func(t *testing.T) {
		rec, err := recipe.Parse([]byte("name: x\nsteps: [{kind: pipe, name: in, steps: [{kind: add}]}]"))
		require.NoError(t, err)

		_, err = recipe.Build(rec, recipe.Strings())
		assert.ErrorIs(t, err, recipe.ErrUnknownKind)
		assert.Contains(t, err.Error(), "in step 0")
	})

	t.Run("unused params", func(t *testing.T) {
		rec, err := recipe.Parse([]byte("name: x\nsteps: [{kind: add, params: {addend: 1, bogus: 2}}]"))
		require.NoError(t, err)

		_, err = recipe.Build(rec, recipe.Ints())
		assert.ErrorIs(t, err, recipe.ErrInvalidParams)
	})

	t.Run("mistyped params", func(t *testing.T) {
		rec, err := recipe.Parse([]byte("name: x\nsteps: [{kind: repeat, params: {count: many}}]"))
		require.NoError(t, err)

		_, err = recipe.Build(rec, recipe.Strings())
		assert.ErrorIs(t, err, recipe.ErrInvalidParams)
	})

	t.Run("repeat count over limit", func(t *testing.T) {
		rec, err := recipe.Parse([]byte("name: x\nsteps: [{kind: repeat, params: {count: 40}}]"))
		require.NoError(t, err)

		_, err = recipe.Build(rec, recipe.Strings())
		assert.ErrorIs(t, err, recipe.ErrInvalidParams)
		assert.ErrorIs(t, err, segments.ErrRepeatCount)
	})

	t.Run("unvalidated recipe", func(t *testing.T) {
		_, err := recipe.Build(&recipe.Recipe{}, recipe.Strings())
		assert.True(t, errors.Is(err, recipe.ErrUnnamed))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Kinds", func(t *testing.T) {
		assert.Equal(t, []string{"capitalize", "copy", "repeat", "reverse"}, recipe.Strings().Kinds())
		assert.Equal(t, []string{"add", "copy", "multiply"}, recipe.Ints().Kinds())
	})

	t.Run("Pipe Is Reserved", func(t *testing.T) {
		reg := recipe.NewRegistry[int, int]()
		assert.Error(t, recipe.Register[segments.IntAdder](reg, recipe.KindPipe))
		assert.Error(t, reg.Define("", nil))
		assert.Empty(t, reg.Kinds())
	})

	t.Run("Define Custom Constructor", func(t *testing.T) {
		reg := recipe.NewRegistry[int, int]()
		require.NoError(t, reg.Define("negate", func(p *segz.Pipe[int, int], _ map[string]any) error {
			p.ThenFunc(func(_ context.Context, _ *int, out *int, next segz.Next) error {
				*out = -*out
				return next()
			})
			return nil
		}))

		pipe, err := recipe.Build(&recipe.Recipe{Name: "neg", Steps: []recipe.Step{{Kind: "negate"}}}, reg)
		require.NoError(t, err)
		defer pipe.Close()

		in, out := 0, 4
		require.NoError(t, pipe.Invoke(context.Background(), &in, &out))
		assert.Equal(t, -4, out)
	})

	t.Run("Each Step Gets Its Own Segment", func(t *testing.T) {
		rec := &recipe.Recipe{Name: "twice", Steps: []recipe.Step{
			{Kind: "add", Params: map[string]any{"addend": 1}},
			{Kind: "add", Params: map[string]any{"addend": 100}},
		}}
		pipe, err := recipe.Build(rec, recipe.Ints())
		require.NoError(t, err)
		defer pipe.Close()

		in, out := 0, 0
		require.NoError(t, pipe.Invoke(context.Background(), &in, &out))
		assert.Equal(t, 101, out)
	})
}
