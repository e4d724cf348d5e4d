package recipe

import (
	"fmt"

	"github.com/zoobzio/segz"
)

// Assembly is a pipe built from a recipe. Close releases the nested pipes
// along with the top-level one.
type Assembly[I, O any] struct {
	*segz.Pipe[I, O]
	nested []*segz.Pipe[I, O]
}

// Close shuts down every pipe in the assembly.
func (a *Assembly[I, O]) Close() error {
	for _, p := range a.nested {
		_ = p.Close() //nolint:errcheck
	}
	return a.Pipe.Close()
}

// Nested returns the names of the nested pipes in build order.
func (a *Assembly[I, O]) Nested() []segz.Name {
	names := make([]segz.Name, len(a.nested))
	for i, p := range a.nested {
		names[i] = p.Name()
	}
	return names
}

// Pipes returns the top-level pipe followed by the nested pipes in build
// order.
func (a *Assembly[I, O]) Pipes() []*segz.Pipe[I, O] {
	pipes := make([]*segz.Pipe[I, O], 0, len(a.nested)+1)
	pipes = append(pipes, a.Pipe)
	return append(pipes, a.nested...)
}

// Build assembles rec into a pipe using the kinds in reg.
func Build[I, O any](rec *Recipe, reg *Registry[I, O]) (*Assembly[I, O], error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	a := &Assembly[I, O]{Pipe: segz.NewPipe[I, O](rec.Name)}
	if err := a.build(a.Pipe, rec.Steps, reg); err != nil {
		_ = a.Close() //nolint:errcheck
		return nil, err
	}
	return a, nil
}

func (a *Assembly[I, O]) build(p *segz.Pipe[I, O], steps []Step, reg *Registry[I, O]) error {
	for i, step := range steps {
		if step.Kind == KindPipe {
			inner := segz.NewPipe[I, O](nestedName(p.Name(), i, step))
			a.nested = append(a.nested, inner)
			if err := a.build(inner, step.Steps, reg); err != nil {
				return err
			}
			p.Then(inner)
			continue
		}

		ctor, ok := reg.lookup(step.Kind)
		if !ok {
			return fmt.Errorf("%s step %d: %w: %q", p.Name(), i, ErrUnknownKind, step.Kind)
		}
		if err := ctor(p, step.Params); err != nil {
			return fmt.Errorf("%s step %d: %w", p.Name(), i, err)
		}
	}
	return nil
}
