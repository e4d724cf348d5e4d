// Package recipe assembles segz pipes from declarative YAML documents.
//
// A recipe names a pipe and lists its steps in execution order. Each step
// names a registered segment kind and, optionally, params decoded onto the
// freshly allocated segment. The reserved kind "pipe" nests a pipe built
// from the step's own steps.
//
//	name: shout
//	steps:
//	  - kind: copy
//	  - kind: capitalize
//	    params: { mode: all }
//	  - kind: pipe
//	    name: inner
//	    steps:
//	      - kind: repeat
//	        params: { count: 1 }
//	      - kind: reverse
package recipe

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KindPipe is the reserved step kind for nested pipes.
const KindPipe = "pipe"

var (
	// ErrUnnamed is returned for a recipe without a name.
	ErrUnnamed = errors.New("recipe has no name")
	// ErrUnknownKind is returned for a step whose kind is not registered.
	ErrUnknownKind = errors.New("unknown segment kind")
	// ErrInvalidParams is returned when a step's params do not fit its segment.
	ErrInvalidParams = errors.New("invalid segment params")
	// ErrEmptyPipe is returned for a nested pipe step with no steps.
	ErrEmptyPipe = errors.New("nested pipe has no steps")
)

// Recipe is the declarative form of a pipe.
type Recipe struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step is one entry in a recipe. Name and Steps only apply to KindPipe.
type Step struct {
	Kind   string         `yaml:"kind"`
	Name   string         `yaml:"name,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
	Steps  []Step         `yaml:"steps,omitempty"`
}

// Parse decodes a recipe from YAML and validates its shape.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads and parses the recipe at path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	return Parse(data)
}

// Validate checks the structure of the recipe without resolving kinds.
// An empty top-level step list is allowed and builds a pass-through pipe.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return ErrUnnamed
	}
	return validateSteps(r.Name, r.Steps)
}

func validateSteps(parent string, steps []Step) error {
	for i, step := range steps {
		switch {
		case step.Kind == "":
			return fmt.Errorf("%s step %d: %w: empty kind", parent, i, ErrUnknownKind)
		case step.Kind == KindPipe:
			if len(step.Steps) == 0 {
				return fmt.Errorf("%s step %d: %w", parent, i, ErrEmptyPipe)
			}
			if err := validateSteps(nestedName(parent, i, step), step.Steps); err != nil {
				return err
			}
		case len(step.Steps) > 0:
			return fmt.Errorf("%s step %d: only %q steps may have steps", parent, i, KindPipe)
		}
	}
	return nil
}

// nestedName returns the name a nested pipe step runs under.
func nestedName(parent string, i int, step Step) string {
	if step.Name != "" {
		return step.Name
	}
	return fmt.Sprintf("%s[%d]", parent, i)
}
