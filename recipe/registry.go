package recipe

import (
	"fmt"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/zoobzio/segz"
	"github.com/zoobzio/segz/segments"
)

// Constructor appends the segment described by params to p.
type Constructor[I, O any] func(p *segz.Pipe[I, O], params map[string]any) error

// Registry maps step kinds to constructors for pipes over I and O.
type Registry[I, O any] struct {
	mu    sync.RWMutex
	kinds map[string]Constructor[I, O]
}

// NewRegistry returns an empty registry.
func NewRegistry[I, O any]() *Registry[I, O] {
	return &Registry[I, O]{kinds: make(map[string]Constructor[I, O])}
}

// Define registers ctor under kind, replacing any previous definition.
// KindPipe is reserved and cannot be redefined.
func (r *Registry[I, O]) Define(kind string, ctor Constructor[I, O]) error {
	if kind == "" || kind == KindPipe {
		return fmt.Errorf("cannot define kind %q", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = ctor
	return nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry[I, O]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

func (r *Registry[I, O]) lookup(kind string) (Constructor[I, O], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.kinds[kind]
	return ctor, ok
}

// Validator is implemented by segments that check their decoded params.
type Validator interface {
	Validate() error
}

// Register defines kind as a segment of type S. Each step allocates a new S
// with segz.Add, so Init defaults apply, then decodes the step params onto it.
// Params that match no field are an error, as is a segment that implements
// Validator and rejects the decoded values.
//
//	reg := recipe.NewRegistry[int, int]()
//	recipe.Register[segments.IntAdder](reg, "add")
func Register[S any, PS interface {
	*S
	segz.Segment[I, O]
}, I, O any](r *Registry[I, O], kind string) error {
	return r.Define(kind, func(p *segz.Pipe[I, O], params map[string]any) error {
		segment := segz.Add[S, PS](p)
		if len(params) == 0 {
			return nil
		}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      segment,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(params); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParams, kind, err)
		}
		if v, ok := any(segment).(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidParams, kind, err)
			}
		}
		return nil
	})
}

// Strings returns a registry preloaded with the string segments.
func Strings() *Registry[string, string] {
	r := NewRegistry[string, string]()
	_ = Register[segments.Copy[string]](r, segments.CopyName)
	_ = Register[segments.StringCapitalizer](r, segments.CapitalizeName)
	_ = Register[segments.StringRepeater](r, segments.RepeatName)
	_ = Register[segments.StringReverser](r, segments.ReverseName)
	return r
}

// Ints returns a registry preloaded with the integer segments.
func Ints() *Registry[int, int] {
	r := NewRegistry[int, int]()
	_ = Register[segments.Copy[int]](r, segments.CopyName)
	_ = Register[segments.IntAdder](r, segments.AddName)
	_ = Register[segments.IntMultiplier](r, segments.MultiplyName)
	return r
}
