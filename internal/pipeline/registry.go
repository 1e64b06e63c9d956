package pipeline

import (
	"github.com/rotisserie/eris"
)

// Registry maps stage names to their implementations.
type Registry struct {
	stages map[string]Stage
	order  []string // insertion order, which is also run order
}

// NewRegistry creates a registry holding the four batch stages in pipeline order.
func NewRegistry() *Registry {
	r := &Registry{stages: make(map[string]Stage)}
	r.Register(CleanStage{})
	r.Register(FeatureStage{})
	r.Register(LoadStage{})
	r.Register(TrainStage{})
	return r
}

// Register adds a stage to the registry. Re-registering a name replaces the
// implementation but keeps its position.
func (r *Registry) Register(s Stage) {
	name := s.Name()
	if _, ok := r.stages[name]; !ok {
		r.order = append(r.order, name)
	}
	r.stages[name] = s
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, error) {
	s, ok := r.stages[name]
	if !ok {
		return nil, eris.Errorf("pipeline: unknown stage %q", name)
	}
	return s, nil
}

// Select returns the named stages in pipeline order regardless of the order
// given. An empty names list selects every stage.
func (r *Registry) Select(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}
	var result []Stage
	for _, name := range r.order {
		if want[name] {
			result = append(result, r.stages[name])
		}
	}
	return result, nil
}

// All returns all stages in registration order.
func (r *Registry) All() []Stage {
	result := make([]Stage, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.stages[name])
	}
	return result
}

// Names returns the registered stage names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
