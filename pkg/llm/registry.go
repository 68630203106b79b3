package llm

import (
	"fmt"
	"sort"
)

// ModelSpec binds a public model name to the provider that serves it.
// Resolution happens once at wiring time; request handling never dispatches
// on provider name strings.
type ModelSpec struct {
	Name     string
	Provider Provider
}

// Registry holds the chat models this deployment exposes.
type Registry struct {
	specs       map[string]ModelSpec
	defaultName string
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ModelSpec)}
}

// Register adds a model. The first registered model becomes the default.
func (r *Registry) Register(spec ModelSpec) {
	r.specs[spec.Name] = spec
	if r.defaultName == "" {
		r.defaultName = spec.Name
	}
}

// Resolve returns the spec for name, or the default spec when name is empty.
func (r *Registry) Resolve(name string) (ModelSpec, error) {
	if name == "" {
		name = r.defaultName
	}
	spec, ok := r.specs[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model: %s", name)
	}
	return spec, nil
}

// Names lists registered model names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
