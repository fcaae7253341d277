package ai

import (
	"fmt"
	"sync"
)

// Factory constructs a Generator for a model name.
type Factory func(model string) (Generator, error)

// Registry owns the mapping from model identifier to a lazily constructed
// generator handle. Construction failures are returned to the caller and never
// cached, so a transient failure does not poison later lookups. Safe for
// concurrent use.
type Registry struct {
	mu         sync.Mutex
	factory    Factory
	generators map[string]Generator
}

// NewRegistry builds a registry around the supplied factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:    factory,
		generators: make(map[string]Generator),
	}
}

// Get returns the generator for the model, constructing it on first use.
func (r *Registry) Get(model string) (Generator, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if generator, ok := r.generators[model]; ok {
		return generator, nil
	}

	if r.factory == nil {
		return nil, fmt.Errorf("no generator factory configured")
	}

	generator, err := r.factory(model)
	if err != nil {
		return nil, fmt.Errorf("construct generator for %q: %w", model, err)
	}

	r.generators[model] = generator
	return generator, nil
}
