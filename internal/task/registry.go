package task

import (
	"fmt"
	"sort"
	"sync"
)

// Config represents a named-option record handed to a task factory. Values
// come from YAML files or -set flags, so getters must tolerate both native
// and string-typed scalars.
type Config map[string]any

// Factory constructs a task with the provided configuration.
type Factory func(Config) (Task, error)

// Registry maintains known task factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a task factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("task: id is required")
	}
	if factory == nil {
		return fmt.Errorf("task: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("task: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs a task by ID.
func (r *Registry) Resolve(id string, cfg Config) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("task: unknown id %s", id)
	}
	t, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	if err := t.Info().Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// IDs returns a sorted list of registered task identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
