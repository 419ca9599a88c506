package simplefields

import (
	"context"
	"sync"
)

// Registry maps content type identifiers to lazily constructed Model
// singletons. It replaces global mutable state: callers thread one Registry
// through their application context and every lookup for the same type id
// returns the same instance, regardless of the config supplied to later
// calls.
type Registry struct {
	mu     sync.Mutex
	models map[string]*Model
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Instance returns the singleton Model for a content type, constructing it on
// first access. Construction is mutex-guarded; concurrent first calls still
// produce exactly one instance.
func (r *Registry) Instance(typ ContentType, cfg ModelConfig) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[typ.TypeID()]; ok {
		return m, nil
	}
	m, err := NewModel(typ, cfg)
	if err != nil {
		return nil, err
	}
	r.models[typ.TypeID()] = m
	return m, nil
}

// Get returns the model registered for a type id, if any.
func (r *Registry) Get(typeID string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[typeID]
	return m, ok
}

// Models returns every registered model.
func (r *Registry) Models() []*Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// RunAll starts every registered model.
func (r *Registry) RunAll(ctx context.Context) error {
	for _, m := range r.Models() {
		if err := m.Run(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// DeactivateAll pauses every registered model; used at shutdown.
func (r *Registry) DeactivateAll() {
	for _, m := range r.Models() {
		m.Deactivate()
	}
}
