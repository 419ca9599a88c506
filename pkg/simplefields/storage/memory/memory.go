// Package memory provides an in-memory MediaResolver, mapping attachment ids
// to fixed URLs. Useful for tests and development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Resolver is an in-memory implementation of the simplefields.MediaResolver
// interface.
type Resolver struct {
	mu   sync.RWMutex
	urls map[string]string
}

// New creates a new in-memory media resolver.
func New() *Resolver {
	return &Resolver{urls: make(map[string]string)}
}

// Add registers the URL for an attachment id.
func (r *Resolver) Add(id, url string) {
	r.mu.Lock()
	r.urls[id] = url
	r.mu.Unlock()
}

// URL returns the registered URL for an id.
func (r *Resolver) URL(ctx context.Context, id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.urls[id]
	if !ok {
		return "", fmt.Errorf("unknown attachment id %q", id)
	}
	return url, nil
}
