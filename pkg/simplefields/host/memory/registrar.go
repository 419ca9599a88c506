package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

// Registrar is an in-process implementation of the
// simplefields.TypeRegistrar interface. Re-registering an id overwrites the
// previous descriptor.
type Registrar struct {
	mu    sync.RWMutex
	types map[string]simplefields.TypeHandle
}

// NewRegistrar creates a new in-process type registrar.
func NewRegistrar() *Registrar {
	return &Registrar{types: make(map[string]simplefields.TypeHandle)}
}

// RegisterType declares a content type and returns its handle.
func (r *Registrar) RegisterType(id string, desc simplefields.TypeDescriptor) (simplefields.TypeHandle, error) {
	if id == "" {
		return simplefields.TypeHandle{}, fmt.Errorf("content type id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	handle := simplefields.TypeHandle{ID: id, Descriptor: desc}
	r.types[id] = handle
	return handle, nil
}

// Registered returns the handle for a declared type.
func (r *Registrar) Registered(id string) (simplefields.TypeHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.types[id]
	return h, ok
}

// Capabilities is a static implementation of the
// simplefields.CapabilityChecker interface, granting a fixed capability set.
// Per-item denials can be layered on with DenyItem.
type Capabilities struct {
	mu      sync.RWMutex
	granted map[string]bool
	denied  map[uuid.UUID]bool
}

// NewCapabilities creates a checker granting the listed capabilities.
func NewCapabilities(granted ...string) *Capabilities {
	m := make(map[string]bool, len(granted))
	for _, c := range granted {
		m[c] = true
	}
	return &Capabilities{granted: m, denied: make(map[uuid.UUID]bool)}
}

// DenyItem blacklists one item id regardless of capability.
func (c *Capabilities) DenyItem(id uuid.UUID) {
	c.mu.Lock()
	c.denied[id] = true
	c.mu.Unlock()
}

// Can reports whether the capability is granted and the item not denied.
func (c *Capabilities) Can(ctx context.Context, capability string, itemID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if itemID != uuid.Nil && c.denied[itemID] {
		return false
	}
	return c.granted[capability]
}
