package simplefields

import (
	"context"

	"github.com/google/uuid"
)

// NoopBus is a no-operation implementation of EventBus.
// Useful for library use when no host event system is wired, or for testing.
type NoopBus struct{}

// NewNoopBus creates a new no-operation event bus.
func NewNoopBus() EventBus {
	return &NoopBus{}
}

// Subscribe records nothing and returns an empty subscription.
func (n *NoopBus) Subscribe(event string, priority int, h Handler) Subscription {
	return Subscription{Event: event, Priority: priority}
}

// Unsubscribe does nothing.
func (n *NoopBus) Unsubscribe(sub Subscription) {}

// Emit does nothing and returns nil.
func (n *NoopBus) Emit(ctx context.Context, event string, payload interface{}) error {
	return nil
}

// AllowAll is a CapabilityChecker that grants every capability.
type AllowAll struct{}

// Can always returns true.
func (AllowAll) Can(ctx context.Context, capability string, itemID uuid.UUID) bool {
	return true
}

// DenyAll is a CapabilityChecker that refuses every capability.
type DenyAll struct{}

// Can always returns false.
func (DenyAll) Can(ctx context.Context, capability string, itemID uuid.UUID) bool {
	return false
}

// NoopResolver is a MediaResolver that returns ids unchanged.
type NoopResolver struct{}

// URL returns the id as-is.
func (NoopResolver) URL(ctx context.Context, id string) (string, error) {
	return id, nil
}
