package simplefields

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContentStore defines the interface for the host's primitive content
// persistence: items plus their multi-valued metadata entries. Implementations
// are provided under store/ (e.g., memory, Postgres).
type ContentStore interface {
	// Item operations
	CreateItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID, force bool) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	QueryItems(ctx context.Context, q Query) ([]*Item, error)

	// Metadata operations. Keys are multi-valued: SetMeta replaces every
	// value under the key with one value, AddMeta appends.
	GetMeta(ctx context.Context, itemID uuid.UUID, key string, single bool) (interface{}, error)
	SetMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error
	AddMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error
	DeleteMeta(ctx context.Context, itemID uuid.UUID, key string) error
	MetaExists(ctx context.Context, itemID uuid.UUID, key string) (bool, error)
}

// Cache defines the interface for cache providers. Keys returns every live
// key in a group; it backs pattern-based bulk invalidation, so providers
// without native key enumeration must maintain their own index of written
// keys (see cache/redis).
type Cache interface {
	Get(ctx context.Context, group, key string) (interface{}, bool)
	Set(ctx context.Context, group, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, group, key string) error
	Keys(ctx context.Context, group string) ([]string, error)
}

// Handler is a host event callback.
type Handler func(ctx context.Context, payload interface{}) error

// Subscription identifies one registered event callback for exact removal.
type Subscription struct {
	Event    string
	Priority int

	// Token is assigned by the bus and makes the subscription unique even
	// when the same event/priority pair is registered twice.
	Token uint64
}

// EventBus defines the interface for the host event system. Callbacks for one
// event run in ascending priority order; equal priorities run in registration
// order.
type EventBus interface {
	Subscribe(event string, priority int, h Handler) Subscription
	Unsubscribe(sub Subscription)
	Emit(ctx context.Context, event string, payload interface{}) error
}

// TypeRegistrar defines the interface for declaring content types with the
// host. Re-registering an id overwrites the previous descriptor.
type TypeRegistrar interface {
	RegisterType(id string, desc TypeDescriptor) (TypeHandle, error)
}

// CapabilityChecker answers host permission questions. itemID is uuid.Nil for
// type-level checks.
type CapabilityChecker interface {
	Can(ctx context.Context, capability string, itemID uuid.UUID) bool
}

// MediaResolver turns a stored media or file id into a URL the caller can
// render. Implementations are provided under storage/ (memory, fs, S3).
type MediaResolver interface {
	URL(ctx context.Context, id string) (string, error)
}
