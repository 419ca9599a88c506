// Package memory provides an in-memory Cache implementation with per-entry
// TTL and key enumeration for pattern-based invalidation.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an in-memory implementation of the simplefields.Cache interface.
// Expired entries are dropped lazily on access.
type Cache struct {
	mu     sync.RWMutex
	groups map[string]map[string]entry
}

// New creates a new in-memory cache.
func New() *Cache {
	return &Cache{groups: make(map[string]map[string]entry)}
}

// Get returns the live value for a key, or a miss.
func (c *Cache) Get(ctx context.Context, group, key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.groups[group][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		c.Delete(ctx, group, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, group, key string, value interface{}, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groups[group] == nil {
		c.groups[group] = make(map[string]entry)
	}
	c.groups[group][key] = e
	return nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (c *Cache) Delete(ctx context.Context, group, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.groups[group]; ok {
		delete(g, key)
	}
	return nil
}

// Keys returns every unexpired key in a group.
func (c *Cache) Keys(ctx context.Context, group string) ([]string, error) {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[group]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(g))
	for k, e := range g {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len reports the number of live entries in a group; exposed for tests.
func (c *Cache) Len(group string) int {
	keys, _ := c.Keys(context.Background(), group)
	return len(keys)
}
