// Package redis provides a Cache implementation backed by Redis. This is the
// recommended provider for distributed deployments where multiple instances
// share cached field values.
//
// Values round-trip through JSON, so cached reads come back as JSON-decoded
// types (numbers as float64, lists as []interface{}). The codec's coercion
// helpers absorb that on the read path.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keySeparator = ":k:"

// Cache is a Redis-backed implementation of the simplefields.Cache interface.
type Cache struct {
	client *redis.Client
}

// New constructs a Redis-backed cache around an existing client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) redisKey(group, key string) string {
	return group + keySeparator + key
}

// Get returns the cached value for a key, or a miss when the key does not
// exist or fails to decode.
func (c *Cache) Get(ctx context.Context, group, key string) (interface{}, bool) {
	raw, err := c.client.Get(ctx, c.redisKey(group, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}

// Set stores a value with TTL. Values that cannot marshal to JSON are
// silently not cached; callers fall back to the store on the next read.
func (c *Cache) Set(ctx context.Context, group, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return c.client.Set(ctx, c.redisKey(group, key), raw, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, group, key string) error {
	return c.client.Del(ctx, c.redisKey(group, key)).Err()
}

// Keys enumerates every live key in a group via SCAN, satisfying the Cache
// contract's pattern-invalidation requirement without blocking the server
// the way KEYS would.
func (c *Cache) Keys(ctx context.Context, group string) ([]string, error) {
	prefix := group + keySeparator
	var keys []string

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
