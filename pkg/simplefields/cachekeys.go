package simplefields

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Cache key layout. Every key written for an item embeds "item:<id>:", so
// per-item invalidation can scan the group's live keys and delete matches.

func itemKeyFragment(itemID uuid.UUID) string {
	return "item:" + itemID.String() + ":"
}

func fieldCacheKey(itemID uuid.UUID, metaKey string, single bool) string {
	mode := "all"
	if single {
		mode = "one"
	}
	return fmt.Sprintf("item:%s:field:%s:%s", itemID, metaKey, mode)
}

func itemCacheKey(itemID uuid.UUID, includeMeta bool) string {
	if includeMeta {
		return fmt.Sprintf("item:%s:full", itemID)
	}
	return fmt.Sprintf("item:%s:bare", itemID)
}

// QueryCacheKey derives a stable key from a query's arguments. Equal queries
// always hash to the same key regardless of filter declaration order.
func QueryCacheKey(q Query) string {
	parts := []string{
		"type=" + q.Type,
		"status=" + string(q.Status),
		"search=" + q.Search,
		fmt.Sprintf("st=%t;sb=%t", q.SearchTitle, q.SearchBody),
		"orderby=" + q.OrderBy,
		"metakey=" + q.MetaKey,
		"order=" + q.Order,
		fmt.Sprintf("limit=%d;offset=%d;or=%t", q.Limit, q.Offset, q.MetaOr),
	}
	filters := make([]string, 0, len(q.MetaFilters))
	for _, f := range q.MetaFilters {
		filters = append(filters, fmt.Sprintf("%s%s%v", f.Key, f.Compare, f.Value))
	}
	sort.Strings(filters)
	parts = append(parts, filters...)

	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("query:%x", h.Sum64())
}

// CacheableQuery bounds cache-key cardinality: only "simple" queries with a
// small argument surface and no custom comparator are cached.
func CacheableQuery(q Query) bool {
	if q.Compare != nil || q.Search != "" {
		return false
	}
	args := len(q.MetaFilters)
	if q.Status != "" {
		args++
	}
	if q.OrderBy != "" {
		args++
	}
	if q.Limit != 0 || q.Offset != 0 {
		args++
	}
	return args <= 4
}

// invalidateItemKeys deletes every cached key in group that belongs to one
// item. O(n) in the group's key count; the Cache contract requires key
// enumeration for exactly this purpose.
func invalidateItemKeys(ctx context.Context, cache Cache, group string, itemID uuid.UUID) {
	if cache == nil {
		return
	}
	keys, err := cache.Keys(ctx, group)
	if err != nil {
		return
	}
	frag := itemKeyFragment(itemID)
	for _, k := range keys {
		if strings.Contains(k, frag) {
			cache.Delete(ctx, group, k)
		}
	}
}

// invalidateQueryKeys deletes every cached list-query result in group.
func invalidateQueryKeys(ctx context.Context, cache Cache, group string) {
	if cache == nil {
		return
	}
	keys, err := cache.Keys(ctx, group)
	if err != nil {
		return
	}
	for _, k := range keys {
		if strings.HasPrefix(k, "query:") {
			cache.Delete(ctx, group, k)
		}
	}
}

// purgeGroup deletes every cached key in group.
func purgeGroup(ctx context.Context, cache Cache, group string) {
	if cache == nil {
		return
	}
	keys, err := cache.Keys(ctx, group)
	if err != nil {
		return
	}
	for _, k := range keys {
		cache.Delete(ctx, group, k)
	}
}
