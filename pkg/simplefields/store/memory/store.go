// Package memory provides an in-memory ContentStore implementation, suitable
// for tests and development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

// Store is an in-memory implementation of the simplefields.ContentStore
// interface.
type Store struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*simplefields.Item
	meta  map[uuid.UUID]map[string][]interface{}
}

// New creates a new in-memory content store.
func New() *Store {
	return &Store{
		items: make(map[uuid.UUID]*simplefields.Item),
		meta:  make(map[uuid.UUID]map[string][]interface{}),
	}
}

// CreateItem stores a new item. Creating an existing id fails.
func (s *Store) CreateItem(ctx context.Context, item *simplefields.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return &simplefields.StoreError{ItemID: item.ID, Op: "create", Err: errItemExists}
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

// UpdateItem replaces a stored item.
func (s *Store) UpdateItem(ctx context.Context, item *simplefields.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; !exists {
		return simplefields.ErrItemNotFound
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

// DeleteItem removes an item; without force a trashed-style soft delete is
// not modeled here, so both paths drop the record.
func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return simplefields.ErrItemNotFound
	}
	delete(s.items, id)
	if force {
		delete(s.meta, id)
	}
	return nil
}

// GetItem retrieves an item by id, or nil when absent.
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*simplefields.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, nil
	}
	out := cloneItem(item)
	out.Meta = cloneMeta(s.meta[id])
	return out, nil
}

// QueryItems filters, orders, and pages the stored items.
func (s *Store) QueryItems(ctx context.Context, q simplefields.Query) ([]*simplefields.Item, error) {
	s.mu.RLock()
	var matched []*simplefields.Item
	for id, item := range s.items {
		if !s.matches(item, id, q) {
			continue
		}
		out := cloneItem(item)
		out.Meta = cloneMeta(s.meta[id])
		matched = append(matched, out)
	}
	s.mu.RUnlock()

	orderItems(matched, q)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *Store) matches(item *simplefields.Item, id uuid.UUID, q simplefields.Query) bool {
	if q.Type != "" && item.Type != q.Type {
		return false
	}
	if q.Status != "" && item.Status != q.Status {
		return false
	}

	metaOK := true
	if len(q.MetaFilters) > 0 {
		metaOK = !q.MetaOr
		for _, f := range q.MetaFilters {
			hit := metaFilterMatches(s.meta[id], f)
			if q.MetaOr && hit {
				metaOK = true
				break
			}
			if !q.MetaOr && !hit {
				metaOK = false
				break
			}
		}
	}

	if q.Search != "" {
		term := strings.ToLower(q.Search)
		textOK := false
		if q.SearchTitle && strings.Contains(strings.ToLower(item.Title), term) {
			textOK = true
		}
		if q.SearchBody && strings.Contains(strings.ToLower(item.Body), term) {
			textOK = true
		}
		if len(q.MetaFilters) > 0 && q.MetaOr {
			// Search with OR'd meta filters: any text or meta hit
			// qualifies the item.
			return textOK || metaOK
		}
		if !q.SearchTitle && !q.SearchBody {
			return metaOK
		}
		return textOK && metaOK
	}
	return metaOK
}

func metaFilterMatches(meta map[string][]interface{}, f simplefields.MetaFilter) bool {
	values, ok := meta[f.Key]
	if !ok {
		return false
	}
	want := toComparable(f.Value)
	for _, v := range values {
		got := toComparable(v)
		switch f.Compare {
		case simplefields.MetaContains:
			if strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				return true
			}
		default:
			if got == want {
				return true
			}
		}
	}
	return false
}

func orderItems(items []*simplefields.Item, q simplefields.Query) {
	desc := q.Order != "asc"

	if q.Compare != nil {
		sort.SliceStable(items, func(i, j int) bool {
			c := q.Compare(items[i], items[j])
			if desc {
				return c > 0
			}
			return c < 0
		})
		return
	}

	less := func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt) // default: newest first
	}
	switch q.OrderBy {
	case "title":
		less = func(i, j int) bool {
			if desc {
				return items[i].Title > items[j].Title
			}
			return items[i].Title < items[j].Title
		}
	case "meta":
		key := q.MetaKey
		less = func(i, j int) bool {
			a := firstMeta(items[i], key)
			b := firstMeta(items[j], key)
			if desc {
				return a > b
			}
			return a < b
		}
	case "date", "":
		less = func(i, j int) bool {
			if desc {
				return items[i].CreatedAt.After(items[j].CreatedAt)
			}
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
	}
	sort.SliceStable(items, less)
}

func firstMeta(item *simplefields.Item, key string) string {
	values := item.Meta[key]
	if len(values) == 0 {
		return ""
	}
	return toComparable(values[0])
}

// Metadata operations

// GetMeta returns the values stored under one key: the first value with
// single, the full slice otherwise. Absent keys return nil, not an error.
func (s *Store) GetMeta(ctx context.Context, itemID uuid.UUID, key string, single bool) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.meta[itemID][key]
	if !ok || len(values) == 0 {
		return nil, nil
	}
	if single {
		return values[0], nil
	}
	out := make([]interface{}, len(values))
	copy(out, values)
	return out, nil
}

// SetMeta replaces every value under a key with one value.
func (s *Store) SetMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta[itemID] == nil {
		s.meta[itemID] = make(map[string][]interface{})
	}
	s.meta[itemID][key] = []interface{}{value}
	return nil
}

// AddMeta appends a value under a key.
func (s *Store) AddMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta[itemID] == nil {
		s.meta[itemID] = make(map[string][]interface{})
	}
	s.meta[itemID][key] = append(s.meta[itemID][key], value)
	return nil
}

// DeleteMeta removes every value under a key. Deleting an absent key is a
// no-op.
func (s *Store) DeleteMeta(ctx context.Context, itemID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.meta[itemID]; ok {
		delete(m, key)
	}
	return nil
}

// MetaExists reports whether any value is stored under a key.
func (s *Store) MetaExists(ctx context.Context, itemID uuid.UUID, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.meta[itemID][key]
	return ok && len(values) > 0, nil
}

// MetaWrites reports the total number of stored meta values for an item;
// exposed for tests asserting all-or-nothing save semantics.
func (s *Store) MetaWrites(itemID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, values := range s.meta[itemID] {
		n += len(values)
	}
	return n
}
