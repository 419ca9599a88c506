package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	"github.com/tendant/simple-fields/pkg/simplefields/store/memory"
)

func newItem(typ, title string, status simplefields.ItemStatus, created time.Time) *simplefields.Item {
	return &simplefields.Item{
		ID:        uuid.New(),
		Type:      typ,
		Title:     title,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestItemCRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	item := newItem("product", "Widget", simplefields.ItemStatusDraft, time.Now())
	require.NoError(t, store.CreateItem(ctx, item))

	// Duplicate ids are rejected.
	assert.Error(t, store.CreateItem(ctx, item))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Widget", got.Title)

	got.Title = "Widget Pro"
	require.NoError(t, store.UpdateItem(ctx, got))
	got, err = store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", got.Title)

	require.NoError(t, store.DeleteItem(ctx, item.ID, false))
	got, err = store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.DeleteItem(ctx, item.ID, false), simplefields.ErrItemNotFound)
	assert.ErrorIs(t, store.UpdateItem(ctx, item), simplefields.ErrItemNotFound)
}

func TestGetItem_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	item := newItem("product", "Widget", simplefields.ItemStatusDraft, time.Now())
	require.NoError(t, store.CreateItem(ctx, item))

	a, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	a.Title = "mutated"

	b, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", b.Title)
}

func TestDeleteItem_ForceDropsMeta(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	item := newItem("product", "Widget", simplefields.ItemStatusDraft, time.Now())
	require.NoError(t, store.CreateItem(ctx, item))
	require.NoError(t, store.SetMeta(ctx, item.ID, "price", 10.0))

	require.NoError(t, store.DeleteItem(ctx, item.ID, true))
	assert.Equal(t, 0, store.MetaWrites(item.ID))
}

func TestQueryItems_TypeAndStatusFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now()

	require.NoError(t, store.CreateItem(ctx, newItem("product", "A", simplefields.ItemStatusDraft, now)))
	require.NoError(t, store.CreateItem(ctx, newItem("product", "B", simplefields.ItemStatusPublished, now)))
	require.NoError(t, store.CreateItem(ctx, newItem("page", "C", simplefields.ItemStatusDraft, now)))

	items, err := store.QueryItems(ctx, simplefields.Query{Type: "product"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = store.QueryItems(ctx, simplefields.Query{
		Type:   "product",
		Status: simplefields.ItemStatusPublished,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Title)
}

func TestQueryItems_TextSearch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now()

	a := newItem("product", "Red Widget", simplefields.ItemStatusDraft, now)
	b := newItem("product", "Gadget", simplefields.ItemStatusDraft, now)
	b.Body = "contains a widget inside"
	require.NoError(t, store.CreateItem(ctx, a))
	require.NoError(t, store.CreateItem(ctx, b))

	items, err := store.QueryItems(ctx, simplefields.Query{
		Search: "WIDGET", SearchTitle: true,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	items, err = store.QueryItems(ctx, simplefields.Query{
		Search: "widget", SearchTitle: true, SearchBody: true,
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQueryItems_MetaFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Now()

	a := newItem("product", "A", simplefields.ItemStatusDraft, now)
	b := newItem("product", "B", simplefields.ItemStatusDraft, now)
	require.NoError(t, store.CreateItem(ctx, a))
	require.NoError(t, store.CreateItem(ctx, b))
	require.NoError(t, store.SetMeta(ctx, a.ID, "color", "red"))
	require.NoError(t, store.SetMeta(ctx, a.ID, "size", "large"))
	require.NoError(t, store.SetMeta(ctx, b.ID, "color", "dark-red"))

	// AND semantics by default.
	items, err := store.QueryItems(ctx, simplefields.Query{
		MetaFilters: []simplefields.MetaFilter{
			{Key: "color", Value: "red", Compare: simplefields.MetaEquals},
			{Key: "size", Value: "large", Compare: simplefields.MetaEquals},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)

	// LIKE matches substrings.
	items, err = store.QueryItems(ctx, simplefields.Query{
		MetaFilters: []simplefields.MetaFilter{
			{Key: "color", Value: "red", Compare: simplefields.MetaContains},
		},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// OR semantics with MetaOr.
	items, err = store.QueryItems(ctx, simplefields.Query{
		MetaFilters: []simplefields.MetaFilter{
			{Key: "size", Value: "large", Compare: simplefields.MetaEquals},
			{Key: "color", Value: "dark-red", Compare: simplefields.MetaEquals},
		},
		MetaOr: true,
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQueryItems_Ordering(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	base := time.Now()

	a := newItem("product", "Alpha", simplefields.ItemStatusDraft, base.Add(-2*time.Hour))
	b := newItem("product", "Charlie", simplefields.ItemStatusDraft, base.Add(-1*time.Hour))
	c := newItem("product", "Bravo", simplefields.ItemStatusDraft, base)
	for _, it := range []*simplefields.Item{a, b, c} {
		require.NoError(t, store.CreateItem(ctx, it))
	}
	require.NoError(t, store.SetMeta(ctx, a.ID, "rank", "3"))
	require.NoError(t, store.SetMeta(ctx, b.ID, "rank", "1"))
	require.NoError(t, store.SetMeta(ctx, c.ID, "rank", "2"))

	// Default: newest first.
	items, err := store.QueryItems(ctx, simplefields.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bravo", "Charlie", "Alpha"}, titles(items))

	items, err = store.QueryItems(ctx, simplefields.Query{OrderBy: "date", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Charlie", "Bravo"}, titles(items))

	items, err = store.QueryItems(ctx, simplefields.Query{OrderBy: "title", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, titles(items))

	items, err = store.QueryItems(ctx, simplefields.Query{
		OrderBy: "meta", MetaKey: "rank", Order: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Charlie", "Bravo", "Alpha"}, titles(items))
}

func TestQueryItems_LimitOffset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	base := time.Now()

	for i, title := range []string{"A", "B", "C", "D"} {
		it := newItem("product", title, simplefields.ItemStatusDraft, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.CreateItem(ctx, it))
	}

	items, err := store.QueryItems(ctx, simplefields.Query{
		OrderBy: "title", Order: "asc", Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, titles(items))

	items, err = store.QueryItems(ctx, simplefields.Query{
		OrderBy: "title", Order: "asc", Limit: 2, Offset: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, titles(items))

	items, err = store.QueryItems(ctx, simplefields.Query{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func titles(items []*simplefields.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestMetaOperations(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	itemID := uuid.New()

	// Absent keys read as nil without error.
	v, err := store.GetMeta(ctx, itemID, "color", true)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, store.SetMeta(ctx, itemID, "color", "red"))
	require.NoError(t, store.AddMeta(ctx, itemID, "tags", "a"))
	require.NoError(t, store.AddMeta(ctx, itemID, "tags", "b"))

	v, err = store.GetMeta(ctx, itemID, "color", true)
	require.NoError(t, err)
	assert.Equal(t, "red", v)

	v, err = store.GetMeta(ctx, itemID, "tags", false)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, v)

	// single returns the first of a multi-valued key.
	v, err = store.GetMeta(ctx, itemID, "tags", true)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// SetMeta replaces the whole value list.
	require.NoError(t, store.SetMeta(ctx, itemID, "tags", "only"))
	v, err = store.GetMeta(ctx, itemID, "tags", false)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"only"}, v)

	exists, err := store.MetaExists(ctx, itemID, "color")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteMeta(ctx, itemID, "color"))
	exists, err = store.MetaExists(ctx, itemID, "color")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.DeleteMeta(ctx, itemID, "never-set"))

	assert.Equal(t, 1, store.MetaWrites(itemID))
}
