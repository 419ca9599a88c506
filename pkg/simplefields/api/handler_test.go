package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	"github.com/tendant/simple-fields/pkg/simplefields/api"
	hostmemory "github.com/tendant/simple-fields/pkg/simplefields/host/memory"
	storememory "github.com/tendant/simple-fields/pkg/simplefields/store/memory"
)

type productType struct {
	requiresAuth bool
}

func (p *productType) TypeID() string { return "product" }

func (p *productType) Declaration() simplefields.TypeDescriptor {
	return simplefields.TypeDescriptor{
		Label:        "Products",
		Public:       true,
		RequiresAuth: p.requiresAuth,
	}
}

func (p *productType) AdminColumns() []simplefields.Column {
	return []simplefields.Column{{
		Key:      "price",
		Label:    "Price",
		Position: simplefields.PositionAfterTitle,
		Format:   simplefields.FormatCurrency,
		FieldID:  "price",
		Sortable: true,
	}}
}

type fixture struct {
	registry *simplefields.Registry
	model    *simplefields.Model
	router   http.Handler
}

func newFixture(t *testing.T, typ *productType) *fixture {
	t.Helper()

	registry := simplefields.NewRegistry()
	m, err := registry.Instance(typ, simplefields.ModelConfig{
		Store:     storememory.New(),
		Bus:       hostmemory.NewBus(),
		Registrar: hostmemory.NewRegistrar(),
	})
	require.NoError(t, err)

	g, err := m.NewGroup("product-details", "_product_")
	require.NoError(t, err)
	g.AddField("price", "Price", simplefields.FieldNumber, nil,
		map[string]string{"min": "0"},
		simplefields.FieldConfig{Required: true, AllowQuickEdit: true})
	g.AddField("availability", "Availability",
		simplefields.FieldSelect,
		[]simplefields.FieldOption{
			{Value: "in_stock", Label: "In stock"},
			{Value: "sold_out", Label: "Sold out"},
		},
		nil,
		simplefields.FieldConfig{Default: "in_stock", AllowQuickEdit: true})

	require.NoError(t, m.Run(context.Background(), false))

	return &fixture{
		registry: registry,
		model:    m,
		router:   api.NewHandler(registry, nil).Routes(),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestUnknownTypeReturns404(t *testing.T) {
	f := newFixture(t, &productType{})
	rec := f.do(t, http.MethodGet, "/types/unknown/items", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInactiveTypeReturns503(t *testing.T) {
	f := newFixture(t, &productType{})
	f.model.Deactivate()

	rec := f.do(t, http.MethodGet, "/types/product/items", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateGetDeleteItem(t *testing.T) {
	f := newFixture(t, &productType{})

	rec := f.do(t, http.MethodPost, "/types/product/items", map[string]interface{}{
		"title": "Widget",
		"meta":  map[string]interface{}{"price": 19.9},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created simplefields.Item
	decode(t, rec, &created)
	assert.Equal(t, "Widget", created.Title)
	assert.Equal(t, "product", created.Type)

	rec = f.do(t, http.MethodGet, "/types/product/items/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got simplefields.Item
	decode(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)
	require.Contains(t, got.Meta, "_product_price")
	assert.Equal(t, 19.9, got.Meta["_product_price"][0])

	rec = f.do(t, http.MethodDelete, "/types/product/items/"+created.ID.String()+"?force=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/types/product/items/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateItem_ValidationFailureReturns422(t *testing.T) {
	f := newFixture(t, &productType{})

	rec := f.do(t, http.MethodPost, "/types/product/items", map[string]interface{}{
		"title": "Widget",
		"meta":  map[string]interface{}{"price": -5},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "Price is invalid", resp.Errors["_product_price"])
}

func TestSaveFieldsEndpoint(t *testing.T) {
	f := newFixture(t, &productType{})

	rec := f.do(t, http.MethodPost, "/types/product/items", map[string]interface{}{
		"title": "Widget",
		"meta":  map[string]interface{}{"price": 10},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created simplefields.Item
	decode(t, rec, &created)

	rec = f.do(t, http.MethodPost, "/types/product/items/"+created.ID.String()+"/fields",
		map[string]interface{}{
			"values": map[string]interface{}{"price": 42, "availability": "sold_out"},
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result simplefields.SaveResult
	decode(t, rec, &result)
	assert.ElementsMatch(t, []string{"_product_price", "_product_availability"}, result.Saved)

	// Invalid payloads surface the per-field error map.
	rec = f.do(t, http.MethodPost, "/types/product/items/"+created.ID.String()+"/fields",
		map[string]interface{}{
			"values": map[string]interface{}{"price": -1},
		})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/types/product/items/"+created.ID.String()+"/fields?strip_prefix=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fields map[string]interface{}
	decode(t, rec, &fields)
	assert.Equal(t, 42.0, fields["price"])
	assert.Equal(t, "sold_out", fields["availability"])
}

func TestBulkEditEndpoint(t *testing.T) {
	f := newFixture(t, &productType{})

	var ids []string
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/types/product/items", map[string]interface{}{
			"title": "Widget",
			"meta":  map[string]interface{}{"price": 10},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created simplefields.Item
		decode(t, rec, &created)
		ids = append(ids, created.ID.String())
	}

	rec := f.do(t, http.MethodPost, "/types/product/bulk", map[string]interface{}{
		"item_ids": ids,
		"values":   map[string]interface{}{"availability": "sold_out"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result simplefields.BulkEditResult
	decode(t, rec, &result)
	assert.Equal(t, 2, result.UpdatedCount)

	rec = f.do(t, http.MethodPost, "/types/product/bulk", map[string]interface{}{
		"item_ids": []string{"not-a-uuid"},
		"values":   map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t, &productType{})

	for _, title := range []string{"Widget", "Gadget"} {
		rec := f.do(t, http.MethodPost, "/types/product/items", map[string]interface{}{
			"title": title,
			"meta":  map[string]interface{}{"price": 1},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/types/product/search?q=widget", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []simplefields.SearchResult `json:"results"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Widget", resp.Results[0].Item.Title)

	rec = f.do(t, http.MethodGet, "/types/product/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestColumnsEndpoint(t *testing.T) {
	f := newFixture(t, &productType{})

	rec := f.do(t, http.MethodGet, "/types/product/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Columns  []simplefields.Column `json:"columns"`
		Sortable map[string]string     `json:"sortable"`
	}
	decode(t, rec, &resp)

	keys := make([]string, len(resp.Columns))
	for i, c := range resp.Columns {
		keys[i] = c.Key
	}
	assert.Equal(t, []string{"title", "price", "date"}, keys)
	assert.Equal(t, map[string]string{"price": "price"}, resp.Sortable)
}

func TestQuickEditFieldsEndpoint(t *testing.T) {
	f := newFixture(t, &productType{})

	rec := f.do(t, http.MethodGet, "/types/product/quickedit-fields", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Fields []simplefields.Field `json:"fields"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "_product_price", resp.Fields[0].ID)
}

func TestAuthGate_RedirectsUnauthenticated(t *testing.T) {
	f := newFixture(t, &productType{requiresAuth: true})

	rec := f.do(t, http.MethodGet, "/types/product/items", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
