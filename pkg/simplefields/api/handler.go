// Package api exposes the field-model engine over HTTP: item CRUD, field
// saves, quick-edit batches, ranked search, and column descriptors for the
// administrative list view. Content types that require authentication are
// gated by JWT middleware.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

// Handler handles HTTP requests for content models.
type Handler struct {
	registry *simplefields.Registry
	logger   *slog.Logger
}

// NewHandler creates a new model handler.
func NewHandler(registry *simplefields.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// Routes returns the routes for content models.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/types/{type}", func(r chi.Router) {
		r.Use(h.withModel)
		r.Use(h.authGate)

		r.Get("/items", h.ListItems)
		r.Post("/items", h.CreateItem)
		r.Get("/items/{id}", h.GetItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.DeleteItem)

		r.Post("/items/{id}/fields", h.SaveFields)
		r.Get("/items/{id}/fields", h.GetFields)

		r.Post("/bulk", h.BulkEdit)
		r.Get("/search", h.Search)
		r.Get("/columns", h.Columns)
		r.Get("/quickedit-fields", h.QuickEditFields)
	})

	return r
}

// SaveFieldsRequest is the request body for a field save.
type SaveFieldsRequest struct {
	QuickEdit bool                   `json:"quick_edit,omitempty"`
	Values    map[string]interface{} `json:"values"`
}

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Title  string                 `json:"title"`
	Body   string                 `json:"body,omitempty"`
	Status string                 `json:"status,omitempty"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// UpdateItemRequest is the request body for updating an item.
type UpdateItemRequest struct {
	Title  *string                `json:"title,omitempty"`
	Body   *string                `json:"body,omitempty"`
	Status *string                `json:"status,omitempty"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// BulkEditRequest is the request body for a quick-edit batch.
type BulkEditRequest struct {
	ItemIDs []string               `json:"item_ids"`
	Values  map[string]interface{} `json:"values"`
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)

	var req CreateItemRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := m.CreateItem(r.Context(), simplefields.CreateItemRequest{
		Title:    req.Title,
		Body:     req.Body,
		Status:   simplefields.ItemStatus(req.Status),
		Meta:     req.Meta,
		Validate: true,
	})
	if err != nil {
		h.renderSaveError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	includeMeta := r.URL.Query().Get("meta") != "false"
	item, err := m.GetItem(r.Context(), id, includeMeta)
	if err != nil {
		h.renderInternal(w, r, err)
		return
	}
	if item == nil {
		renderError(w, r, http.StatusNotFound, "item not found")
		return
	}
	render.JSON(w, r, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	update := simplefields.UpdateItemRequest{
		ID:       id,
		Title:    req.Title,
		Body:     req.Body,
		Meta:     req.Meta,
		Validate: true,
	}
	if req.Status != nil {
		status := simplefields.ItemStatus(*req.Status)
		update.Status = &status
	}

	item, err := m.UpdateItem(r.Context(), update)
	if err != nil {
		h.renderSaveError(w, r, err)
		return
	}
	render.JSON(w, r, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := m.DeleteItem(r.Context(), id, force); err != nil {
		if errors.Is(err, simplefields.ErrItemNotFound) {
			renderError(w, r, http.StatusNotFound, "item not found")
			return
		}
		h.renderInternal(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)

	q := queryFromRequest(r)
	m.ApplySortOverride(&q)

	includeMeta := r.URL.Query().Get("meta") == "true"
	items, err := m.ListItems(r.Context(), q, includeMeta)
	if err != nil {
		h.renderInternal(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"items": items})
}

func (h *Handler) SaveFields(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req SaveFieldsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := m.SaveFields(r.Context(), id, simplefields.SaveRequest{
		Allowed:   true, // transport checks ran in middleware
		QuickEdit: req.QuickEdit,
		Values:    req.Values,
	})
	if err != nil {
		var verr *simplefields.ValidationError
		if errors.As(err, &verr) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]interface{}{"errors": verr.Fields})
			return
		}
		h.renderSaveError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) GetFields(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	stripPrefix := r.URL.Query().Get("strip_prefix") == "true"
	out := map[string]interface{}{}
	for _, g := range m.Groups() {
		values, err := g.AllMeta(r.Context(), id, stripPrefix)
		if err != nil {
			h.renderInternal(w, r, err)
			return
		}
		for k, v := range values {
			out[k] = v
		}
	}
	render.JSON(w, r, out)
}

func (h *Handler) BulkEdit(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)

	var req BulkEditRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid item id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	result, err := m.BulkEdit(r.Context(), simplefields.BulkEditRequest{
		ItemIDs: ids,
		Values:  req.Values,
	})
	if err != nil {
		h.renderInternal(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)

	term := r.URL.Query().Get("q")
	if term == "" {
		renderError(w, r, http.StatusBadRequest, "q parameter is required")
		return
	}

	var fields []simplefields.SearchField
	for _, f := range r.URL.Query()["fields"] {
		fields = append(fields, simplefields.SearchField(f))
	}

	results, err := m.Search(r.Context(), term, fields, simplefields.Query{})
	if err != nil {
		h.renderInternal(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"results": results})
}

func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)

	base := []simplefields.Column{
		{Key: "title", Label: "Title"},
		{Key: "date", Label: "Date"},
	}
	render.JSON(w, r, map[string]interface{}{
		"columns":  m.BuildColumnList(base),
		"sortable": m.SortableColumns(nil),
	})
}

func (h *Handler) QuickEditFields(w http.ResponseWriter, r *http.Request) {
	m := modelFrom(r)
	render.JSON(w, r, map[string]interface{}{"fields": m.QuickEditFields()})
}

func (h *Handler) renderSaveError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *simplefields.ValidationError
	if errors.As(err, &verr) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]interface{}{"errors": verr.Fields})
		return
	}
	var perr *simplefields.PreconditionError
	if errors.As(err, &perr) {
		renderError(w, r, http.StatusForbidden, perr.Error())
		return
	}
	if errors.Is(err, simplefields.ErrItemNotFound) {
		renderError(w, r, http.StatusNotFound, "item not found")
		return
	}
	h.renderInternal(w, r, err)
}

func (h *Handler) renderInternal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	renderError(w, r, http.StatusInternalServerError, "internal error")
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid item id")
		return uuid.Nil, false
	}
	return id, true
}

func queryFromRequest(r *http.Request) simplefields.Query {
	q := simplefields.Query{
		Status:  simplefields.ItemStatus(r.URL.Query().Get("status")),
		OrderBy: r.URL.Query().Get("orderby"),
		Order:   r.URL.Query().Get("order"),
	}
	return q
}
