package simplefields

import "github.com/google/uuid"

// Request/Response DTOs

// SaveRequest carries one save submission into a Group's pipeline. The host
// adapter has already performed nonce and capability verification; Allowed
// reports the combined outcome.
type SaveRequest struct {
	Allowed bool

	// QuickEdit restricts processing to fields flagged AllowQuickEdit, and
	// treats missing or empty values as "leave unchanged".
	QuickEdit bool

	// Values is the raw submitted payload keyed by field id (with or
	// without the group's key prefix).
	Values map[string]interface{}
}

// SaveResult reports the outcome of one Group save.
type SaveResult struct {
	ItemID uuid.UUID `json:"item_id"`

	// Saved lists the prefixed keys persisted, in field order.
	Saved []string `json:"saved,omitempty"`

	// Errors maps field id to message when validation failed. Empty on
	// success.
	Errors map[string]string `json:"errors,omitempty"`
}

// OK reports whether the save persisted.
func (r *SaveResult) OK() bool { return len(r.Errors) == 0 }

// CreateItemRequest contains parameters for creating a content item through a
// Model.
type CreateItemRequest struct {
	Title  string
	Body   string
	Status ItemStatus

	// Meta is the raw field payload, validated against the union of the
	// model's registered groups unless Validate is false.
	Meta     map[string]interface{}
	Validate bool
}

// UpdateItemRequest contains parameters for updating a content item.
type UpdateItemRequest struct {
	ID       uuid.UUID
	Title    *string
	Body     *string
	Status   *ItemStatus
	Meta     map[string]interface{}
	Validate bool
}

// BulkEditRequest carries one quick-edit batch submission. Values apply to
// every target item; empty values mean "leave that field unchanged".
type BulkEditRequest struct {
	ItemIDs []uuid.UUID
	Values  map[string]interface{}
}

// BulkEditResult reports partial-success batch semantics: items that fail a
// permission or type check are skipped, not fatal.
type BulkEditResult struct {
	UpdatedCount int         `json:"updated_count"`
	Skipped      []uuid.UUID `json:"skipped,omitempty"`
}

// SearchField selects which parts of an item a search term matches.
type SearchField string

// Search fields.
const (
	SearchTitle SearchField = "title"
	SearchBody  SearchField = "content"
	SearchMeta  SearchField = "meta"
)

// AuthDecision is the outcome of the per-request authentication gate.
type AuthDecision int

// Auth decisions.
const (
	AuthAllow AuthDecision = iota
	AuthRedirect
	AuthDeny
)
