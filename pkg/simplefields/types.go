package simplefields

import (
	"time"

	"github.com/google/uuid"
)

// FieldType is the domain type for field kinds.
type FieldType string

// Field type constants (typed).
const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldURL      FieldType = "url"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
	FieldColor    FieldType = "color"
	FieldFile     FieldType = "file"
	FieldMedia    FieldType = "media"
)

// ItemStatus is the domain type for content item lifecycle states.
type ItemStatus string

// Item status constants (typed).
const (
	ItemStatusDraft     ItemStatus = "draft"
	ItemStatusPublished ItemStatus = "published"
	ItemStatusTrashed   ItemStatus = "trashed"
)

// SanitizeFunc transforms a raw submitted value into a clean, persistable one.
type SanitizeFunc func(raw interface{}, f *Field) interface{}

// ValidateFunc inspects a raw submitted value and returns an empty string when
// the value is acceptable, or a human-readable error message when it is not.
type ValidateFunc func(raw interface{}, f *Field) string

// ReverseFunc transforms a stored value back into its display form (e.g.,
// resolving media ids to URLs). Used by Group.AllMeta.
type ReverseFunc func(stored interface{}, f *Field) interface{}

// FieldOption is one value/label pair for select and radio fields. Order is
// significant.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is the descriptor for one piece of typed metadata. Fields are
// immutable once registered with a Group; re-registering the same id replaces
// the previous definition in place (last write wins).
type Field struct {
	// ID is the persisted meta key, already namespaced with the owning
	// group's key prefix.
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`

	// Options is the ordered value set for select/radio fields.
	Options []FieldOption `json:"options,omitempty"`

	// Attributes carries free-form rendering and constraint hints:
	// min, max, step, minlength, maxlength, pattern, multiple, readonly.
	Attributes map[string]string `json:"attributes,omitempty"`

	Default  interface{} `json:"default,omitempty"`
	Required bool        `json:"required"`

	// AllowQuickEdit marks the field eligible for the inline bulk-edit path.
	AllowQuickEdit bool `json:"allow_quick_edit"`

	// Sanitize and Validate, when set, take precedence over the built-in
	// behavior for the field's type.
	Sanitize SanitizeFunc `json:"-"`
	Validate ValidateFunc `json:"-"`
}

// Multiple reports whether the field stores multiple values under one key.
func (f *Field) Multiple() bool {
	if f.Type == FieldMedia || f.Type == FieldFile {
		return true
	}
	return f.Attributes["multiple"] == "true"
}

// FieldConfig carries the optional parts of a field definition passed to
// Group.AddField.
type FieldConfig struct {
	Default        interface{}
	Required       bool
	AllowQuickEdit bool
	Sanitize       SanitizeFunc
	Validate       ValidateFunc
}

// Item is the core's projection of one persisted content record. The item
// itself is owned by the external ContentStore; the core owns only the rules
// for reading, writing, validating, and caching access to it.
type Item struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Status    ItemStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Meta holds the item's metadata entries keyed by prefixed field id.
	// Keys are multi-valued at the store layer.
	Meta map[string][]interface{} `json:"meta,omitempty"`
}

// TypeDescriptor declares a content type to the host: labels, visibility, and
// supported capabilities.
type TypeDescriptor struct {
	Label  string            `json:"label"`
	Labels map[string]string `json:"labels,omitempty"`
	Public bool              `json:"public"`

	// RequiresAuth gates every administrative view of the type behind
	// authentication.
	RequiresAuth bool `json:"requires_auth"`

	// EditCapability is the capability required to edit items of this type.
	EditCapability string `json:"edit_capability,omitempty"`

	Supports []string `json:"supports,omitempty"`
}

// TypeHandle is the registrar's receipt for a declared content type.
type TypeHandle struct {
	ID         string
	Descriptor TypeDescriptor
}

// ContentType is implemented by each concrete content type. A Model is the
// singleton orchestrator for exactly one ContentType.
type ContentType interface {
	// TypeID returns the content type identifier (e.g., "product").
	TypeID() string

	// Declaration returns the type's registration descriptor.
	Declaration() TypeDescriptor
}

// ColumnProvider is optionally implemented by content types that extend the
// administrative list view with custom columns.
type ColumnProvider interface {
	AdminColumns() []Column
}

// BeforeRunner is optionally implemented by content types that need setup
// before the model registers its hooks.
type BeforeRunner interface {
	BeforeRun(m *Model)
}

// AfterRunner is optionally implemented by content types that need work after
// the model has registered its hooks.
type AfterRunner interface {
	AfterRun(m *Model)
}

// ColumnPosition controls where a custom column is merged into the existing
// column list.
type ColumnPosition string

// Column positions.
const (
	PositionAfterTitle ColumnPosition = "after_title"
	PositionAfterDate  ColumnPosition = "after_date"
	PositionEnd        ColumnPosition = "end"
)

// ColumnFormat selects the rendering applied to a column value.
type ColumnFormat string

// Column formats.
const (
	FormatPlain    ColumnFormat = "plain"
	FormatDate     ColumnFormat = "date"
	FormatNumber   ColumnFormat = "number"
	FormatCurrency ColumnFormat = "currency"
)

// CompareFunc orders two items for a custom sortable column. It returns a
// negative number when a sorts before b, zero when equal, positive otherwise.
type CompareFunc func(a, b *Item) int

// Column describes one administrative list column.
type Column struct {
	Key      string         `json:"key"`
	Label    string         `json:"label"`
	Position ColumnPosition `json:"position,omitempty"`
	Format   ColumnFormat   `json:"format,omitempty"`

	// FieldID names the backing field; its stored value supplies both the
	// rendered cell and the default sort delegation.
	FieldID string `json:"field_id,omitempty"`

	Sortable bool `json:"sortable,omitempty"`

	// Compare, when set, overrides stored-value sort delegation.
	Compare CompareFunc `json:"-"`
}

// MetaCompare selects how a meta filter matches stored values.
type MetaCompare string

// Meta filter comparisons.
const (
	MetaEquals   MetaCompare = "="
	MetaContains MetaCompare = "LIKE"
)

// MetaFilter constrains a store query on one metadata key.
type MetaFilter struct {
	Key     string
	Value   interface{}
	Compare MetaCompare
}

// Query carries the arguments for a store item query. Zero values mean
// "no constraint".
type Query struct {
	Type   string
	Status ItemStatus

	// Search is a free-text term matched against title and/or body.
	Search       string
	SearchTitle  bool
	SearchBody   bool

	// MetaFilters constrain on metadata keys; MetaOr ORs them together
	// instead of ANDing.
	MetaFilters []MetaFilter
	MetaOr      bool

	// OrderBy is "date", "title", or "meta" (with MetaKey set). Compare,
	// when non-nil, supersedes OrderBy entirely.
	OrderBy string
	MetaKey string
	Order   string // "asc" or "desc"; default "desc"
	Compare CompareFunc

	Limit  int
	Offset int
}
