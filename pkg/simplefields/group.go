package simplefields

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GroupConfig carries the construction parameters for a Group.
type GroupConfig struct {
	// Name identifies the group and namespaces its cache entries.
	Name string

	// KeyPrefix is prepended to every field id that does not already carry
	// it (e.g., "_product_").
	KeyPrefix string

	CacheEnabled bool
	CacheTTL     time.Duration

	Store    ContentStore
	Cache    Cache
	Media    MediaResolver
	Logger   *slog.Logger
}

// Group is an ordered registry of field definitions attached to one content
// type. It owns the validate/sanitize/persist pipeline, the lifecycle hook
// dispatch, and a read-through cache for field values.
type Group struct {
	name      string
	keyPrefix string

	cacheEnabled bool
	cacheTTL     time.Duration

	store  ContentStore
	cache  Cache
	media  MediaResolver
	logger *slog.Logger

	// fields preserves registration order; index maps prefixed id to its
	// position for last-write-wins overwrite.
	fields []*Field
	index  map[string]int

	// typeSanitizers are group-level overrides applied when a field has no
	// custom sanitizer of its own.
	typeSanitizers map[FieldType]SanitizeFunc

	// reverseTransforms are applied per type by AllMeta when turning stored
	// values back into display values.
	reverseTransforms map[FieldType]ReverseFunc

	// Hooks holds the group's lifecycle listeners.
	Hooks GroupHooks
}

// NewGroup creates a field group. The store is required; cache and media
// resolver are optional.
func NewGroup(cfg GroupConfig) (*Group, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Group{
		name:              cfg.Name,
		keyPrefix:         cfg.KeyPrefix,
		cacheEnabled:      cfg.CacheEnabled,
		cacheTTL:          ttl,
		store:             cfg.Store,
		cache:             cfg.Cache,
		media:             cfg.Media,
		logger:            logger,
		index:             make(map[string]int),
		typeSanitizers:    make(map[FieldType]SanitizeFunc),
		reverseTransforms: make(map[FieldType]ReverseFunc),
	}, nil
}

// Name returns the group's identifier.
func (g *Group) Name() string { return g.name }

// KeyPrefix returns the group's meta key prefix.
func (g *Group) KeyPrefix() string { return g.keyPrefix }

// cacheGroup is the cache namespace for this group's entries.
func (g *Group) cacheGroup() string { return "simplefields:group:" + g.name }

// PrefixKey namespaces a field id with the group's key prefix unless the
// caller already supplied a prefixed id.
func (g *Group) PrefixKey(id string) string {
	if g.keyPrefix == "" || strings.HasPrefix(id, g.keyPrefix) {
		return id
	}
	return g.keyPrefix + id
}

// AddField registers or overwrites a field definition and returns the group
// for chaining. An unknown field type or an uncompilable pattern attribute is
// a programmer error and panics at registration time rather than surfacing at
// request time.
func (g *Group) AddField(id, label string, t FieldType, options []FieldOption, attributes map[string]string, cfg FieldConfig) *Group {
	if !KnownFieldType(t) {
		panic(fmt.Sprintf("simplefields: unknown field type %q for field %q", t, id))
	}
	if p, ok := attributes["pattern"]; ok && p != "" {
		if _, err := regexp.Compile(p); err != nil {
			panic(fmt.Sprintf("simplefields: invalid pattern for field %q: %v", id, err))
		}
	}

	f := &Field{
		ID:             g.PrefixKey(id),
		Label:          label,
		Type:           t,
		Options:        options,
		Attributes:     attributes,
		Default:        cfg.Default,
		Required:       cfg.Required,
		AllowQuickEdit: cfg.AllowQuickEdit,
		Sanitize:       cfg.Sanitize,
		Validate:       cfg.Validate,
	}
	if f.Attributes == nil {
		f.Attributes = map[string]string{}
	}

	if pos, ok := g.index[f.ID]; ok {
		// Last write wins, position preserved.
		g.fields[pos] = f
		return g
	}
	g.index[f.ID] = len(g.fields)
	g.fields = append(g.fields, f)
	return g
}

// RegisterTypeSanitizer installs a group-level sanitizer for one field type.
// Field-level sanitizers still take precedence.
func (g *Group) RegisterTypeSanitizer(t FieldType, fn SanitizeFunc) {
	g.typeSanitizers[t] = fn
}

// RegisterReverseTransform installs a display transform applied by AllMeta to
// stored values of one field type.
func (g *Group) RegisterReverseTransform(t FieldType, fn ReverseFunc) {
	g.reverseTransforms[t] = fn
}

// Fields returns the registered field definitions in order.
func (g *Group) Fields() []*Field {
	out := make([]*Field, len(g.fields))
	copy(out, g.fields)
	return out
}

// Field looks up a definition by id, with or without the key prefix.
func (g *Group) Field(id string) (*Field, bool) {
	if pos, ok := g.index[g.PrefixKey(id)]; ok {
		return g.fields[pos], true
	}
	if pos, ok := g.index[id]; ok {
		return g.fields[pos], true
	}
	return nil, false
}

// sanitizeField applies the override order: field custom sanitizer, then the
// group's per-type sanitizer, then the built-in default.
func (g *Group) sanitizeField(f *Field, raw interface{}) interface{} {
	if f.Sanitize != nil {
		return f.Sanitize(raw, f)
	}
	if fn, ok := g.typeSanitizers[f.Type]; ok {
		return fn(raw, f)
	}
	return SanitizeValue(f, raw)
}

// lookupValue finds the submitted value for a field, accepting either the
// prefixed or the bare id as payload key.
func (g *Group) lookupValue(values map[string]interface{}, f *Field) (interface{}, bool) {
	if v, ok := values[f.ID]; ok {
		return v, true
	}
	if g.keyPrefix != "" {
		if v, ok := values[strings.TrimPrefix(f.ID, g.keyPrefix)]; ok {
			return v, true
		}
	}
	return nil, false
}

// saveSubset selects the fields a request may touch: quick-edit requests see
// only quick-edit-eligible fields, everything else sees all of them.
func (g *Group) saveSubset(quickEdit bool) []*Field {
	if !quickEdit {
		return g.fields
	}
	subset := make([]*Field, 0, len(g.fields))
	for _, f := range g.fields {
		if f.AllowQuickEdit {
			subset = append(subset, f)
		}
	}
	return subset
}

// Save runs the group's pipeline for one item: precondition check, subset
// selection, validation of the raw payload, then all-or-nothing persistence
// of the sanitized values. Validation of every subset field completes before
// any write happens; a single failure means no field in the subset persists.
//
// The returned error is a *PreconditionError, a *ValidationError, a
// *StoreError, or nil; the SaveResult is populated in every case except a
// precondition failure.
func (g *Group) Save(ctx context.Context, itemID uuid.UUID, req SaveRequest) (result *SaveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			savesTotal.WithLabelValues(saveResultPanic).Inc()
			serr := &SaveError{ItemID: itemID, Reason: r}
			g.logger.Error("save panicked", "group", g.name, "item", itemID, "reason", r)
			result = &SaveResult{ItemID: itemID, Errors: map[string]string{"_save": serr.Error()}}
			g.Hooks.fireOnError(ctx, result.Errors, itemID, g)
			g.Hooks.firePostSave(ctx, itemID, result, g)
			err = serr
		}
	}()

	if !req.Allowed {
		savesTotal.WithLabelValues(saveResultPrecondition).Inc()
		g.logger.Debug("save precondition failed", "group", g.name, "item", itemID)
		return nil, &PreconditionError{Kind: PreconditionCapability}
	}

	subset := g.saveSubset(req.QuickEdit)

	g.Hooks.firePreValidate(ctx, itemID, g)

	// Validation inspects the raw payload; sanitization waits until the
	// whole subset has passed.
	errs := map[string]string{}
	for _, f := range subset {
		raw, ok := g.lookupValue(req.Values, f)
		if req.QuickEdit && (!ok || IsEmptyValue(raw)) {
			// Quick edit treats an empty submission as "leave
			// unchanged", not "clear". Known ambiguity, kept as-is.
			continue
		}
		if msg := ValidateValue(f, raw); msg != "" {
			errs[f.ID] = msg
		}
	}

	g.Hooks.firePostValidate(ctx, itemID, errs)

	if len(errs) > 0 {
		savesTotal.WithLabelValues(saveResultValidation).Inc()
		result = &SaveResult{ItemID: itemID, Errors: errs}
		g.Hooks.fireOnError(ctx, errs, itemID, g)
		g.Hooks.firePostSave(ctx, itemID, result, g)
		return result, &ValidationError{Fields: errs}
	}

	g.Hooks.firePreSave(ctx, itemID, g)

	result = &SaveResult{ItemID: itemID}
	for _, f := range subset {
		raw, ok := g.lookupValue(req.Values, f)
		if !ok {
			continue
		}
		if req.QuickEdit && IsEmptyValue(raw) {
			continue
		}
		clean := g.sanitizeField(f, raw)
		if err := g.persistField(ctx, itemID, f, clean); err != nil {
			savesTotal.WithLabelValues(saveResultStoreError).Inc()
			serr := &StoreError{ItemID: itemID, Op: "save:" + f.ID, Err: err}
			result.Errors = map[string]string{f.ID: err.Error()}
			g.Hooks.fireOnError(ctx, result.Errors, itemID, g)
			g.Hooks.firePostSave(ctx, itemID, result, g)
			return result, serr
		}
		result.Saved = append(result.Saved, f.ID)
	}

	g.InvalidateItem(ctx, itemID)

	savesTotal.WithLabelValues(saveResultOK).Inc()
	g.Hooks.fireOnSuccess(ctx, itemID, result, g)
	g.Hooks.firePostSave(ctx, itemID, result, g)
	return result, nil
}

// persistField writes one sanitized value. Multi-valued fields (media, file)
// use replace-all: every existing entry for the key is deleted, then each id
// is added, because the store supports multi-valued keys natively.
func (g *Group) persistField(ctx context.Context, itemID uuid.UUID, f *Field, clean interface{}) error {
	if f.Multiple() {
		if err := g.store.DeleteMeta(ctx, itemID, f.ID); err != nil {
			return err
		}
		for _, id := range toStringSlice(clean) {
			if err := g.store.AddMeta(ctx, itemID, f.ID, id); err != nil {
				return err
			}
		}
		return nil
	}
	return g.store.SetMeta(ctx, itemID, f.ID, clean)
}

// FieldValue reads one field's stored value through the cache. When the store
// has no entry the field's configured default is returned. Media and file
// fields resolve stored ids to URLs.
func (g *Group) FieldValue(ctx context.Context, fieldID string, itemID uuid.UUID, single bool) (interface{}, error) {
	f, ok := g.Field(fieldID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
	}

	key := fieldCacheKey(itemID, f.ID, single)
	if g.cacheEnabled && g.cache != nil {
		if v, hit := g.cache.Get(ctx, g.cacheGroup(), key); hit {
			cacheHitsTotal.Inc()
			return v, nil
		}
		cacheMissesTotal.Inc()
	}

	stored, err := g.store.GetMeta(ctx, itemID, f.ID, single && !f.Multiple())
	if err != nil {
		return nil, err
	}
	value := stored
	if IsEmptyValue(value) {
		value = f.Default
	} else if f.Type == FieldMedia || f.Type == FieldFile {
		value, err = g.resolveMedia(ctx, f, value, single)
		if err != nil {
			return nil, err
		}
	}

	if g.cacheEnabled && g.cache != nil {
		g.cache.Set(ctx, g.cacheGroup(), key, value, g.cacheTTL)
	}
	return value, nil
}

// resolveMedia maps stored attachment ids to URLs.
func (g *Group) resolveMedia(ctx context.Context, f *Field, stored interface{}, single bool) (interface{}, error) {
	if g.media == nil {
		return stored, nil
	}
	ids := toStringSlice(stored)
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := g.media.URL(ctx, id)
		if err != nil {
			g.logger.Debug("media id did not resolve", "group", g.name, "field", f.ID, "id", id)
			continue
		}
		urls = append(urls, u)
	}
	if single {
		if len(urls) == 0 {
			return nil, nil
		}
		return urls[0], nil
	}
	return urls, nil
}

// AllMeta bulk-reads every registered field for one item, applying the
// registered reverse transforms (media URL resolution by default). With
// stripPrefix the returned map is keyed by bare field id.
func (g *Group) AllMeta(ctx context.Context, itemID uuid.UUID, stripPrefix bool) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(g.fields))
	for _, f := range g.fields {
		v, err := g.FieldValue(ctx, f.ID, itemID, !f.Multiple())
		if err != nil {
			return nil, err
		}
		if fn, ok := g.reverseTransforms[f.Type]; ok {
			v = fn(v, f)
		}
		key := f.ID
		if stripPrefix {
			key = strings.TrimPrefix(key, g.keyPrefix)
		}
		out[key] = v
	}
	return out, nil
}

// MetaExists reports whether the store holds any entry for a field.
func (g *Group) MetaExists(ctx context.Context, fieldID string, itemID uuid.UUID) (bool, error) {
	f, ok := g.Field(fieldID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID)
	}
	return g.store.MetaExists(ctx, itemID, f.ID)
}

// InvalidateItem drops every cached entry this group holds for one item.
// Called after every successful persistence for that item.
func (g *Group) InvalidateItem(ctx context.Context, itemID uuid.UUID) {
	if !g.cacheEnabled {
		return
	}
	invalidateItemKeys(ctx, g.cache, g.cacheGroup(), itemID)
}

// DeleteAllMeta removes every registered field's stored entries for one item.
// Used by the model's delete-cleanup hook.
func (g *Group) DeleteAllMeta(ctx context.Context, itemID uuid.UUID) error {
	for _, f := range g.fields {
		if err := g.store.DeleteMeta(ctx, itemID, f.ID); err != nil {
			return err
		}
	}
	g.InvalidateItem(ctx, itemID)
	return nil
}
