package simplefields

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Host event name prefixes. Each model composes them with its type id, e.g.
// "item.save.product".
const (
	EventSave      = "item.save."
	EventDelete    = "item.delete."
	EventColumns   = "admin.columns."
	EventSortable  = "admin.sortable."
	EventSort      = "admin.sort."
	EventQuickEdit = "admin.quickedit."
	EventSearch    = "admin.search."
	EventAuth      = "admin.auth."
)

// Hook registration priorities.
const (
	priorityDefault = 10
	priorityAuth    = 1
)

// SaveEvent is the payload for EventSave dispatches.
type SaveEvent struct {
	ItemID  uuid.UUID
	Request SaveRequest
}

// DeleteEvent is the payload for EventDelete dispatches.
type DeleteEvent struct {
	ItemID uuid.UUID
}

// QuickEditEvent is the payload for EventQuickEdit dispatches.
type QuickEditEvent struct {
	Request BulkEditRequest
	Result  *BulkEditResult
}

// SortEvent is the payload for EventSort dispatches; the handler rewrites the
// query in place.
type SortEvent struct {
	Query *Query
}

// ModelConfig carries the collaborator set a Model is built from.
type ModelConfig struct {
	Store        ContentStore
	Cache        Cache
	Bus          EventBus
	Registrar    TypeRegistrar
	Capabilities CapabilityChecker
	Media        MediaResolver
	Logger       *slog.Logger

	CacheEnabled bool
	CacheTTL     time.Duration
}

// Model is the per-content-type orchestrator. It owns one or more field
// groups and wires their pipeline into CRUD, caching, ranked search, and the
// administrative column and quick-edit surface. At most one live Model exists
// per content type; construct it through a Registry.
//
// State machine: stopped -> running (Run) -> stopped (Deactivate) -> running
// (Reactivate). Reset deactivates, clears error state and caches, and marks
// the model uninitialized while preserving the singleton and its groups.
type Model struct {
	mu sync.Mutex

	typ  ContentType
	desc TypeDescriptor

	store        ContentStore
	cache        Cache
	bus          EventBus
	registrar    TypeRegistrar
	capabilities CapabilityChecker
	media        MediaResolver
	logger       *slog.Logger

	cacheEnabled bool
	cacheTTL     time.Duration

	groups []*Group

	tracker     *HookTracker
	running     bool
	initialized bool

	// lastErrors holds the most recent validation failure, cleared by
	// Reset.
	lastErrors map[string]string
}

// NewModel constructs a model for one content type. Callers normally go
// through Registry.Instance, which enforces the one-instance-per-type rule.
func NewModel(typ ContentType, cfg ModelConfig) (*Model, error) {
	if typ == nil {
		return nil, fmt.Errorf("content type is required")
	}
	if typ.TypeID() == "" {
		return nil, fmt.Errorf("%w: empty type id", ErrTypeNotDeclared)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if cfg.Registrar == nil {
		return nil, fmt.Errorf("type registrar is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Model{
		typ:          typ,
		desc:         typ.Declaration(),
		store:        cfg.Store,
		cache:        cfg.Cache,
		bus:          cfg.Bus,
		registrar:    cfg.Registrar,
		capabilities: cfg.Capabilities,
		media:        cfg.Media,
		logger:       logger,
		cacheEnabled: cfg.CacheEnabled,
		cacheTTL:     ttl,
		tracker:      NewHookTracker(),
	}, nil
}

// TypeID returns the model's content type identifier.
func (m *Model) TypeID() string { return m.typ.TypeID() }

// Descriptor returns the model's registration descriptor.
func (m *Model) Descriptor() TypeDescriptor { return m.desc }

// Running reports whether the model's hooks are live.
func (m *Model) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Initialized reports whether Run has completed at least once since the last
// Reset.
func (m *Model) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Tracker exposes the model's hook ledger.
func (m *Model) Tracker() *HookTracker { return m.tracker }

// cacheGroup is the cache namespace for the model's item and query entries.
func (m *Model) cacheGroup() string { return "simplefields:model:" + m.TypeID() }

// NewGroup constructs a field group wired to the model's collaborators and
// attaches it.
func (m *Model) NewGroup(name, keyPrefix string) (*Group, error) {
	g, err := NewGroup(GroupConfig{
		Name:         name,
		KeyPrefix:    keyPrefix,
		CacheEnabled: m.cacheEnabled,
		CacheTTL:     m.cacheTTL,
		Store:        m.store,
		Cache:        m.cache,
		Media:        m.media,
		Logger:       m.logger,
	})
	if err != nil {
		return nil, err
	}
	m.AttachGroup(g)
	return g, nil
}

// AttachGroup registers an externally constructed group with the model.
func (m *Model) AttachGroup(g *Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = append(m.groups, g)
}

// Groups returns the attached field groups in order.
func (m *Model) Groups() []*Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Group, len(m.groups))
	copy(out, m.groups)
	return out
}

// ExpectedFields returns the union of every attached group's fields, in group
// then field order. Later registrations of the same prefixed id win.
func (m *Model) ExpectedFields() []*Field {
	seen := map[string]int{}
	var out []*Field
	for _, g := range m.Groups() {
		for _, f := range g.Fields() {
			if pos, ok := seen[f.ID]; ok {
				out[pos] = f
				continue
			}
			seen[f.ID] = len(out)
			out = append(out, f)
		}
	}
	return out
}

// Run registers the content type with the host and subscribes every tracked
// hook. It is idempotent while running unless force is set; a forced re-run
// deactivates first.
func (m *Model) Run(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.running {
		if !force {
			m.mu.Unlock()
			return nil
		}
		m.tracker.RemoveAll(m.bus)
		m.running = false
	}
	m.mu.Unlock()

	if br, ok := m.typ.(BeforeRunner); ok {
		br.BeforeRun(m)
	}

	if _, err := m.registrar.RegisterType(m.TypeID(), m.desc); err != nil {
		return fmt.Errorf("registering content type %q: %w", m.TypeID(), err)
	}

	m.mu.Lock()
	m.registerHooks()
	m.running = true
	m.initialized = true
	m.mu.Unlock()

	m.logger.Info("model running", "type", m.TypeID(), "hooks", m.tracker.Len())

	if ar, ok := m.typ.(AfterRunner); ok {
		ar.AfterRun(m)
	}
	return nil
}

// registerHooks subscribes the model's full hook set and records each
// subscription in the tracker. Caller holds m.mu.
func (m *Model) registerHooks() {
	id := m.TypeID()

	track := func(event string, priority int, h Handler) {
		m.tracker.Track(m.bus.Subscribe(event, priority, h))
	}

	track(EventSave+id, priorityDefault, m.onSaveEvent)
	track(EventDelete+id, priorityDefault, m.onDeleteEvent)
	track(EventColumns+id, priorityDefault, m.onColumnsEvent)
	track(EventSortable+id, priorityDefault, m.onSortableEvent)
	track(EventSort+id, priorityDefault, m.onSortEvent)
	track(EventQuickEdit+id, priorityDefault, m.onQuickEditEvent)
	track(EventSearch+id, priorityDefault, m.onSearchEvent)
	if m.desc.RequiresAuth {
		track(EventAuth+id, priorityAuth, m.onAuthEvent)
	}
}

// Deactivate removes every tracked hook through the hook tracker and clears
// the ledger. In-memory state (groups, cache settings) is preserved.
func (m *Model) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.tracker.RemoveAll(m.bus)
	m.running = false
	m.logger.Info("model deactivated", "type", m.TypeID())
}

// Pause is an alias for Deactivate.
func (m *Model) Pause() { m.Deactivate() }

// Reactivate re-subscribes the same hook set that Run registered. No-op when
// already running.
func (m *Model) Reactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.registerHooks()
	m.running = true
	m.logger.Info("model reactivated", "type", m.TypeID(), "hooks", m.tracker.Len())
}

// Resume is an alias for Reactivate.
func (m *Model) Resume() { m.Reactivate() }

// Reset deactivates the model, clears validation-error state and every cached
// entry, and marks the model uninitialized. The singleton and its groups
// survive.
func (m *Model) Reset(ctx context.Context) {
	m.Deactivate()

	m.mu.Lock()
	m.lastErrors = nil
	m.initialized = false
	m.mu.Unlock()

	purgeGroup(ctx, m.cache, m.cacheGroup())
	for _, g := range m.Groups() {
		purgeGroup(ctx, m.cache, g.cacheGroup())
	}
}

// setLastErrors records the most recent validation failure.
func (m *Model) setLastErrors(errs map[string]string) {
	m.mu.Lock()
	m.lastErrors = errs
	m.mu.Unlock()
}

// LastErrors returns the most recent validation failure, or nil.
func (m *Model) LastErrors() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErrors
}

// Event handlers. These adapt bus payloads onto the model's operations so the
// host can drive the full request lifecycle through events alone.

func (m *Model) onSaveEvent(ctx context.Context, payload interface{}) error {
	ev, ok := payload.(*SaveEvent)
	if !ok {
		return fmt.Errorf("save event: unexpected payload %T", payload)
	}
	_, err := m.SaveFields(ctx, ev.ItemID, ev.Request)
	return err
}

func (m *Model) onDeleteEvent(ctx context.Context, payload interface{}) error {
	ev, ok := payload.(*DeleteEvent)
	if !ok {
		return fmt.Errorf("delete event: unexpected payload %T", payload)
	}
	return m.cleanupItem(ctx, ev.ItemID)
}

func (m *Model) onColumnsEvent(ctx context.Context, payload interface{}) error {
	cols, ok := payload.(*[]Column)
	if !ok {
		return fmt.Errorf("columns event: unexpected payload %T", payload)
	}
	*cols = m.BuildColumnList(*cols)
	return nil
}

func (m *Model) onSortableEvent(ctx context.Context, payload interface{}) error {
	sortable, ok := payload.(map[string]string)
	if !ok {
		return fmt.Errorf("sortable event: unexpected payload %T", payload)
	}
	for k, v := range m.SortableColumns(nil) {
		sortable[k] = v
	}
	return nil
}

func (m *Model) onSortEvent(ctx context.Context, payload interface{}) error {
	ev, ok := payload.(*SortEvent)
	if !ok {
		return fmt.Errorf("sort event: unexpected payload %T", payload)
	}
	m.ApplySortOverride(ev.Query)
	return nil
}

func (m *Model) onQuickEditEvent(ctx context.Context, payload interface{}) error {
	ev, ok := payload.(*QuickEditEvent)
	if !ok {
		return fmt.Errorf("quickedit event: unexpected payload %T", payload)
	}
	res, err := m.BulkEdit(ctx, ev.Request)
	if err != nil {
		return err
	}
	ev.Result = res
	return nil
}

func (m *Model) onSearchEvent(ctx context.Context, payload interface{}) error {
	// Search dispatch carries its arguments through the API surface; the
	// subscription exists so pause/resume covers the endpoint.
	return nil
}

func (m *Model) onAuthEvent(ctx context.Context, payload interface{}) error {
	authed, ok := payload.(bool)
	if !ok {
		return fmt.Errorf("auth event: unexpected payload %T", payload)
	}
	if m.Authorize(ctx, authed) == AuthDeny {
		return fmt.Errorf("access to %s denied", m.TypeID())
	}
	return nil
}

// Authorize implements the per-request authentication gate for types that
// declare RequiresAuth: unauthenticated access redirects, authenticated but
// unauthorized access is denied outright.
func (m *Model) Authorize(ctx context.Context, authenticated bool) AuthDecision {
	if !m.desc.RequiresAuth {
		return AuthAllow
	}
	if !authenticated {
		return AuthRedirect
	}
	if m.desc.EditCapability != "" && m.capabilities != nil &&
		!m.capabilities.Can(ctx, m.desc.EditCapability, uuid.Nil) {
		return AuthDeny
	}
	return AuthAllow
}

// SaveFields dispatches one save request to every attached group and records
// the aggregated validation state. The per-group pipeline stays all-or-nothing
// at the field-subset level.
func (m *Model) SaveFields(ctx context.Context, itemID uuid.UUID, req SaveRequest) (*SaveResult, error) {
	combined := &SaveResult{ItemID: itemID}
	for _, g := range m.Groups() {
		res, err := g.Save(ctx, itemID, req)
		if err != nil {
			if verr, ok := err.(*ValidationError); ok {
				m.setLastErrors(verr.Fields)
				combined.Errors = verr.Fields
				return combined, err
			}
			return res, err
		}
		combined.Saved = append(combined.Saved, res.Saved...)
	}
	m.invalidateItem(ctx, itemID)
	invalidateQueryKeys(ctx, m.cache, m.cacheGroup())
	return combined, nil
}

// CRUD

// CreateItem validates the meta payload against the model's expected fields,
// creates the item, persists its field values, and invalidates list caches.
func (m *Model) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	if req.Validate {
		if errs := m.validateMeta(req.Meta); len(errs) > 0 {
			m.setLastErrors(errs)
			return nil, &ValidationError{Fields: errs}
		}
	}

	now := time.Now().UTC()
	status := req.Status
	if status == "" {
		status = ItemStatusDraft
	}
	item := &Item{
		ID:        uuid.New(),
		Type:      m.TypeID(),
		Title:     req.Title,
		Body:      req.Body,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateItem(ctx, item); err != nil {
		return nil, &StoreError{ItemID: item.ID, Op: "create", Err: err}
	}

	if len(req.Meta) > 0 {
		if _, err := m.SaveFields(ctx, item.ID, SaveRequest{Allowed: true, Values: req.Meta}); err != nil {
			return nil, err
		}
	}

	invalidateQueryKeys(ctx, m.cache, m.cacheGroup())
	return item, nil
}

// UpdateItem applies partial item changes plus a field payload, then
// invalidates the item's caches.
func (m *Model) UpdateItem(ctx context.Context, req UpdateItemRequest) (*Item, error) {
	item, err := m.store.GetItem(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	if req.Validate {
		if errs := m.validateMeta(req.Meta); len(errs) > 0 {
			m.setLastErrors(errs)
			return nil, &ValidationError{Fields: errs}
		}
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Body != nil {
		item.Body = *req.Body
	}
	if req.Status != nil {
		item.Status = *req.Status
	}
	item.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateItem(ctx, item); err != nil {
		return nil, &StoreError{ItemID: item.ID, Op: "update", Err: err}
	}

	if len(req.Meta) > 0 {
		if _, err := m.SaveFields(ctx, item.ID, SaveRequest{Allowed: true, Values: req.Meta}); err != nil {
			return nil, err
		}
	}

	m.invalidateItem(ctx, item.ID)
	invalidateQueryKeys(ctx, m.cache, m.cacheGroup())
	return item, nil
}

// DeleteItem removes the item, its field metadata, and every cache entry for
// it.
func (m *Model) DeleteItem(ctx context.Context, id uuid.UUID, force bool) error {
	item, err := m.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}
	if err := m.store.DeleteItem(ctx, id, force); err != nil {
		return &StoreError{ItemID: id, Op: "delete", Err: err}
	}
	return m.cleanupItem(ctx, id)
}

// cleanupItem is the delete-cleanup path shared by DeleteItem and the
// EventDelete hook.
func (m *Model) cleanupItem(ctx context.Context, id uuid.UUID) error {
	for _, g := range m.Groups() {
		if err := g.DeleteAllMeta(ctx, id); err != nil {
			return err
		}
	}
	m.invalidateItem(ctx, id)
	invalidateQueryKeys(ctx, m.cache, m.cacheGroup())
	return nil
}

// GetItem reads one item cache-first. With includeMeta the item carries every
// registered field's resolved value.
func (m *Model) GetItem(ctx context.Context, id uuid.UUID, includeMeta bool) (*Item, error) {
	key := itemCacheKey(id, includeMeta)
	if m.cacheEnabled && m.cache != nil {
		if v, hit := m.cache.Get(ctx, m.cacheGroup(), key); hit {
			cacheHitsTotal.Inc()
			if item, ok := v.(*Item); ok {
				return item, nil
			}
		}
		cacheMissesTotal.Inc()
	}

	item, err := m.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if includeMeta {
		if err := m.attachMeta(ctx, item); err != nil {
			return nil, err
		}
	}

	if m.cacheEnabled && m.cache != nil {
		m.cache.Set(ctx, m.cacheGroup(), key, item, m.cacheTTL)
	}
	return item, nil
}

// ListItems queries items of this type. Simple queries are cached under a
// stable hash of the query arguments; complex queries always hit the store to
// bound cache-key cardinality.
func (m *Model) ListItems(ctx context.Context, q Query, includeMeta bool) ([]*Item, error) {
	q.Type = m.TypeID()

	cacheable := m.cacheEnabled && m.cache != nil && !includeMeta && CacheableQuery(q)
	var key string
	if cacheable {
		key = QueryCacheKey(q)
		if v, hit := m.cache.Get(ctx, m.cacheGroup(), key); hit {
			cacheHitsTotal.Inc()
			if items, ok := v.([]*Item); ok {
				return items, nil
			}
		}
		cacheMissesTotal.Inc()
	}

	items, err := m.store.QueryItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if includeMeta {
		for _, item := range items {
			if err := m.attachMeta(ctx, item); err != nil {
				return nil, err
			}
		}
	}

	if cacheable {
		m.cache.Set(ctx, m.cacheGroup(), key, items, m.cacheTTL)
	}
	return items, nil
}

// attachMeta populates item.Meta from every attached group.
func (m *Model) attachMeta(ctx context.Context, item *Item) error {
	if item.Meta == nil {
		item.Meta = make(map[string][]interface{})
	}
	for _, g := range m.Groups() {
		values, err := g.AllMeta(ctx, item.ID, false)
		if err != nil {
			return err
		}
		for k, v := range values {
			if v == nil {
				continue
			}
			switch t := v.(type) {
			case []interface{}:
				item.Meta[k] = t
			case []string:
				vs := make([]interface{}, len(t))
				for i, s := range t {
					vs[i] = s
				}
				item.Meta[k] = vs
			default:
				item.Meta[k] = []interface{}{v}
			}
		}
	}
	return nil
}

// validateMeta checks a raw payload against the union of expected fields.
// Fields absent from the payload are only an error when required.
func (m *Model) validateMeta(values map[string]interface{}) map[string]string {
	errs := map[string]string{}
	for _, g := range m.Groups() {
		for _, f := range g.Fields() {
			raw, ok := g.lookupValue(values, f)
			if !ok && !f.Required {
				continue
			}
			if msg := ValidateValue(f, raw); msg != "" {
				errs[f.ID] = msg
			}
		}
	}
	return errs
}

// invalidateItem drops the model's cached reads for one item.
func (m *Model) invalidateItem(ctx context.Context, id uuid.UUID) {
	if !m.cacheEnabled {
		return
	}
	invalidateItemKeys(ctx, m.cache, m.cacheGroup(), id)
}
