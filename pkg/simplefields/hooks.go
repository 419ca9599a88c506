package simplefields

import (
	"context"

	"github.com/google/uuid"
)

// Lifecycle hooks let callers extend a Group's save pipeline without
// modifying core code. Listener lists are invoked in registration order.
//
// PreSave, PostSave, OnError, and OnSuccess are public API; PreValidate and
// PostValidate exist for internal extensions such as the quick-edit path.

// PreValidateHook runs before any field in the save subset is validated.
type PreValidateHook func(ctx context.Context, itemID uuid.UUID, g *Group)

// PostValidateHook runs after validation with the accumulated error map.
type PostValidateHook func(ctx context.Context, itemID uuid.UUID, errs map[string]string)

// PreSaveHook runs after validation passed, before any persistence.
type PreSaveHook func(ctx context.Context, itemID uuid.UUID, g *Group)

// PostSaveHook runs unconditionally after the save attempt, success or
// failure.
type PostSaveHook func(ctx context.Context, itemID uuid.UUID, result *SaveResult, g *Group)

// ErrorHook runs when validation failed or an unexpected error interrupted
// the save.
type ErrorHook func(ctx context.Context, errs map[string]string, itemID uuid.UUID, g *Group)

// SuccessHook runs after every field in the subset persisted and caches were
// invalidated.
type SuccessHook func(ctx context.Context, itemID uuid.UUID, result *SaveResult, g *Group)

// GroupHooks holds a Group's lifecycle listener lists.
type GroupHooks struct {
	PreValidate  []PreValidateHook
	PostValidate []PostValidateHook
	PreSave      []PreSaveHook
	PostSave     []PostSaveHook
	OnError      []ErrorHook
	OnSuccess    []SuccessHook
}

func (h *GroupHooks) firePreValidate(ctx context.Context, itemID uuid.UUID, g *Group) {
	for _, hook := range h.PreValidate {
		hook(ctx, itemID, g)
	}
}

func (h *GroupHooks) firePostValidate(ctx context.Context, itemID uuid.UUID, errs map[string]string) {
	for _, hook := range h.PostValidate {
		hook(ctx, itemID, errs)
	}
}

func (h *GroupHooks) firePreSave(ctx context.Context, itemID uuid.UUID, g *Group) {
	for _, hook := range h.PreSave {
		hook(ctx, itemID, g)
	}
}

func (h *GroupHooks) firePostSave(ctx context.Context, itemID uuid.UUID, result *SaveResult, g *Group) {
	for _, hook := range h.PostSave {
		hook(ctx, itemID, result, g)
	}
}

func (h *GroupHooks) fireOnError(ctx context.Context, errs map[string]string, itemID uuid.UUID, g *Group) {
	for _, hook := range h.OnError {
		hook(ctx, errs, itemID, g)
	}
}

func (h *GroupHooks) fireOnSuccess(ctx context.Context, itemID uuid.UUID, result *SaveResult, g *Group) {
	for _, hook := range h.OnSuccess {
		hook(ctx, itemID, result, g)
	}
}
