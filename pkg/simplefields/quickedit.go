package simplefields

import (
	"context"

	"github.com/google/uuid"
)

// QuickEditFields returns the fields eligible for the inline edit form, in
// registration order across groups.
func (m *Model) QuickEditFields() []*Field {
	var out []*Field
	for _, f := range m.ExpectedFields() {
		if f.AllowQuickEdit {
			out = append(out, f)
		}
	}
	return out
}

// BulkEdit applies one quick-edit payload to multiple items. Unlike the
// single-item save, the batch uses partial-failure semantics: an item that
// fails a permission or type check, or whose values fail validation, is
// skipped and the rest of the batch proceeds. The result reports how many
// items were updated.
//
// Empty submitted values mean "leave that field unchanged", not "clear it".
func (m *Model) BulkEdit(ctx context.Context, req BulkEditRequest) (*BulkEditResult, error) {
	result := &BulkEditResult{}

	for _, id := range req.ItemIDs {
		if !m.canEditItem(ctx, id) {
			result.Skipped = append(result.Skipped, id)
			bulkEditItemsTotal.WithLabelValues("skipped_permission").Inc()
			continue
		}
		item, err := m.store.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil || item.Type != m.TypeID() {
			result.Skipped = append(result.Skipped, id)
			bulkEditItemsTotal.WithLabelValues("skipped_type").Inc()
			continue
		}

		save := SaveRequest{Allowed: true, QuickEdit: true, Values: req.Values}
		if _, err := m.SaveFields(ctx, id, save); err != nil {
			if _, ok := err.(*ValidationError); ok {
				result.Skipped = append(result.Skipped, id)
				bulkEditItemsTotal.WithLabelValues("skipped_validation").Inc()
				continue
			}
			return nil, err
		}
		result.UpdatedCount++
		bulkEditItemsTotal.WithLabelValues("updated").Inc()
	}

	invalidateQueryKeys(ctx, m.cache, m.cacheGroup())
	return result, nil
}

// canEditItem asks the capability checker for per-item edit permission.
// Without a checker the batch trusts the transport layer's verification.
func (m *Model) canEditItem(ctx context.Context, id uuid.UUID) bool {
	if m.capabilities == nil {
		return true
	}
	capability := m.desc.EditCapability
	if capability == "" {
		capability = "edit_item"
	}
	return m.capabilities.Can(ctx, capability, id)
}
