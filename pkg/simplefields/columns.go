package simplefields

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Administrative column surface. The core never renders HTML; it produces
// structured column descriptors and formatted cell strings for the host's
// list view.

// adminColumns returns the content type's custom columns, if it declares any.
func (m *Model) adminColumns() []Column {
	cp, ok := m.typ.(ColumnProvider)
	if !ok {
		return nil
	}
	return cp.AdminColumns()
}

// BuildColumnList merges the type's custom columns into an existing column
// list at their declared positions: after the "title" column, after the
// "date" column, or at the end.
func (m *Model) BuildColumnList(existing []Column) []Column {
	custom := m.adminColumns()
	if len(custom) == 0 {
		return existing
	}

	var afterTitle, afterDate, atEnd []Column
	for _, c := range custom {
		switch c.Position {
		case PositionAfterTitle:
			afterTitle = append(afterTitle, c)
		case PositionAfterDate:
			afterDate = append(afterDate, c)
		default:
			atEnd = append(atEnd, c)
		}
	}

	out := make([]Column, 0, len(existing)+len(custom))
	insertedTitle, insertedDate := false, false
	for _, c := range existing {
		out = append(out, c)
		if c.Key == "title" && len(afterTitle) > 0 {
			out = append(out, afterTitle...)
			insertedTitle = true
		}
		if c.Key == "date" && len(afterDate) > 0 {
			out = append(out, afterDate...)
			insertedDate = true
		}
	}
	// Columns whose anchor is missing still land somewhere visible.
	if !insertedTitle {
		out = append(out, afterTitle...)
	}
	if !insertedDate {
		out = append(out, afterDate...)
	}
	out = append(out, atEnd...)
	return out
}

// column finds a custom column by key.
func (m *Model) column(key string) (*Column, bool) {
	for _, c := range m.adminColumns() {
		if c.Key == key {
			col := c
			return &col, true
		}
	}
	return nil, false
}

// RenderColumn produces the formatted cell value for one custom column and
// item. Unknown columns render empty.
func (m *Model) RenderColumn(ctx context.Context, columnKey string, itemID uuid.UUID) string {
	col, ok := m.column(columnKey)
	if !ok {
		return ""
	}

	var value interface{}
	if col.FieldID != "" {
		for _, g := range m.Groups() {
			if _, ok := g.Field(col.FieldID); !ok {
				continue
			}
			v, err := g.FieldValue(ctx, col.FieldID, itemID, true)
			if err != nil {
				m.logger.Debug("column value read failed", "column", columnKey, "item", itemID, "error", err)
				return ""
			}
			value = v
			break
		}
	}
	if value == nil {
		return ""
	}
	return formatColumnValue(col.Format, value)
}

func formatColumnValue(format ColumnFormat, value interface{}) string {
	switch format {
	case FormatDate:
		s := toString(value)
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.Format("Jan 2, 2006")
		}
		return s
	case FormatNumber:
		if n, ok := toFloat(value); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return toString(value)
	case FormatCurrency:
		if n, ok := toFloat(value); ok {
			return fmt.Sprintf("$%.2f", n)
		}
		return toString(value)
	default:
		return toString(value)
	}
}

// SortableColumns merges this model's sortable columns into an existing
// key->sort-token map. The token is the column key; ApplySortOverride
// translates it into a concrete query rewrite.
func (m *Model) SortableColumns(existing map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range existing {
		out[k] = v
	}
	for _, c := range m.adminColumns() {
		if c.Sortable {
			out[c.Key] = c.Key
		}
	}
	return out
}

// ApplySortOverride rewrites a query whose OrderBy names one of the model's
// sortable columns: a custom comparator takes over ordering entirely,
// otherwise ordering targets the backing field's metadata key.
func (m *Model) ApplySortOverride(q *Query) {
	if q == nil || q.OrderBy == "" {
		return
	}
	col, ok := m.column(q.OrderBy)
	if !ok || !col.Sortable {
		return
	}
	if col.Compare != nil {
		q.Compare = col.Compare
		q.OrderBy = ""
		q.MetaKey = ""
		return
	}
	if col.FieldID == "" {
		return
	}
	for _, g := range m.Groups() {
		if f, ok := g.Field(col.FieldID); ok {
			q.OrderBy = "meta"
			q.MetaKey = f.ID
			return
		}
	}
}
