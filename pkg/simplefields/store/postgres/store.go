// Package postgres provides a ContentStore implementation backed by
// PostgreSQL via pgx. Schema lives in migrations/.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements simplefields.ContentStore using PostgreSQL.
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL content store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL content store with a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("item already exists")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced item not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required column %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return simplefields.ErrItemNotFound
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Item operations

func (s *Store) CreateItem(ctx context.Context, item *simplefields.Item) error {
	query := `
		INSERT INTO items (id, type, title, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(ctx, query,
		item.ID, item.Type, item.Title, item.Body, string(item.Status),
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("CreateItem", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, item *simplefields.Item) error {
	query := `
		UPDATE items
		SET title = $2, body = $3, status = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := s.db.Exec(ctx, query,
		item.ID, item.Title, item.Body, string(item.Status), item.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("UpdateItem", err)
	}
	if tag.RowsAffected() == 0 {
		return simplefields.ErrItemNotFound
	}
	return nil
}

// DeleteItem soft-deletes by default; force removes the row and its metadata.
func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID, force bool) error {
	if force {
		if _, err := s.db.Exec(ctx, `DELETE FROM item_meta WHERE item_id = $1`, id); err != nil {
			return s.handlePostgresError("DeleteItem", err)
		}
		tag, err := s.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
		if err != nil {
			return s.handlePostgresError("DeleteItem", err)
		}
		if tag.RowsAffected() == 0 {
			return simplefields.ErrItemNotFound
		}
		return nil
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE items SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return s.handlePostgresError("DeleteItem", err)
	}
	if tag.RowsAffected() == 0 {
		return simplefields.ErrItemNotFound
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*simplefields.Item, error) {
	query := `
		SELECT id, type, title, body, status, created_at, updated_at
		FROM items
		WHERE id = $1 AND deleted_at IS NULL`

	var item simplefields.Item
	var status string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.Type, &item.Title, &item.Body, &status,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, s.handlePostgresError("GetItem", err)
	}
	item.Status = simplefields.ItemStatus(status)
	return &item, nil
}

// QueryItems builds one SQL statement from the query arguments: type/status
// equality, free-text ILIKE over title/body, and EXISTS subqueries per meta
// filter (OR'd together when MetaOr is set, and OR'd with the text match so a
// meta-only hit still qualifies).
func (s *Store) QueryItems(ctx context.Context, q simplefields.Query) ([]*simplefields.Item, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "i.deleted_at IS NULL")
	if q.Type != "" {
		conds = append(conds, "i.type = "+arg(q.Type))
	}
	if q.Status != "" {
		conds = append(conds, "i.status = "+arg(string(q.Status)))
	}

	var metaConds []string
	for _, f := range q.MetaFilters {
		op := "="
		val := toText(f.Value)
		if f.Compare == simplefields.MetaContains {
			op = "ILIKE"
			val = "%" + val + "%"
		}
		metaConds = append(metaConds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM item_meta m WHERE m.item_id = i.id AND m.key = %s AND m.value %s %s)",
			arg(f.Key), op, arg(val)))
	}

	var textConds []string
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		if q.SearchTitle {
			textConds = append(textConds, "i.title ILIKE "+arg(pattern))
		}
		if q.SearchBody {
			textConds = append(textConds, "i.body ILIKE "+arg(pattern))
		}
	}

	switch {
	case len(textConds) > 0 && len(metaConds) > 0 && q.MetaOr:
		conds = append(conds, "("+strings.Join(append(textConds, metaConds...), " OR ")+")")
	case len(textConds) > 0 && len(metaConds) > 0:
		conds = append(conds, "("+strings.Join(textConds, " OR ")+")")
		conds = append(conds, metaConds...)
	case len(textConds) > 0:
		conds = append(conds, "("+strings.Join(textConds, " OR ")+")")
	case len(metaConds) > 0 && q.MetaOr:
		conds = append(conds, "("+strings.Join(metaConds, " OR ")+")")
	case len(metaConds) > 0:
		conds = append(conds, metaConds...)
	}

	dir := "DESC"
	if q.Order == "asc" {
		dir = "ASC"
	}
	orderBy := "i.created_at " + dir
	switch q.OrderBy {
	case "title":
		orderBy = "i.title " + dir
	case "meta":
		if q.MetaKey != "" {
			orderBy = fmt.Sprintf(
				"(SELECT m.value FROM item_meta m WHERE m.item_id = i.id AND m.key = %s ORDER BY m.id LIMIT 1) %s NULLS LAST",
				arg(q.MetaKey), dir)
		}
	}

	query := `
		SELECT i.id, i.type, i.title, i.body, i.status, i.created_at, i.updated_at
		FROM items i
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ` + orderBy
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.handlePostgresError("QueryItems", err)
	}
	defer rows.Close()

	var items []*simplefields.Item
	for rows.Next() {
		var item simplefields.Item
		var status string
		if err := rows.Scan(&item.ID, &item.Type, &item.Title, &item.Body, &status,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, s.handlePostgresError("QueryItems", err)
		}
		item.Status = simplefields.ItemStatus(status)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handlePostgresError("QueryItems", err)
	}

	// Item-level queries used by search re-ranking need metadata attached.
	for _, item := range items {
		meta, err := s.allMeta(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item.Meta = meta
	}

	if q.Compare != nil {
		sortByCompare(items, q.Compare, dir == "DESC")
	}
	return items, nil
}

func (s *Store) allMeta(ctx context.Context, itemID uuid.UUID) (map[string][]interface{}, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, value FROM item_meta WHERE item_id = $1 ORDER BY id`, itemID)
	if err != nil {
		return nil, s.handlePostgresError("allMeta", err)
	}
	defer rows.Close()

	meta := make(map[string][]interface{})
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, s.handlePostgresError("allMeta", err)
		}
		meta[key] = append(meta[key], value)
	}
	return meta, rows.Err()
}

// Metadata operations. Values persist as text; the codec re-coerces typed
// values on read through field defaults and sanitizers.

func (s *Store) GetMeta(ctx context.Context, itemID uuid.UUID, key string, single bool) (interface{}, error) {
	if single {
		var value string
		err := s.db.QueryRow(ctx,
			`SELECT value FROM item_meta WHERE item_id = $1 AND key = $2 ORDER BY id LIMIT 1`,
			itemID, key).Scan(&value)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, s.handlePostgresError("GetMeta", err)
		}
		return value, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT value FROM item_meta WHERE item_id = $1 AND key = $2 ORDER BY id`,
		itemID, key)
	if err != nil {
		return nil, s.handlePostgresError("GetMeta", err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, s.handlePostgresError("GetMeta", err)
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, rows.Err()
	}
	return values, rows.Err()
}

func (s *Store) SetMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error {
	if err := s.DeleteMeta(ctx, itemID, key); err != nil {
		return err
	}
	return s.AddMeta(ctx, itemID, key, value)
}

func (s *Store) AddMeta(ctx context.Context, itemID uuid.UUID, key string, value interface{}) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO item_meta (item_id, key, value) VALUES ($1, $2, $3)`,
		itemID, key, toText(value))
	if err != nil {
		return s.handlePostgresError("AddMeta", err)
	}
	return nil
}

func (s *Store) DeleteMeta(ctx context.Context, itemID uuid.UUID, key string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM item_meta WHERE item_id = $1 AND key = $2`, itemID, key)
	if err != nil {
		return s.handlePostgresError("DeleteMeta", err)
	}
	return nil
}

func (s *Store) MetaExists(ctx context.Context, itemID uuid.UUID, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM item_meta WHERE item_id = $1 AND key = $2)`,
		itemID, key).Scan(&exists)
	if err != nil {
		return false, s.handlePostgresError("MetaExists", err)
	}
	return exists, nil
}

func toText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func sortByCompare(items []*simplefields.Item, cmp simplefields.CompareFunc, desc bool) {
	// Custom comparators cannot run in SQL; re-sort the page client-side.
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}
