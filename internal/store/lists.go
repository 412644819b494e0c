package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrListNotFound is returned when a list ID resolves to nothing.
var ErrListNotFound = errors.New("list not found")

// List is a named, ordered set of usernames. Items preserve the order
// they were first added in; duplicates and blanks are dropped on write.
type List struct {
	ID        string
	Name      string
	Items     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListSummary is a list without its items, plus an item count. Used by
// the listing endpoints where materializing every membership is waste.
type ListSummary struct {
	ID        string
	Name      string
	Count     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// prepareListStmts creates the prepared statements for lists and items.
func (s *Store) prepareListStmts(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.listStmts.insert, `
			INSERT INTO lists (id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)`, "list insert"},
		{&s.listStmts.get, `
			SELECT id, name, created_at, updated_at FROM lists WHERE id = ?`, "list get"},
		{&s.listStmts.getByName, `
			SELECT id, name, created_at, updated_at FROM lists
			WHERE name = ? ORDER BY created_at ASC LIMIT 1`, "list get by name"},
		{&s.listStmts.listAll, `
			SELECT l.id, l.name, l.created_at, l.updated_at,
			       (SELECT COUNT(*) FROM list_items i WHERE i.list_id = l.id)
			FROM lists l
			ORDER BY l.created_at ASC`, "list all"},
		{&s.listStmts.rename, `
			UPDATE lists SET name = ? WHERE id = ?`, "list rename"},
		{&s.listStmts.touch, `
			UPDATE lists SET updated_at = ? WHERE id = ?`, "list touch"},
		{&s.listStmts.delete, `
			DELETE FROM lists WHERE id = ?`, "list delete"},
		{&s.listStmts.insertItem, `
			INSERT INTO list_items (list_id, username, position)
			VALUES (?, ?, ?)`, "list item insert"},
		{&s.listStmts.deleteItems, `
			DELETE FROM list_items WHERE list_id = ?`, "list items delete"},
		{&s.listStmts.listItems, `
			SELECT username FROM list_items
			WHERE list_id = ? ORDER BY position ASC`, "list items"},
		{&s.listStmts.maxPosition, `
			SELECT COALESCE(MAX(position), -1) FROM list_items
			WHERE list_id = ?`, "list max position"},
		{&s.listStmts.countItems, `
			SELECT COUNT(*) FROM list_items WHERE list_id = ?`, "list item count"},
	})
}

// CreateList stores a new list. Items are deduplicated preserving first
// occurrence, blank entries dropped.
func (s *Store) CreateList(ctx context.Context, name string, items []string) (*List, error) {
	now := time.Now()
	list := &List{
		ID:        uuid.NewString(),
		Name:      name,
		Items:     normalizeItems(items),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.listStmts.insert.ExecContext(ctx,
		list.ID, list.Name, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}

	for i, username := range list.Items {
		if _, err := s.listStmts.insertItem.ExecContext(ctx, list.ID, username, i); err != nil {
			return nil, fmt.Errorf("create list item %q: %w", username, err)
		}
	}

	return list, nil
}

// GetList returns a list with its items, or ErrListNotFound.
func (s *Store) GetList(ctx context.Context, id string) (*List, error) {
	list, err := s.scanList(s.listStmts.get.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}

	list.Items, err = s.listItems(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	return list, nil
}

// GetListByName returns the oldest list with the given name, or
// ErrListNotFound.
func (s *Store) GetListByName(ctx context.Context, name string) (*List, error) {
	list, err := s.scanList(s.listStmts.getByName.QueryRowContext(ctx, name))
	if err != nil {
		return nil, err
	}

	list.Items, err = s.listItems(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	return list, nil
}

// GetOrCreateListByName returns the list with the given name, creating
// an empty one if it does not exist yet. Safe for the reserved exclusion
// list because the store is a sole writer.
func (s *Store) GetOrCreateListByName(ctx context.Context, name string) (*List, error) {
	list, err := s.GetListByName(ctx, name)
	if err == nil {
		return list, nil
	}

	if !errors.Is(err, ErrListNotFound) {
		return nil, err
	}

	return s.CreateList(ctx, name, nil)
}

// ListLists returns summaries of all lists, oldest first.
func (s *Store) ListLists(ctx context.Context) ([]ListSummary, error) {
	rows, err := s.listStmts.listAll.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var summaries []ListSummary

	for rows.Next() {
		var (
			sum                  ListSummary
			createdAt, updatedAt int64
		)

		if err := rows.Scan(&sum.ID, &sum.Name, &createdAt, &updatedAt, &sum.Count); err != nil {
			return nil, fmt.Errorf("scan list summary: %w", err)
		}

		sum.CreatedAt = time.Unix(0, createdAt)
		sum.UpdatedAt = time.Unix(0, updatedAt)

		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}

	return summaries, nil
}

// UpdateList renames a list and/or replaces its items wholesale. An
// empty name keeps the current one; a nil items slice keeps the current
// membership (an empty non-nil slice clears it). UpdatedAt is bumped.
func (s *Store) UpdateList(ctx context.Context, id, name string, items []string) (*List, error) {
	if _, err := s.scanList(s.listStmts.get.QueryRowContext(ctx, id)); err != nil {
		return nil, err
	}

	if name != "" {
		if _, err := s.listStmts.rename.ExecContext(ctx, name, id); err != nil {
			return nil, fmt.Errorf("rename list: %w", err)
		}
	}

	if items != nil {
		if _, err := s.listStmts.deleteItems.ExecContext(ctx, id); err != nil {
			return nil, fmt.Errorf("clear list items: %w", err)
		}

		for i, username := range normalizeItems(items) {
			if _, err := s.listStmts.insertItem.ExecContext(ctx, id, username, i); err != nil {
				return nil, fmt.Errorf("replace list item %q: %w", username, err)
			}
		}
	}

	if _, err := s.listStmts.touch.ExecContext(ctx, time.Now().UnixNano(), id); err != nil {
		return nil, fmt.Errorf("touch list: %w", err)
	}

	return s.GetList(ctx, id)
}

// AddListItems appends usernames not already present to the end of the
// list, preserving input order, and returns how many were added.
func (s *Store) AddListItems(ctx context.Context, id string, usernames []string) (int, error) {
	list, err := s.GetList(ctx, id)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]struct{}, len(list.Items))
	for _, u := range list.Items {
		existing[u] = struct{}{}
	}

	var maxPos int
	if err := s.listStmts.maxPosition.QueryRowContext(ctx, id).Scan(&maxPos); err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}

	added := 0

	for _, username := range normalizeItems(usernames) {
		if _, ok := existing[username]; ok {
			continue
		}

		maxPos++

		if _, err := s.listStmts.insertItem.ExecContext(ctx, id, username, maxPos); err != nil {
			return added, fmt.Errorf("add list item %q: %w", username, err)
		}

		existing[username] = struct{}{}
		added++
	}

	if added > 0 {
		if _, err := s.listStmts.touch.ExecContext(ctx, time.Now().UnixNano(), id); err != nil {
			return added, fmt.Errorf("touch list: %w", err)
		}
	}

	return added, nil
}

// DeleteList removes a list and, via cascade, its items.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	res, err := s.listStmts.delete.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete list rows affected: %w", err)
	}

	if affected == 0 {
		return ErrListNotFound
	}

	return nil
}

// listItems loads the ordered usernames of one list.
func (s *Store) listItems(ctx context.Context, id string) ([]string, error) {
	rows, err := s.listStmts.listItems.QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []string

	for rows.Next() {
		var username string

		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan list item: %w", err)
		}

		items = append(items, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list items: %w", err)
	}

	return items, nil
}

// scanList scans one lists row, mapping sql.ErrNoRows to ErrListNotFound.
func (s *Store) scanList(row *sql.Row) (*List, error) {
	var (
		list                 List
		createdAt, updatedAt int64
	)

	err := row.Scan(&list.ID, &list.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}

	list.CreatedAt = time.Unix(0, createdAt)
	list.UpdatedAt = time.Unix(0, updatedAt)

	return &list, nil
}

// normalizeItems drops blank usernames and duplicates, preserving the
// first occurrence order.
func normalizeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))

	for _, raw := range items {
		username := strings.TrimSpace(raw)
		if username == "" {
			continue
		}

		if _, ok := seen[username]; ok {
			continue
		}

		seen[username] = struct{}{}
		out = append(out, username)
	}

	return out
}
