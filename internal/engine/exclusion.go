package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/followgc/followgc/internal/store"
)

// ListStore is the named-list persistence the engine needs.
type ListStore interface {
	GetOrCreateListByName(ctx context.Context, name string) (*store.List, error)
	AddListItems(ctx context.Context, id string, usernames []string) (int, error)
}

// Exclusions manages the reserved exclusion list: usernames bulk
// unfollows must never touch. The list is an ordinary named list looked
// up (and lazily created) by its reserved name.
type Exclusions struct {
	lists  ListStore
	name   string
	logger *slog.Logger
}

// NewExclusions creates an Exclusions over the reserved list name.
func NewExclusions(lists ListStore, name string, logger *slog.Logger) *Exclusions {
	if logger == nil {
		logger = slog.Default()
	}

	return &Exclusions{lists: lists, name: name, logger: logger}
}

// Name returns the reserved list name.
func (e *Exclusions) Name() string {
	return e.name
}

// Add appends usernames to the exclusion list, creating it on first
// write. Returns how many were newly added.
func (e *Exclusions) Add(ctx context.Context, usernames []string) (int, error) {
	list, err := e.lists.GetOrCreateListByName(ctx, e.name)
	if err != nil {
		return 0, fmt.Errorf("engine: resolving exclusion list: %w", err)
	}

	added, err := e.lists.AddListItems(ctx, list.ID, usernames)
	if err != nil {
		return added, fmt.Errorf("engine: extending exclusion list: %w", err)
	}

	e.logger.Info("exclusion list extended", "added", added, "list_id", list.ID)

	return added, nil
}

// Members returns the exclusion list with its current items.
func (e *Exclusions) Members(ctx context.Context) (*store.List, error) {
	list, err := e.lists.GetOrCreateListByName(ctx, e.name)
	if err != nil {
		return nil, fmt.Errorf("engine: resolving exclusion list: %w", err)
	}

	return list, nil
}

// SnapshotSet returns the current members as a lookup set. Batches take
// one snapshot up front so membership is stable for the whole run.
func (e *Exclusions) SnapshotSet(ctx context.Context) (map[string]struct{}, error) {
	list, err := e.Members(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(list.Items))
	for _, username := range list.Items {
		set[username] = struct{}{}
	}

	return set, nil
}
