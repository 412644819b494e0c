package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/followgc/followgc/internal/github"
)

// RelationFetcher collects the full membership of one relation.
type RelationFetcher interface {
	FetchAll(ctx context.Context, rel github.Relation) (*github.RelationSet, error)
}

// Snapshot is one point-in-time view of both relations plus the derived
// difference. NonFollowers preserves the following order.
type Snapshot struct {
	Followers    []github.User
	Following    []github.User
	NonFollowers []github.User
	Truncated    bool
	FetchedAt    time.Time
}

// Reconciler fetches both relations and computes who does not follow
// back.
type Reconciler struct {
	fetcher RelationFetcher
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(fetcher RelationFetcher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{fetcher: fetcher, logger: logger}
}

// Snapshot fetches followers and following concurrently and diffs them.
// Either fetch failing fails the whole snapshot; a stale half-view is
// worse than no view.
func (r *Reconciler) Snapshot(ctx context.Context) (*Snapshot, error) {
	var followers, following *github.RelationSet

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		followers, err = r.fetcher.FetchAll(gctx, github.RelationFollowers)

		return err
	})

	g.Go(func() error {
		var err error

		following, err = r.fetcher.FetchAll(gctx, github.RelationFollowing)

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine: fetching relations: %w", err)
	}

	snap := &Snapshot{
		Followers:    followers.Users,
		Following:    following.Users,
		NonFollowers: Difference(following.Users, followers.Users),
		Truncated:    followers.Truncated || following.Truncated,
		FetchedAt:    time.Now(),
	}

	r.logger.Info("relation snapshot",
		"followers", len(snap.Followers),
		"following", len(snap.Following),
		"non_followers", len(snap.NonFollowers),
		"truncated", snap.Truncated)

	return snap, nil
}

// Preview is one page of the non-follower diff plus the totals needed
// to render pagination.
type Preview struct {
	Page              int           `json:"page"`
	Size              int           `json:"size"`
	TotalFollowers    int           `json:"totalFollowers"`
	TotalFollowing    int           `json:"totalFollowing"`
	TotalNonFollowers int           `json:"totalNonFollowers"`
	Items             []github.User `json:"items"`
	Truncated         bool          `json:"truncated,omitempty"`
}

// Preview takes a fresh snapshot and returns the requested page of
// non-followers. Pages past the end are empty, not errors.
func (r *Reconciler) Preview(ctx context.Context, page, size int) (*Preview, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Page:              page,
		Size:              size,
		TotalFollowers:    len(snap.Followers),
		TotalFollowing:    len(snap.Following),
		TotalNonFollowers: len(snap.NonFollowers),
		Items:             Page(snap.NonFollowers, page, size),
		Truncated:         snap.Truncated,
	}, nil
}

// Difference returns the users in following that do not appear in
// followers, in following order. Matching is by exact login.
func Difference(following, followers []github.User) []github.User {
	followerLogins := make(map[string]struct{}, len(followers))
	for _, u := range followers {
		followerLogins[u.Login] = struct{}{}
	}

	var diff []github.User

	for _, u := range following {
		if _, ok := followerLogins[u.Login]; !ok {
			diff = append(diff, u)
		}
	}

	return diff
}

// Page slices users for one-based page numbers. Pages past the end are
// empty, the last page may be short, and a page or size below one is
// empty too.
func Page(users []github.User, page, size int) []github.User {
	if page < 1 || size < 1 {
		return nil
	}

	from := (page - 1) * size
	if from >= len(users) {
		return nil
	}

	to := from + size
	if to > len(users) {
		to = len(users)
	}

	return users[from:to]
}
