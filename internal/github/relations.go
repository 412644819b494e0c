package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// Relation names a remote follow relation of the authenticated user.
type Relation string

// The two follow relations the engine reconciles.
const (
	RelationFollowers Relation = "followers"
	RelationFollowing Relation = "following"
)

// User is a reference to a remote account. Equality is by Login.
type User struct {
	Login      string `json:"login"`
	ProfileURL string `json:"html_url"` //nolint:tagliatelle // GitHub API field name
}

// RelationSet is a fully materialized remote relation. Truncated is set
// when the page-count ceiling stopped enumeration before an empty page —
// the set is usable but incomplete, and callers must surface that.
type RelationSet struct {
	Relation  Relation
	Users     []User
	Truncated bool
}

// Logins returns the set of logins for membership tests.
func (rs *RelationSet) Logins() map[string]struct{} {
	logins := make(map[string]struct{}, len(rs.Users))
	for _, u := range rs.Users {
		logins[u.Login] = struct{}{}
	}

	return logins
}

// Collector materializes entire follow relations page by page.
type Collector struct {
	client   *Client
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// NewCollector creates a Collector. pageSize is the per_page value for each
// request; maxPages is the hard ceiling beyond which the result is marked
// truncated instead of fetching forever.
func NewCollector(client *Client, pageSize, maxPages int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		client:   client,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger,
	}
}

// FetchAll collects every page of the given relation, starting at page 1,
// until a page comes back empty or the page ceiling is reached. Pages are
// fetched sequentially — GitHub's pagination cursor is the page number, and
// parallel page fetches of a mutating set would tear the snapshot. Any page
// failure aborts the whole fetch: a partial relation would corrupt the
// difference computation downstream.
func (c *Collector) FetchAll(ctx context.Context, rel Relation) (*RelationSet, error) {
	c.logger.Info("fetching relation",
		slog.String("relation", string(rel)),
		slog.Int("page_size", c.pageSize),
	)

	set := &RelationSet{Relation: rel}

	for page := 1; ; page++ {
		if page > c.maxPages {
			set.Truncated = true
			c.logger.Warn("relation fetch reached page ceiling",
				slog.String("relation", string(rel)),
				slog.Int("max_pages", c.maxPages),
				slog.Int("fetched", len(set.Users)),
			)

			break
		}

		users, err := c.client.ListRelationPage(ctx, rel, page, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("github: fetching %s page %d: %w", rel, page, err)
		}

		if len(users) == 0 {
			break
		}

		set.Users = append(set.Users, users...)
	}

	c.logger.Info("relation fetch complete",
		slog.String("relation", string(rel)),
		slog.Int("total", len(set.Users)),
		slog.Bool("truncated", set.Truncated),
	)

	return set, nil
}

// ListRelationPage fetches a single page of a follow relation.
func (c *Client) ListRelationPage(ctx context.Context, rel Relation, page, perPage int) ([]User, error) {
	path := fmt.Sprintf("/user/%s?per_page=%d&page=%d", rel, perPage, page)

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("github: decoding %s page %d: %w", rel, page, err)
	}

	return users, nil
}

// Follow adds the given user to the authenticated user's following relation.
// The endpoint is idempotent: following an already-followed user succeeds.
func (c *Client) Follow(ctx context.Context, login string) error {
	resp, err := c.Do(ctx, http.MethodPut, "/user/following/"+url.PathEscape(login), nil)
	if err != nil {
		return fmt.Errorf("github: follow %s: %w", login, err)
	}

	resp.Body.Close()

	return nil
}

// Unfollow removes the given user from the authenticated user's following
// relation. Idempotent like Follow.
func (c *Client) Unfollow(ctx context.Context, login string) error {
	resp, err := c.Do(ctx, http.MethodDelete, "/user/following/"+url.PathEscape(login), nil)
	if err != nil {
		return fmt.Errorf("github: unfollow %s: %w", login, err)
	}

	resp.Body.Close()

	return nil
}
