package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Profile is the public profile of a single account, as returned by
// GET /users/{login}. Only the fields the filter evaluator consumes are
// decoded.
type Profile struct {
	Login       string `json:"login"`
	ProfileURL  string `json:"html_url"`    //nolint:tagliatelle // GitHub API field name
	Followers   int    `json:"followers"`   //nolint:tagliatelle
	PublicRepos int    `json:"public_repos"` //nolint:tagliatelle
}

// publicEvent carries only the creation time of a public event.
type publicEvent struct {
	CreatedAt time.Time `json:"created_at"` //nolint:tagliatelle // GitHub API field name
}

// GetUserProfile fetches the public profile for a login.
func (c *Client) GetUserProfile(ctx context.Context, login string) (*Profile, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(login), nil)
	if err != nil {
		return nil, fmt.Errorf("github: profile %s: %w", login, err)
	}
	defer resp.Body.Close()

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("github: decoding profile %s: %w", login, err)
	}

	return &p, nil
}

// LastPublicActivity returns the creation time of the user's most recent
// public event, or the zero time when the user has no public events.
func (c *Client) LastPublicActivity(ctx context.Context, login string) (time.Time, error) {
	path := "/users/" + url.PathEscape(login) + "/events/public?per_page=1"

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("github: events %s: %w", login, err)
	}
	defer resp.Body.Close()

	var events []publicEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return time.Time{}, fmt.Errorf("github: decoding events %s: %w", login, err)
	}

	if len(events) == 0 {
		return time.Time{}, nil
	}

	return events[0].CreatedAt, nil
}
