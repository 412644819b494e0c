// Package insights enriches relationship members with profile metrics
// and evaluates user-supplied filter expressions over them, powering
// the filter and suggest operations.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/followgc/followgc/internal/github"
)

// SuggestExpression is the built-in heuristic for unfollow candidates:
// long-inactive accounts with a small audience.
const SuggestExpression = "inactive_days > 180 && followers < 50"

// Metrics is the per-user environment filter expressions run against.
// A zero LastActivity means no public events were found.
type Metrics struct {
	Login        string    `expr:"login" json:"login"`
	ProfileURL   string    `expr:"profile_url" json:"profileUrl"`
	Followers    int       `expr:"followers" json:"followers"`
	PublicRepos  int       `expr:"public_repos" json:"publicRepos"`
	LastActivity time.Time `expr:"last_activity" json:"lastActivity"`
	InactiveDays int       `expr:"inactive_days" json:"inactiveDays"`
	FollowsYou   bool      `expr:"follows_you" json:"followsYou"`
}

// ProfileClient fetches the remote data metrics are derived from.
type ProfileClient interface {
	GetUserProfile(ctx context.Context, login string) (*github.Profile, error)
	LastPublicActivity(ctx context.Context, login string) (time.Time, error)
}

// Enricher turns relation members into Metrics.
type Enricher struct {
	client ProfileClient
	logger *slog.Logger
	now    func() time.Time
}

// NewEnricher creates an Enricher.
func NewEnricher(client ProfileClient, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Enricher{client: client, logger: logger, now: time.Now}
}

// Enrich fetches the profile and last public activity for one user. A
// user with no public events at all counts as indefinitely inactive.
func (e *Enricher) Enrich(ctx context.Context, login string) (*Metrics, error) {
	profile, err := e.client.GetUserProfile(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("insights: fetching profile for %s: %w", login, err)
	}

	lastActive, err := e.client.LastPublicActivity(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("insights: fetching activity for %s: %w", login, err)
	}

	inactiveDays := math.MaxInt32
	if !lastActive.IsZero() {
		inactiveDays = int(e.now().Sub(lastActive).Hours() / 24)
	}

	return &Metrics{
		Login:        profile.Login,
		ProfileURL:   profile.ProfileURL,
		Followers:    profile.Followers,
		PublicRepos:  profile.PublicRepos,
		LastActivity: lastActive,
		InactiveDays: inactiveDays,
	}, nil
}

// Filter is a compiled boolean expression over Metrics.
type Filter struct {
	program *vm.Program
	src     string
}

// CompileFilter compiles a filter expression. A compile failure is the
// caller's mistake (bad expression), not an internal error.
func CompileFilter(src string) (*Filter, error) {
	program, err := expr.Compile(src, expr.Env(Metrics{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("insights: compiling filter %q: %w", src, err)
	}

	return &Filter{program: program, src: src}, nil
}

// Source returns the original expression text.
func (f *Filter) Source() string {
	return f.src
}

// Match evaluates the filter against one user's metrics.
func (f *Filter) Match(m *Metrics) (bool, error) {
	out, err := expr.Run(f.program, *m)
	if err != nil {
		return false, fmt.Errorf("insights: evaluating filter %q: %w", f.src, err)
	}

	return out.(bool), nil
}

// EvalResult is the outcome of evaluating a filter over a set of users.
// Users whose enrichment or evaluation failed are counted, not fatal.
type EvalResult struct {
	Matched []Metrics `json:"matched"`
	Errors  int       `json:"errors"`
}

// Evaluator runs filters over relation members.
type Evaluator struct {
	enricher *Enricher
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(enricher *Enricher, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{enricher: enricher, logger: logger}
}

// Evaluate enriches each user in turn and collects the ones the filter
// matches, preserving input order. followerLogins marks who follows
// back; pass nil when that is unknown. Per-user failures are logged and
// counted so one flaky profile does not sink the whole evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, filter *Filter, users []github.User, followerLogins map[string]struct{}) (*EvalResult, error) {
	result := &EvalResult{}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metrics, err := e.enricher.Enrich(ctx, u.Login)
		if err != nil {
			e.logger.Warn("enrichment failed", "username", u.Login, "error", err)
			result.Errors++

			continue
		}

		_, metrics.FollowsYou = followerLogins[u.Login]

		ok, err := filter.Match(metrics)
		if err != nil {
			e.logger.Warn("filter evaluation failed", "username", u.Login, "error", err)
			result.Errors++

			continue
		}

		if ok {
			result.Matched = append(result.Matched, *metrics)
		}
	}

	return result, nil
}

// PageMetrics slices matched metrics for one-based page numbers using
// the same clamping rules the preview uses.
func PageMetrics(metrics []Metrics, page, size int) []Metrics {
	if page < 1 || size < 1 {
		return nil
	}

	from := (page - 1) * size
	if from >= len(metrics) {
		return nil
	}

	to := from + size
	if to > len(metrics) {
		to = len(metrics)
	}

	return metrics[from:to]
}
