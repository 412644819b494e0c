package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/insights"
	"github.com/followgc/followgc/internal/store"
)

type fakeFetcher struct {
	sets map[github.Relation]*github.RelationSet
	errs map[github.Relation]error
}

func (f *fakeFetcher) FetchAll(_ context.Context, rel github.Relation) (*github.RelationSet, error) {
	if err := f.errs[rel]; err != nil {
		return nil, err
	}

	return f.sets[rel], nil
}

type fakeMutator struct {
	mu         sync.Mutex
	followed   []string
	unfollowed []string
}

func (f *fakeMutator) Follow(_ context.Context, login string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.followed = append(f.followed, login)

	return nil
}

func (f *fakeMutator) Unfollow(_ context.Context, login string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unfollowed = append(f.unfollowed, login)

	return nil
}

type fakeProfileClient struct {
	profiles map[string]*github.Profile
	activity map[string]time.Time
}

func (f *fakeProfileClient) GetUserProfile(_ context.Context, login string) (*github.Profile, error) {
	if p, ok := f.profiles[login]; ok {
		return p, nil
	}

	return &github.Profile{Login: login}, nil
}

func (f *fakeProfileClient) LastPublicActivity(_ context.Context, login string) (time.Time, error) {
	return f.activity[login], nil
}

type apiFixture struct {
	handler http.Handler
	store   *store.Store
	mutator *fakeMutator
	dryRun  *engine.DryRun
	fetcher *fakeFetcher
}

func relationUsers(logins ...string) []github.User {
	out := make([]github.User, len(logins))
	for i, l := range logins {
		out[i] = github.User{Login: l, ProfileURL: "https://github.com/" + l}
	}

	return out
}

func newAPIFixture(t *testing.T, dryRunEnabled bool) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fetcher := &fakeFetcher{sets: map[github.Relation]*github.RelationSet{
		github.RelationFollowers: {Relation: github.RelationFollowers, Users: relationUsers("a", "b")},
		github.RelationFollowing: {Relation: github.RelationFollowing, Users: relationUsers("b", "c", "d")},
	}}

	mutator := &fakeMutator{}
	dryRun := engine.NewDryRun(dryRunEnabled)
	exclusions := engine.NewExclusions(st, "exclude-next-run", logger)
	exec := engine.NewExecutor(mutator, st, exclusions, dryRun, 2, logger)
	reconciler := engine.NewReconciler(fetcher, logger)
	profiles := &fakeProfileClient{
		profiles: map[string]*github.Profile{
			"c": {Login: "c", ProfileURL: "https://github.com/c", Followers: 3},
		},
		activity: map[string]time.Time{"b": time.Now()},
	}
	evaluator := insights.NewEvaluator(insights.NewEnricher(profiles, logger), logger)

	server := New(Deps{
		Fetcher:    fetcher,
		Reconciler: reconciler,
		Executor:   exec,
		Undoer:     engine.NewUndoer(exec, st, time.Hour, logger),
		Sweeper:    engine.NewSweeper(reconciler, exec, nil, logger),
		DryRun:     dryRun,
		Exclusions: exclusions,
		Evaluator:  evaluator,
		Store:      st,
		PageSize:   100,
		Logger:     logger,
	})

	return &apiFixture{
		handler: server.Handler(),
		store:   st,
		mutator: mutator,
		dryRun:  dryRun,
		fetcher: fetcher,
	}
}

func (fx *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPreviewReturnsNonFollowers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/preview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	preview := decodeBody[engine.Preview](t, rec)
	assert.Equal(t, 2, preview.TotalFollowers)
	assert.Equal(t, 3, preview.TotalFollowing)
	assert.Equal(t, 2, preview.TotalNonFollowers)
	require.Len(t, preview.Items, 2)
	assert.Equal(t, "c", preview.Items[0].Login)
	assert.Equal(t, "d", preview.Items[1].Login)
}

func TestPreviewBadPageIs400(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/preview?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewUpstreamFailureIs502(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)
	fx.fetcher.errs = map[github.Relation]error{
		github.RelationFollowers: &github.APIError{StatusCode: 500, Err: github.ErrServerError},
	}

	rec := fx.do(t, http.MethodGet, "/api/preview", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDryRunStatusAndSwitch(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/dry-run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[dryRunStatus](t, rec).Enabled)

	rec = fx.do(t, http.MethodPost, "/api/dry-run/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[dryRunStatus](t, rec).Enabled)
	assert.False(t, fx.dryRun.Enabled())

	rec = fx.do(t, http.MethodPost, "/api/dry-run/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fx.dryRun.Enabled())

	rec = fx.do(t, http.MethodPost, "/api/dry-run/maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepDryRun(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[engine.SweepResult](t, rec)
	require.NotNil(t, result.Report)
	assert.Equal(t, 2, result.Report.Simulated)
	assert.Empty(t, fx.mutator.unfollowed)
}

func TestListLifecycle(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/lists", `{"name":"targets","items":["c","d","c",""]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody[listBody](t, rec)
	assert.Equal(t, []string{"c", "d"}, created.Items)

	rec = fx.do(t, http.MethodGet, "/api/lists/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPut, "/api/lists/"+created.ID, `{"items":["d"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d"}, decodeBody[listBody](t, rec).Items)

	rec = fx.do(t, http.MethodGet, "/api/lists", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]listSummaryBody](t, rec), 1)

	rec = fx.do(t, http.MethodDelete, "/api/lists/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/lists/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateListRequiresName(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/lists", `{"items":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyListExecutesBatch(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/lists", `{"name":"targets","items":["c","d"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[listBody](t, rec)

	rec = fx.do(t, http.MethodPost, "/api/lists/"+created.ID+"/apply", `{"action":"unfollow"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[engine.Report](t, rec)
	assert.Equal(t, 2, report.Applied)
	assert.ElementsMatch(t, []string{"c", "d"}, fx.mutator.unfollowed)

	// Events carry the source list.
	events, err := fx.store.SearchEvents(context.Background(), store.EventQuery{Username: "c"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created.ID, events[0].SourceListID)
}

func TestApplyListSkipProcessedField(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/lists", `{"name":"targets","items":["c"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[listBody](t, rec)

	rec = fx.do(t, http.MethodPost, "/api/lists/"+created.ID+"/apply", `{"action":"unfollow"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Default skips the second run; an explicit false re-applies.
	rec = fx.do(t, http.MethodPost, "/api/lists/"+created.ID+"/apply", `{"action":"unfollow"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[engine.Report](t, rec).Skipped)

	rec = fx.do(t, http.MethodPost, "/api/lists/"+created.ID+"/apply",
		`{"action":"unfollow","skipProcessed":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[engine.Report](t, rec).Applied)
	assert.Equal(t, []string{"c", "c"}, fx.mutator.unfollowed)
}

func TestApplyListInvalidAction(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/lists", `{"name":"targets"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[listBody](t, rec)

	rec = fx.do(t, http.MethodPost, "/api/lists/"+created.ID+"/apply", `{"action":"block"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyUnknownListIs404(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/lists/nope/apply", `{"action":"follow"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExclusionsRoundTrip(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/exclusions", `{"usernames":["c"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"added": 1}, decodeBody[map[string]int](t, rec))

	rec = fx.do(t, http.MethodGet, "/api/exclusions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"c"}, decodeBody[listBody](t, rec).Items)

	// Excluded users are skipped by sweeps.
	rec = fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[engine.SweepResult](t, rec)
	assert.Equal(t, 1, result.Report.Skipped)
	assert.Equal(t, 1, result.Report.Applied)
	assert.Equal(t, []string{"d"}, fx.mutator.unfollowed)
}

func TestUndoEndpoint(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/undo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[engine.UndoReport](t, rec)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 2, report.Applied)
	assert.ElementsMatch(t, []string{"c", "d"}, fx.mutator.followed)
}

func TestUndoRejectsFollowAction(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/undo", `{"action":"follow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndoUsernamesAndUntil(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	until := time.Now().Add(-time.Minute).Format(time.RFC3339)

	rec = fx.do(t, http.MethodPost, "/api/undo",
		`{"usernames":["c"],"until":"`+until+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[engine.UndoReport](t, rec)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, []string{"c"}, fx.mutator.followed)
}

func TestUndoBadUntilIs400(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/undo", `{"until":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpointFilters(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/history?action=unfollow", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Event](t, rec), 2)

	rec = fx.do(t, http.MethodGet, "/api/history?username=c", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Event](t, rec), 1)

	rec = fx.do(t, http.MethodGet, "/api/history?action=block", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/history?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryExportCSV(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/history/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "id,username,action,timestamp,source_list_id,simulated")
}

func TestExportUsersCSV(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/export?relation=non-followers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "login,profile_url")
	assert.Contains(t, rec.Body.String(), "c,https://github.com/c")

	rec = fx.do(t, http.MethodGet, "/api/export?relation=friends", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportUsersRefollow(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/import/users?action=refollow", `["x","y"]`)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[engine.Report](t, rec)
	assert.Equal(t, 2, report.Applied)
	assert.ElementsMatch(t, []string{"x", "y"}, fx.mutator.followed)
}

func TestImportRefollowReachesExcludedUsers(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/exclusions", `{"usernames":["x"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// The exclusion list only guards unfollows, so a re-follow import
	// must still reach the user.
	rec = fx.do(t, http.MethodPost, "/api/import/users?action=refollow", `["x"]`)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[engine.Report](t, rec)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, []string{"x"}, fx.mutator.followed)
}

func TestImportRefollowSkipProcessedParam(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, false)

	rec := fx.do(t, http.MethodPost, "/api/import/users?action=refollow", `["x"]`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Default skips the already-followed target.
	rec = fx.do(t, http.MethodPost, "/api/import/users?action=refollow", `["x"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[engine.Report](t, rec).Skipped)

	// Disabling the skip re-applies it.
	rec = fx.do(t, http.MethodPost, "/api/import/users?action=refollow&skipProcessed=false", `["x"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[engine.Report](t, rec).Applied)
	assert.Equal(t, []string{"x", "x"}, fx.mutator.followed)
}

func TestImportUsersCSVExclude(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/import/users?action=exclude",
		strings.NewReader("login\nx\ny\n"))
	req.Header.Set("Content-Type", "text/csv")

	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"added": 2}, decodeBody[map[string]int](t, rec))
}

func TestImportUsersUnknownAction(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodPost, "/api/import/users?action=purge", `["x"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterEvaluate(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/filters/evaluate?expr=followers+%3C+50", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[filterResponse](t, rec)
	assert.Equal(t, 3, result.Total)

	// b follows back, c and d do not.
	for _, m := range result.Matched {
		if m.Login == "b" {
			assert.True(t, m.FollowsYou)
		} else {
			assert.False(t, m.FollowsYou)
		}
	}
}

func TestFilterEvaluateCompileErrorIs400(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/filters/evaluate?expr=followers+%3E", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/filters/evaluate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterSuggest(t *testing.T) {
	t.Parallel()

	fx := newAPIFixture(t, true)

	rec := fx.do(t, http.MethodGet, "/api/filters/suggest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[filterResponse](t, rec)
	assert.Equal(t, insights.SuggestExpression, result.Expression)

	// c and d have no public activity and few followers; b is active.
	logins := make([]string, len(result.Matched))
	for i, m := range result.Matched {
		logins[i] = m.Login
	}

	assert.ElementsMatch(t, []string{"c", "d"}, logins)
}
