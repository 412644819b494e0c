// Package httpapi exposes the engine over REST: preview, export, sweep,
// dry-run control, history, undo, lists, imports, and filters.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/insights"
	"github.com/followgc/followgc/internal/store"
)

// maxBodyBytes caps request bodies; list imports are the largest
// legitimate payload and stay far below this.
const maxBodyBytes = 4 << 20

// Store is the persistence surface the API needs. *store.Store
// satisfies it.
type Store interface {
	SearchEvents(ctx context.Context, q store.EventQuery) ([]store.Event, error)
	CreateList(ctx context.Context, name string, items []string) (*store.List, error)
	GetList(ctx context.Context, id string) (*store.List, error)
	ListLists(ctx context.Context) ([]store.ListSummary, error)
	UpdateList(ctx context.Context, id, name string, items []string) (*store.List, error)
	DeleteList(ctx context.Context, id string) error
	AddListItems(ctx context.Context, id string, usernames []string) (int, error)
}

var _ Store = (*store.Store)(nil)

// Deps wires the server to the engine.
type Deps struct {
	Fetcher    engine.RelationFetcher
	Reconciler *engine.Reconciler
	Executor   *engine.Executor
	Undoer     *engine.Undoer
	Sweeper    *engine.Sweeper
	DryRun     *engine.DryRun
	Exclusions *engine.Exclusions
	Evaluator  *insights.Evaluator
	Store      Store
	PageSize   int
	Logger     *slog.Logger
}

// Server is the REST front end.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.PageSize < 1 {
		deps.PageSize = 100
	}

	return &Server{deps: deps, logger: deps.Logger}
}

// Handler builds the routing table. Method patterns keep dispatch in
// the mux instead of per-handler switches.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/export", s.handleExportUsers)
	mux.HandleFunc("POST /api/sweep", s.handleSweep)
	mux.HandleFunc("GET /api/dry-run", s.handleDryRunStatus)
	mux.HandleFunc("POST /api/dry-run/{mode}", s.handleDryRunSwitch)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/export", s.handleHistoryExport)
	mux.HandleFunc("POST /api/undo", s.handleUndo)
	mux.HandleFunc("GET /api/lists", s.handleListLists)
	mux.HandleFunc("POST /api/lists", s.handleCreateList)
	mux.HandleFunc("GET /api/lists/{id}", s.handleGetList)
	mux.HandleFunc("PUT /api/lists/{id}", s.handleUpdateList)
	mux.HandleFunc("DELETE /api/lists/{id}", s.handleDeleteList)
	mux.HandleFunc("POST /api/lists/{id}/apply", s.handleApplyList)
	mux.HandleFunc("GET /api/exclusions", s.handleGetExclusions)
	mux.HandleFunc("POST /api/exclusions", s.handleAddExclusions)
	mux.HandleFunc("POST /api/import/users", s.handleImportUsers)
	mux.HandleFunc("GET /api/filters/evaluate", s.handleFilterEvaluate)
	mux.HandleFunc("GET /api/filters/suggest", s.handleFilterSuggest)

	return s.logRequests(mux)
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v with the given status. Encoding failures are
// logged; the status line has already gone out.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses: validation mistakes
// are 400, unknown resources 404, upstream fetch failures 502, the rest
// 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, store.ErrListNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidAction), errors.Is(err, errBadInput):
		status = http.StatusBadRequest
	case isUpstreamError(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

// errBadInput marks request validation failures for status mapping.
var errBadInput = errors.New("bad request")

func badInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadInput, fmt.Sprintf(format, args...))
}

// isUpstreamError reports whether err came from talking to the API.
func isUpstreamError(err error) bool {
	var apiErr *github.APIError

	return errors.As(err, &apiErr)
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return badInput("invalid json body: %v", err)
	}

	return nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badInput("parameter %q must be a positive integer", name)
	}

	return n, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badInput("parameter %q must be a boolean", name)
	}

	return v, nil
}
