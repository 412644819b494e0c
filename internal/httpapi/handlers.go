package httpapi

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/export"
	"github.com/followgc/followgc/internal/github"
	"github.com/followgc/followgc/internal/insights"
	"github.com/followgc/followgc/internal/store"
)

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, err)
		return
	}

	size, err := queryInt(r, "size", s.deps.PageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	preview, err := s.deps.Reconciler.Preview(r.Context(), page, size)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	format, err := exportFormat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var selected []github.User

	switch relation := r.URL.Query().Get("relation"); relation {
	case "", "non-followers":
		snap, err := s.deps.Reconciler.Snapshot(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}

		selected = snap.NonFollowers
	case "followers", "following":
		set, err := s.deps.Fetcher.FetchAll(r.Context(), github.Relation(relation))
		if err != nil {
			s.writeError(w, err)
			return
		}

		selected = set.Users
	default:
		s.writeError(w, badInput("unknown relation %q", relation))
		return
	}

	writeExportHeader(w, format)

	if err := export.WriteUsers(w, format, selected); err != nil {
		s.logger.Error("writing export", "error", err)
	}
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Sweeper.Run(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type dryRunStatus struct {
	Enabled   bool       `json:"enabled"`
	ChangedAt *time.Time `json:"changedAt,omitempty"`
}

func (s *Server) currentDryRun() dryRunStatus {
	enabled, changed := s.deps.DryRun.Status()

	status := dryRunStatus{Enabled: enabled}
	if !changed.IsZero() {
		status.ChangedAt = &changed
	}

	return status
}

func (s *Server) handleDryRunStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentDryRun())
}

func (s *Server) handleDryRunSwitch(w http.ResponseWriter, r *http.Request) {
	switch mode := r.PathValue("mode"); mode {
	case "enable":
		s.deps.DryRun.Set(true)
	case "disable":
		s.deps.DryRun.Set(false)
	case "toggle":
		s.deps.DryRun.Toggle()
	default:
		s.writeError(w, badInput("unknown dry-run mode %q", mode))
		return
	}

	s.writeJSON(w, http.StatusOK, s.currentDryRun())
}

func historyQuery(r *http.Request) (store.EventQuery, error) {
	q := store.EventQuery{
		Username: r.URL.Query().Get("username"),
		Action:   r.URL.Query().Get("action"),
	}

	if q.Action != "" {
		if _, err := engine.ParseAction(q.Action); err != nil {
			return q, err
		}
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, badInput("parameter \"since\" must be RFC 3339: %v", err)
		}

		q.Since = since
	}

	return q, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, err := historyQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	events, err := s.deps.Store.SearchEvents(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if events == nil {
		events = []store.Event{}
	}

	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	format, err := exportFormat(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q, err := historyQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	events, err := s.deps.Store.SearchEvents(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeExportHeader(w, format)

	if err := export.WriteEvents(w, format, events); err != nil {
		s.logger.Error("writing history export", "error", err)
	}
}

type undoRequest struct {
	Action        string   `json:"action,omitempty"`
	Usernames     []string `json:"usernames,omitempty"`
	WindowMinutes int      `json:"windowMinutes,omitempty"`
	Until         string   `json:"until,omitempty"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	req := undoRequest{}

	// An empty body means "undo everything in the default window".
	if err := decodeJSON(r, &req); err != nil && !isEmptyBody(err) {
		s.writeError(w, err)
		return
	}

	if req.WindowMinutes < 0 {
		s.writeError(w, badInput("windowMinutes must not be negative"))
		return
	}

	var until time.Time

	if req.Until != "" {
		parsed, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			s.writeError(w, badInput("until must be RFC3339: %v", err))
			return
		}

		until = parsed
	}

	report, err := s.deps.Undoer.Undo(r.Context(), engine.UndoRequest{
		Action:    req.Action,
		Usernames: req.Usernames,
		Window:    time.Duration(req.WindowMinutes) * time.Minute,
		Until:     until,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// isEmptyBody reports whether a decode failure was just an absent body.
func isEmptyBody(err error) bool {
	return strings.Contains(err.Error(), io.EOF.Error())
}

func (s *Server) handleGetExclusions(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Exclusions.Members(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, listResponse(list))
}

type usernamesRequest struct {
	Usernames []string `json:"usernames"`
}

func (s *Server) handleAddExclusions(w http.ResponseWriter, r *http.Request) {
	var req usernamesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if len(req.Usernames) == 0 {
		s.writeError(w, badInput("usernames must not be empty"))
		return
	}

	added, err := s.deps.Exclusions.Add(r.Context(), req.Usernames)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (s *Server) handleImportUsers(w http.ResponseWriter, r *http.Request) {
	usernames, err := readUsernames(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(usernames) == 0 {
		s.writeError(w, badInput("no usernames in body"))
		return
	}

	skipProcessed, err := queryBool(r, "skipProcessed", true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch action := r.URL.Query().Get("action"); action {
	case "refollow":
		report, err := s.deps.Executor.Execute(r.Context(), engine.ActionFollow, usernames, "", skipProcessed)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, report)
	case "exclude":
		added, err := s.deps.Exclusions.Add(r.Context(), usernames)
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]int{"added": added})
	default:
		s.writeError(w, badInput("action must be refollow or exclude, got %q", action))
	}
}

// readUsernames accepts either a JSON string array or CSV whose first
// column is the login (a leading "login" header row is skipped).
func readUsernames(r *http.Request) ([]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		return readUsernamesCSV(r.Body)
	}

	var usernames []string
	if err := decodeJSON(r, &usernames); err != nil {
		return nil, err
	}

	return usernames, nil
}

func readUsernamesCSV(body io.Reader) ([]string, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	var usernames []string

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, badInput("invalid csv body: %v", err)
		}

		if len(record) == 0 {
			continue
		}

		login := strings.TrimSpace(record[0])
		if login == "" || login == "login" {
			continue
		}

		usernames = append(usernames, login)
	}

	return usernames, nil
}

func (s *Server) handleFilterEvaluate(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("expr")
	if src == "" {
		s.writeError(w, badInput("parameter \"expr\" is required"))
		return
	}

	s.evaluateFilter(w, r, src)
}

func (s *Server) handleFilterSuggest(w http.ResponseWriter, r *http.Request) {
	s.evaluateFilter(w, r, insights.SuggestExpression)
}

type filterResponse struct {
	Expression string             `json:"expression"`
	Page       int                `json:"page"`
	Size       int                `json:"size"`
	Total      int                `json:"total"`
	Errors     int                `json:"errors"`
	Matched    []insights.Metrics `json:"matched"`
}

func (s *Server) evaluateFilter(w http.ResponseWriter, r *http.Request, src string) {
	filter, err := insights.CompileFilter(src)
	if err != nil {
		s.writeError(w, badInput("%v", err))
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, err)
		return
	}

	size, err := queryInt(r, "size", s.deps.PageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	snap, err := s.deps.Reconciler.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	followerLogins := make(map[string]struct{}, len(snap.Followers))
	for _, u := range snap.Followers {
		followerLogins[u.Login] = struct{}{}
	}

	result, err := s.deps.Evaluator.Evaluate(r.Context(), filter, snap.Following, followerLogins)
	if err != nil {
		s.writeError(w, err)
		return
	}

	matched := insights.PageMetrics(result.Matched, page, size)
	if matched == nil {
		matched = []insights.Metrics{}
	}

	s.writeJSON(w, http.StatusOK, filterResponse{
		Expression: src,
		Page:       page,
		Size:       size,
		Total:      len(result.Matched),
		Errors:     result.Errors,
		Matched:    matched,
	})
}

// exportFormat reads the format query parameter, defaulting to CSV.
func exportFormat(r *http.Request) (export.Format, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return export.FormatCSV, nil
	}

	format, err := export.ParseFormat(raw)
	if err != nil {
		return "", badInput("%v", err)
	}

	return format, nil
}

func writeExportHeader(w http.ResponseWriter, format export.Format) {
	if format == export.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
}
