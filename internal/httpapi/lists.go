package httpapi

import (
	"net/http"
	"time"

	"github.com/followgc/followgc/internal/engine"
	"github.com/followgc/followgc/internal/store"
)

type listBody struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Items     []string  `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func listResponse(list *store.List) listBody {
	items := list.Items
	if items == nil {
		items = []string{}
	}

	return listBody{
		ID:        list.ID,
		Name:      list.Name,
		Items:     items,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
}

type listSummaryBody struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.deps.Store.ListLists(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]listSummaryBody, len(summaries))
	for i, sum := range summaries {
		out[i] = listSummaryBody{
			ID:        sum.ID,
			Name:      sum.Name,
			Count:     sum.Count,
			CreatedAt: sum.CreatedAt,
			UpdatedAt: sum.UpdatedAt,
		}
	}

	s.writeJSON(w, http.StatusOK, out)
}

type createListRequest struct {
	Name  string   `json:"name"`
	Items []string `json:"items,omitempty"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Name == "" {
		s.writeError(w, badInput("name must not be empty"))
		return
	}

	list, err := s.deps.Store.CreateList(r.Context(), req.Name, req.Items)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, listResponse(list))
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, listResponse(list))
}

type updateListRequest struct {
	Name  string   `json:"name,omitempty"`
	Items []string `json:"items,omitempty"`
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var req updateListRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	list, err := s.deps.Store.UpdateList(r.Context(), r.PathValue("id"), req.Name, req.Items)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, listResponse(list))
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteList(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type applyListRequest struct {
	Action        string `json:"action"`
	SkipProcessed *bool  `json:"skipProcessed,omitempty"`
}

func (s *Server) handleApplyList(w http.ResponseWriter, r *http.Request) {
	var req applyListRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	action, err := engine.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, err)
		return
	}

	list, err := s.deps.Store.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	skipProcessed := true
	if req.SkipProcessed != nil {
		skipProcessed = *req.SkipProcessed
	}

	report, err := s.deps.Executor.Execute(r.Context(), action, list.Items, list.ID, skipProcessed)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Partial failures stay 200; the details carry the per-target story.
	s.writeJSON(w, http.StatusOK, report)
}
