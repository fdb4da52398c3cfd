package http

import (
	"net/http"
	"strconv"
	"strings"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summary(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page := storage.Page{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	txs, err := s.transactions.ListTransactions(r.Context(), userIDFrom(r.Context()), page)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	var req core.NewTransaction
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.transactions.CreateTransaction(ctx, userID, req)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	s.countTransaction()

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogTransactionCreated(ctx, userID, tx.ID, string(tx.Type), tx.Amount.String(), tx.Category)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var filter storage.CategoryFilter
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			ve := &core.ValidationError{}
			ve.Add("type", err)
			s.writeError(w, r, applog.OpList, ve)
			return
		}
		filter.Type = t
	}

	cats, err := s.store.ListCategories(r.Context(), userIDFrom(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req core.NewCategory
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	cat, err := s.store.CreateCategory(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleListSavingsGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListSavingsGoals(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	now := s.now()
	views := make([]core.GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, g.View(now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req core.NewSavingsGoal
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	goal, err := s.store.CreateSavingsGoal(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal.View(s.now()))
}

// queryInt returns 0 for a missing or malformed value; the caller's defaults apply.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return n
}
