package http

import (
	"errors"
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleInitPreferences seeds preferences and categories on first login and
// returns the existing row afterwards.
func (s *Server) handleInitPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.InitializePreferences(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, applog.OpInitialize, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs.View())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetPreferences(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writePreferencesError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs.View())
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var update core.PreferencesUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	update.ApplyDefaults()
	if err := update.Validate(); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}

	var prefs core.UserPreferences
	var err error
	if update.Empty() {
		prefs, err = s.store.GetPreferences(r.Context(), userIDFrom(r.Context()))
	} else {
		prefs, err = s.store.UpdatePreferences(r.Context(), userIDFrom(r.Context()), update)
	}
	if err != nil {
		s.writePreferencesError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs.View())
}

func (s *Server) writePreferencesError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Preferences not found"})
		return
	}
	s.writeError(w, r, op, err)
}
