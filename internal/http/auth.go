package http

import (
	"context"
	"net/http"
	"strings"

	applog "financas/internal/log"
	"financas/internal/session"

	"golang.org/x/oauth2"
)

type contextKey string

const userIDKey contextKey = "user_id"

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// userIDFrom returns the authenticated user id, or "" outside authed routes.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authed resolves the session cookie and hands the user id to next through
// the request context. It also applies the handler timeout.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return s.withTimeout(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Authenticate(r.Context(), s.sessions.TokenFromRequest(r))
		if err != nil {
			s.writeError(w, r, "authenticate", err)
			return
		}

		ctx := withUserID(r.Context(), sess.UserID)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, sess.UserID)
		ctx = applog.NewContext(ctx, logger)
		next(w, r.WithContext(ctx))
	})
}

type redirectURLResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// handleRedirectURL starts the Google login with a fresh PKCE verifier.
func (s *Server) handleRedirectURL(w http.ResponseWriter, r *http.Request) {
	verifier := oauth2.GenerateVerifier()
	http.SetCookie(w, s.sessions.VerifierCookie(verifier))
	writeJSON(w, http.StatusOK, redirectURLResponse{RedirectURL: s.identity.AuthCodeURL("", verifier)})
}

type createSessionRequest struct {
	Code string `json:"code"`
}

// handleCreateSession exchanges an authorization code for a session cookie.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentAuth)

	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpLogin, err)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing authorization code"})
		return
	}

	var verifier string
	if c, err := r.Cookie(session.VerifierCookieName); err == nil {
		verifier = c.Value
	}

	profile, err := s.identity.Exchange(ctx, req.Code, verifier)
	if err != nil {
		s.writeError(w, r, applog.OpLogin, err)
		return
	}

	user, err := s.store.UpsertUser(ctx, profile)
	if err != nil {
		s.writeError(w, r, applog.OpLogin, err)
		return
	}

	token, _, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		s.writeError(w, r, applog.OpLogin, err)
		return
	}

	http.SetCookie(w, s.sessions.Cookie(token))
	http.SetCookie(w, s.sessions.ClearVerifierCookie())

	logger.InfoContext(ctx, "User logged in",
		applog.NewFields().WithUser(user.ID).WithOperation(applog.OpLogin).ToSlice()...)
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// handleLogout revokes the current session, if any, and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.sessions.ClearCookie())

	if token := s.sessions.TokenFromRequest(r); token != "" {
		if err := s.sessions.Revoke(r.Context(), token); err != nil {
			s.writeError(w, r, applog.OpLogout, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
