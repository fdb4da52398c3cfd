package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"financas/internal/core"
	"financas/internal/identity"
	applog "financas/internal/log"
	"financas/internal/storage"

	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Fields []core.FieldError `json:"fields,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// errBadBody marks a request body that is not the expected JSON.
var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// writeError maps err to a status and a safe message; unexpected errors are
// logged with their cause and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Fields: ve.Fields})
	case errors.Is(err, errBadBody):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
	case errors.Is(err, identity.ErrUnauthenticated):
		applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).DebugContext(r.Context(), "Unauthenticated request",
			applog.FieldOperation, op,
			applog.FieldError, err)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, storage.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Already exists"})
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			applog.ErrorTypeInternal, op,
			applog.NewFields().WithUser(userIDFrom(r.Context())).WithHTTPRequest(r.Method, r.URL.Path, "", ""))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}
