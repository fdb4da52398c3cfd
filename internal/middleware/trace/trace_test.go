package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "financas/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Component: applog.ComponentHTTP, Output: &buf})

	var seen string
	handler := applog.Middleware(logger)(NewMiddleware(func(*http.Request) string { return "10.0.0.1" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}),
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("%s header = %q, want %q", RequestIDHeader, got, seen)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"HTTP request completed"`, `"status_code":418`, `"level":"WARN"`, `"request_id":"` + seen + `"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Errorf("TotalRequests = %d, want 3", got)
	}
}

func TestMiddleware_AverageResponseTime(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// start and end of two requests: 10ms then 30ms
	ticks := []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond, 40 * time.Millisecond}
	calls := 0

	m := NewMiddleware(nil)
	m.now = func() time.Time {
		d := ticks[calls]
		calls++
		return base.Add(d)
	}
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if got := m.GetMetrics().AverageResponseTime; got != 0 {
		t.Fatalf("AverageResponseTime before any request = %d, want 0", got)
	}
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	if got := m.GetMetrics().AverageResponseTime; got != 20000 {
		t.Errorf("AverageResponseTime = %dus, want 20000us", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || len(a) != len("req_")+16 {
		t.Errorf("ids not unique or malformed: %q %q", a, b)
	}
}
