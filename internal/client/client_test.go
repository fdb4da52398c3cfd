package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_SendsSessionAndDecodes(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("financas_session")
		if err != nil || c.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		if r.URL.Path != "/api/dashboard" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalIncome":1000,"totalExpenses":400.5,"totalSavings":599.5,"savingsRate":59.95,"monthlyGrowth":0,"categoryBreakdown":[],"incomeVsExpenses":[]}`))
	})

	c := New(srv.URL, WithSession("tok"))
	summary, err := c.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !summary.TotalSavings.Equal(decimal.RequireFromString("599.5")) || summary.SavingsRate != 59.95 {
		t.Errorf("summary = %+v", summary)
	}

	anon := New(srv.URL)
	_, err = anon.Dashboard(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Unauthorized" {
		t.Errorf("anonymous error = %v", err)
	}
}

func TestFetch_NonSuccessStatuses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  int
	}{
		{"validation", 400, `{"error":"Validation failed","fields":[{"field":"amount","reason":"must be greater than zero"}]}`, "Validation failed", 1},
		{"not found", 404, `{"error":"Preferences not found"}`, "Preferences not found", 0},
		{"plain text", 502, `bad gateway`, "Bad Gateway", 0},
		{"redirect", 302, ``, "Found", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := New(srv.URL, WithHTTPClient(&http.Client{
				CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
			}))

			_, err := c.Preferences(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMessage || len(apiErr.Fields) != tt.wantFields {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}
}

func TestClient_RequestShapes(t *testing.T) {
	var got []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.RequestURI())
		switch r.URL.Path {
		case "/api/transactions":
			if r.Method == http.MethodPost {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("missing JSON content type")
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":9,"type":"expense","amount":12.5,"category":"Lazer","transaction_date":"2024-03-01"}`))
				return
			}
			w.Write([]byte(`[]`))
		case "/api/users/preferences/init":
			w.Write([]byte(`{"id":1,"currency":"AOA","savings_rate":0.2,"monthly_income":1000,"monthly_savings_target":200}`))
		default:
			w.Write([]byte(`[]`))
		}
	})
	c := New(srv.URL)
	ctx := context.Background()

	if _, err := c.Transactions(ctx, 2, 50); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Transactions(ctx, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Categories(ctx, core.Income); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SavingsGoals(ctx); err != nil {
		t.Fatal(err)
	}
	tx, err := c.CreateTransaction(ctx, core.NewTransaction{Type: core.Expense, Amount: decimal.RequireFromString("12.5"), Category: "Lazer"})
	if err != nil || tx.ID != 9 || tx.TransactionDate.String() != "2024-03-01" {
		t.Fatalf("CreateTransaction() = %+v, %v", tx, err)
	}
	prefs, err := c.InitPreferences(ctx)
	if err != nil || !prefs.MonthlySavingsTarget.Equal(decimal.NewFromInt(200)) || prefs.Currency != "AOA" {
		t.Fatalf("InitPreferences() = %+v, %v", prefs, err)
	}

	want := []string{
		"GET /api/transactions?limit=50&page=2",
		"GET /api/transactions",
		"GET /api/categories?type=income",
		"GET /api/savings-goals",
		"POST /api/transactions",
		"POST /api/users/preferences/init",
	}
	if len(got) != len(want) {
		t.Fatalf("requests = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReduce(t *testing.T) {
	boom := errors.New("boom")
	loaded := ViewState[int]{Data: 7, HasData: true}

	tests := []struct {
		name  string
		state ViewState[int]
		event Event[int]
		want  ViewState[int]
	}{
		{"start from empty", ViewState[int]{}, Event[int]{Kind: Started}, ViewState[int]{Loading: true}},
		{"reload keeps data", loaded, Event[int]{Kind: Started}, ViewState[int]{Data: 7, HasData: true, Loading: true}},
		{"start clears error", ViewState[int]{Err: boom}, Event[int]{Kind: Started}, ViewState[int]{Loading: true}},
		{"success", ViewState[int]{Loading: true}, Event[int]{Kind: Succeeded, Data: 3}, ViewState[int]{Data: 3, HasData: true}},
		{"failure drops data", ViewState[int]{Data: 7, HasData: true, Loading: true}, Event[int]{Kind: Failed, Err: boom}, ViewState[int]{Err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reduce(tt.state, tt.event); got != tt.want {
				t.Errorf("Reduce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_FetchesExactlyOnce(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		wantFinal ViewState[string]
	}{
		{"success", nil, ViewState[string]{Data: "ok", HasData: true}},
		{"failure is not retried", boom, ViewState[string]{Err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			var observed []ViewState[string]
			final := Load(context.Background(), ViewState[string]{},
				func(context.Context) (string, error) {
					calls++
					if tt.err != nil {
						return "", tt.err
					}
					return "ok", nil
				},
				func(s ViewState[string]) { observed = append(observed, s) })

			if calls != 1 {
				t.Errorf("fetch called %d times, want 1", calls)
			}
			if final != tt.wantFinal {
				t.Errorf("final = %+v, want %+v", final, tt.wantFinal)
			}
			if len(observed) != 2 || !observed[0].Loading {
				t.Errorf("observed = %+v", observed)
			}
		})
	}
}
