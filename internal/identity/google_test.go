package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, tokenStatus, userinfoStatus int) (*httptest.Server, *[]url.Values) {
	t.Helper()
	var forms []url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		forms = append(forms, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		if tokenStatus != http.StatusOK {
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
			return
		}
		w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-123" {
			t.Errorf("Authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userinfoStatus)
		if userinfoStatus != http.StatusOK {
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}
		w.Write([]byte(`{"id":"1098","email":"ana@example.com","name":"Ana","picture":"https://example.com/a.png"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &forms
}

func newTestProvider(srv *httptest.Server) *Google {
	return NewGoogle(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:5173/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		APIEndpoint: srv.URL + "/",
	})
}

func TestGoogle_AuthCodeURL(t *testing.T) {
	g := NewGoogle(GoogleConfig{ClientID: "client-id", RedirectURL: "http://localhost/cb"})

	raw := g.AuthCodeURL("state-1", oauth2.GenerateVerifier())
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if !strings.HasPrefix(raw, "https://accounts.google.com/") {
		t.Errorf("unexpected auth host: %s", raw)
	}
	q := u.Query()
	if q.Get("state") != "state-1" || q.Get("client_id") != "client-id" {
		t.Errorf("missing state or client id: %s", raw)
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Errorf("missing PKCE challenge: %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "openid") {
		t.Errorf("scope = %q", q.Get("scope"))
	}

	plain, _ := url.Parse(g.AuthCodeURL("s", ""))
	if plain.Query().Get("code_challenge") != "" {
		t.Error("no challenge expected without verifier")
	}
}

func TestGoogle_Exchange(t *testing.T) {
	tests := []struct {
		name           string
		code           string
		tokenStatus    int
		userinfoStatus int
		wantUnauth     bool
		wantErr        bool
	}{
		{name: "success", code: "good", tokenStatus: 200, userinfoStatus: 200},
		{name: "empty code", code: "", tokenStatus: 200, userinfoStatus: 200, wantErr: true, wantUnauth: true},
		{name: "rejected code", code: "bad", tokenStatus: 400, userinfoStatus: 200, wantErr: true, wantUnauth: true},
		{name: "provider down", code: "good", tokenStatus: 503, userinfoStatus: 200, wantErr: true},
		{name: "userinfo rejected", code: "good", tokenStatus: 200, userinfoStatus: 401, wantErr: true, wantUnauth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, forms := newFakeGoogle(t, tt.tokenStatus, tt.userinfoStatus)
			g := newTestProvider(srv)

			user, err := g.Exchange(context.Background(), tt.code, "verifier-abc")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Exchange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrUnauthenticated); got != tt.wantUnauth {
				t.Errorf("errors.Is(ErrUnauthenticated) = %v, want %v (err=%v)", got, tt.wantUnauth, err)
			}
			if tt.wantErr {
				return
			}
			if user.ID != "1098" || user.Email != "ana@example.com" || user.Name != "Ana" {
				t.Errorf("unexpected user: %+v", user)
			}
			if len(*forms) != 1 || (*forms)[0].Get("code_verifier") != "verifier-abc" {
				t.Errorf("code_verifier not sent: %v", *forms)
			}
		})
	}
}
