package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/identity"
	"financas/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *storage.SQLiteRepository, *clock) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	if _, err := repo.UpsertUser(context.Background(), core.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	c := &clock{t: time.Now().UTC()}
	m := NewManager(repo, Config{
		Secret:       testSecret,
		TTL:          60 * 24 * time.Hour,
		CookieName:   "financas_session",
		CookieSecure: true,
	}).WithClock(c.now)
	return m, repo, c
}

func TestManager_IssueAndAuthenticate(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	token, sess, err := m.Issue(ctx, "u1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token is not a JWT: %q", token)
	}

	got, err := m.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != sess.ID || got.UserID != "u1" {
		t.Errorf("Authenticate() = %+v, want session %s for u1", got, sess.ID)
	}
}

func TestManager_AuthenticateRejects(t *testing.T) {
	m, repo, c := newTestManager(t)
	ctx := context.Background()

	token, _, err := m.Issue(ctx, "u1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	forger := NewManager(repo, Config{Secret: strings.Repeat("x", 32), TTL: time.Hour})
	forged, _, err := forger.Issue(ctx, "u1")
	if err != nil {
		t.Fatalf("forger Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		setup func()
	}{
		{name: "empty token", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong signature", token: forged},
		{name: "expired", token: token, setup: func() { c.t = c.t.Add(61 * 24 * time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := m.Authenticate(ctx, tt.token)
			if !errors.Is(err, identity.ErrUnauthenticated) {
				t.Errorf("Authenticate() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestManager_Revoke(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	token, _, err := m.Issue(ctx, "u1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := m.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := m.Authenticate(ctx, token); !errors.Is(err, identity.ErrUnauthenticated) {
		t.Errorf("revoked session still authenticates: %v", err)
	}
	if err := m.Revoke(ctx, "garbage"); err != nil {
		t.Errorf("Revoke(garbage) = %v, want nil", err)
	}
}

func TestManager_Cookies(t *testing.T) {
	m, _, _ := newTestManager(t)

	c := m.Cookie("tok")
	if c.Name != "financas_session" || c.Value != "tok" || c.Path != "/" {
		t.Errorf("unexpected cookie: %+v", c)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("cookie flags wrong: %+v", c)
	}
	if c.MaxAge != 60*24*60*60 {
		t.Errorf("MaxAge = %d, want 60 days", c.MaxAge)
	}

	if cleared := m.ClearCookie(); cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("ClearCookie() = %+v", cleared)
	}

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if got := m.TokenFromRequest(req); got != "tok" {
		t.Errorf("TokenFromRequest() = %q", got)
	}
}
