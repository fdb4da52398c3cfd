// Package session issues and verifies the signed session cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"financas/internal/core"
	"financas/internal/identity"
	"financas/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "financas"

// VerifierCookieName holds the PKCE verifier between redirect and callback.
const VerifierCookieName = "financas_oauth_verifier"

const verifierTTL = 10 * time.Minute

// Config configures session tokens and cookies.
type Config struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// Manager issues HS256 tokens whose jti is a stored session id, so logout
// and expiry are enforced server-side.
type Manager struct {
	store  storage.SessionStore
	cfg    Config
	secret []byte
	now    func() time.Time
}

func NewManager(store storage.SessionStore, cfg Config) *Manager {
	return &Manager{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue stores a new session for userID and returns its signed token.
func (m *Manager) Issue(ctx context.Context, userID string) (string, core.Session, error) {
	now := m.now().UTC()
	sess := core.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", core.Session{}, fmt.Errorf("create session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", core.Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, sess, nil
}

func (m *Manager) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w: %v", identity.ErrUnauthenticated, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("session token missing claims: %w", identity.ErrUnauthenticated)
	}
	return claims, nil
}

// Authenticate verifies the token and its stored session row.
func (m *Manager) Authenticate(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, fmt.Errorf("missing session: %w", identity.ErrUnauthenticated)
	}
	claims, err := m.parse(token)
	if err != nil {
		return core.Session{}, err
	}

	sess, err := m.store.GetSession(ctx, claims.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Session{}, fmt.Errorf("session revoked: %w", identity.ErrUnauthenticated)
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != claims.Subject {
		return core.Session{}, fmt.Errorf("session subject mismatch: %w", identity.ErrUnauthenticated)
	}
	if sess.Expired(m.now()) {
		return core.Session{}, fmt.Errorf("session expired: %w", identity.ErrUnauthenticated)
	}
	return sess, nil
}

// Revoke deletes the session behind token. Unparseable or expired tokens
// are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		slog.DebugContext(ctx, "Ignoring invalid session token on logout", "error", err)
		return nil
	}
	if err := m.store.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Cookie returns the session cookie carrying token.
func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.Cookie("")
	c.MaxAge = -1
	return c
}

// VerifierCookie stores the PKCE verifier for the callback.
func (m *Manager) VerifierCookie(verifier string) *http.Cookie {
	return &http.Cookie{
		Name:     VerifierCookieName,
		Value:    verifier,
		Path:     "/api",
		MaxAge:   int(verifierTTL / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearVerifierCookie removes the PKCE verifier cookie.
func (m *Manager) ClearVerifierCookie() *http.Cookie {
	c := m.VerifierCookie("")
	c.MaxAge = -1
	return c
}

// TokenFromRequest reads the session token from the cookie.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
