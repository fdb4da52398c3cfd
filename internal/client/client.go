// Package client is a typed Go client for the finance API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financas/internal/core"

	"github.com/goccy/go-json"
)

const defaultCookieName = "financas_session"

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []core.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the API with a session cookie. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookieName string
	session    string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSession(token string) Option {
	return func(c *Client) { c.session = token }
}

func WithCookieName(name string) Option {
	return func(c *Client) { c.cookieName = name }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cookieName: defaultCookieName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one request and decodes a 2xx JSON response into T.
// body, when non-nil, is sent as JSON.
func Fetch[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.session})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, newAPIError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out, nil
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var body struct {
		Error  string            `json:"error"`
		Fields []core.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func (c *Client) Me(ctx context.Context) (core.User, error) {
	return Fetch[core.User](ctx, c, http.MethodGet, "/api/users/me", nil)
}

func (c *Client) Dashboard(ctx context.Context) (core.DashboardSummary, error) {
	return Fetch[core.DashboardSummary](ctx, c, http.MethodGet, "/api/dashboard", nil)
}

// Transactions lists one page, newest first; zero values use server defaults.
func (c *Client) Transactions(ctx context.Context, page, limit int) ([]core.Transaction, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return Fetch[[]core.Transaction](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) CreateTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error) {
	return Fetch[core.Transaction](ctx, c, http.MethodPost, "/api/transactions", t)
}

// Categories lists categories, optionally of one type.
func (c *Client) Categories(ctx context.Context, typ core.TransactionType) ([]core.Category, error) {
	path := "/api/categories"
	if typ != "" {
		path += "?type=" + url.QueryEscape(string(typ))
	}
	return Fetch[[]core.Category](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) SavingsGoals(ctx context.Context) ([]core.GoalView, error) {
	return Fetch[[]core.GoalView](ctx, c, http.MethodGet, "/api/savings-goals", nil)
}

func (c *Client) Preferences(ctx context.Context) (core.PreferencesView, error) {
	return Fetch[core.PreferencesView](ctx, c, http.MethodGet, "/api/users/preferences", nil)
}

func (c *Client) InitPreferences(ctx context.Context) (core.PreferencesView, error) {
	return Fetch[core.PreferencesView](ctx, c, http.MethodPost, "/api/users/preferences/init", nil)
}
