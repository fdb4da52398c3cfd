// Package identity exchanges OAuth authorization codes for user profiles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"financas/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUnauthenticated marks a rejected code, token or session.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider is an OAuth identity provider.
type Provider interface {
	// AuthCodeURL returns the consent URL. A non-empty verifier adds a
	// PKCE S256 challenge.
	AuthCodeURL(state, verifier string) string
	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code, verifier string) (core.User, error)
}

// GoogleConfig configures the Google provider. Endpoint and APIEndpoint
// default to Google's production URLs.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	APIEndpoint  string
}

type Google struct {
	oauth       *oauth2.Config
	apiEndpoint string
}

func NewGoogle(cfg GoogleConfig) *Google {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oauth2v2.OpenIDScope, oauth2v2.UserinfoEmailScope, oauth2v2.UserinfoProfileScope},
		},
		apiEndpoint: cfg.APIEndpoint,
	}
}

func (g *Google) AuthCodeURL(state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "select_account")}
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return g.oauth.AuthCodeURL(state, opts...)
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (core.User, error) {
	if code == "" {
		return core.User{}, fmt.Errorf("empty authorization code: %w", ErrUnauthenticated)
	}

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := g.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return core.User{}, classify("exchange code", err)
	}

	svcOpts := []option.ClientOption{option.WithTokenSource(g.oauth.TokenSource(ctx, token))}
	if g.apiEndpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(g.apiEndpoint))
	}
	svc, err := oauth2v2.NewService(ctx, svcOpts...)
	if err != nil {
		return core.User{}, fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return core.User{}, classify("fetch userinfo", err)
	}
	if info.Id == "" || info.Email == "" {
		return core.User{}, fmt.Errorf("userinfo missing id or email: %w", ErrUnauthenticated)
	}

	return core.User{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

// classify maps provider rejections (4xx) to ErrUnauthenticated and leaves
// transport and 5xx failures as plain errors.
func classify(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && isClientError(re.Response.StatusCode) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnauthenticated, err)
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) && isClientError(ge.Code) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnauthenticated, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isClientError(code int) bool {
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
