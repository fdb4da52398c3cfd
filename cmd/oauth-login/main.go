// Command oauth-login runs the Google login from a terminal and prints a
// session token for local API testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"financas/internal/backend"
	"financas/internal/cli"
	"financas/internal/client"
	"financas/internal/config"
	"financas/internal/identity"
	applog "financas/internal/log"
	"financas/internal/session"

	"golang.org/x/oauth2"
)

func main() {
	port := flag.String("port", "8085", "local port for the OAuth callback")
	apiURL := flag.String("api", "", "base URL of a running API to verify the session against")
	flag.Parse()

	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentAuth)
	cli.MustValidate(logger, cfg.ValidateWorker)
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" || len(cfg.SessionSecret) < 32 {
		logger.Error("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and a 32+ character SESSION_SECRET are required")
		os.Exit(1)
	}

	// the OAuth client must list this URI among its authorized redirect URIs
	redirectURL := "http://localhost:" + *port + "/callback"
	provider := identity.NewGoogle(identity.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  redirectURL,
	})

	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", provider.AuthCodeURL(state, verifier))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var code string
	select {
	case code = <-codeCh:
	case <-ctx.Done():
		logger.Error("Authorization did not complete", applog.FieldError, ctx.Err())
		os.Exit(1)
	}

	if err := run(ctx, cfg, code, verifier, *apiURL, provider, logger); err != nil {
		logger.Error("Login failed", applog.FieldError, err, applog.FieldOperation, applog.OpLogin)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, code, verifier, apiURL string, provider identity.Provider, logger *applog.Logger) error {
	cookieName := cfg.SessionCookieName

	profile, err := provider.Exchange(ctx, code, verifier)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer res.Cleanup()

	user, err := res.Store.UpsertUser(ctx, profile)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	sessions := session.NewManager(res.Store, session.Config{
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		CookieName: cookieName,
	})
	token, sess, err := sessions.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Email, user.ID)
	fmt.Printf("Session expires %s\n", sess.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Cookie: %s=%s\n", cookieName, token)

	if apiURL == "" {
		return nil
	}
	me, err := client.New(apiURL, client.WithSession(token), client.WithCookieName(cookieName)).Me(ctx)
	if err != nil {
		return fmt.Errorf("verify session against %s: %w", apiURL, err)
	}
	fmt.Printf("Verified against %s: /api/users/me returned %s\n", apiURL, me.Email)
	return nil
}
