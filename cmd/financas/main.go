package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"financas/internal/backend"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/identity"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/session"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	logger.Info("Starting financas server", "port", cfg.Port, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// a nil *events.Client must not become a non-nil interface
	var publisher services.EventPublisher
	if res.Events != nil {
		publisher = res.Events
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store: res.Store,
		Identity: identity.NewGoogle(identity.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}),
		Sessions: session.NewManager(res.Store, session.Config{
			Secret:       cfg.SessionSecret,
			TTL:          cfg.SessionTTL,
			CookieName:   cfg.SessionCookieName,
			CookieSecure: cfg.CookieSecure,
		}),
		Transactions:       services.NewTransactionService(res.Store, publisher),
		Dashboard:          services.NewDashboardService(res.Store),
		Logger:             logger,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
