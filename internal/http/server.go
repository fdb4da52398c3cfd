// Package http exposes the finance REST API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"financas/internal/identity"
	applog "financas/internal/log"
	"financas/internal/middleware/cors"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	"financas/internal/session"
	"financas/internal/storage"
)

// handlerTimeout bounds the store round-trips of one request.
const handlerTimeout = 7 * time.Second

// Deps are the collaborators the handlers call.
type Deps struct {
	Store        storage.Store
	Identity     identity.Provider
	Sessions     *session.Manager
	Transactions *services.TransactionService
	Dashboard    *services.DashboardService
	Logger       *applog.Logger

	AllowedOrigins     []string
	TrustedProxies     []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	store        storage.Store
	identity     identity.Provider
	sessions     *session.Manager
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	logger       *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	started             time.Time
	transactionsCreated int64
	now                 func() time.Time
	shutdownOnce        sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = &applog.Logger{Logger: slog.Default()}
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = deps.RateLimitPerMinute

	s := &Server{
		store:        deps.Store,
		identity:     deps.Identity,
		sessions:     deps.Sessions,
		transactions: deps.Transactions,
		dashboard:    deps.Dashboard,
		logger:       logger,
		rateLimiter:  ratelimit.NewLimiter(limitCfg),
		detector:     security.NewDetector(),
		started:      time.Now(),
		now:          time.Now,
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/oauth/google/redirect_url", s.withTimeout(s.handleRedirectURL))
	mux.HandleFunc("POST /api/sessions", s.withTimeout(s.handleCreateSession))
	mux.HandleFunc("GET /api/logout", s.withTimeout(s.handleLogout))

	mux.HandleFunc("GET /api/users/me", s.authed(s.handleMe))
	mux.HandleFunc("POST /api/users/preferences/init", s.authed(s.handleInitPreferences))
	mux.HandleFunc("GET /api/users/preferences", s.authed(s.handleGetPreferences))
	mux.HandleFunc("PUT /api/users/preferences", s.authed(s.handleUpdatePreferences))

	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/categories", s.authed(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.authed(s.handleCreateCategory))
	mux.HandleFunc("GET /api/savings-goals", s.authed(s.handleListSavingsGoals))
	mux.HandleFunc("POST /api/savings-goals", s.authed(s.handleCreateSavingsGoal))

	// outermost first
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = cors.Middleware(deps.AllowedOrigins)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// withTimeout bounds the request context of next.
func (s *Server) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded"})
}

func (s *Server) countTransaction() {
	atomic.AddInt64(&s.transactionsCreated, 1)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
