package http

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"financas/internal/auth"
	"financas/internal/gateway"
	"financas/internal/live"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	appweb "financas/web"
)

const (
	staticMaxAge = 3600
	waitTimeout  = 5 * time.Second
)

// Pinger is checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Ledger *services.LedgerService
	Auth   *auth.Service
	Hub    *live.Hub
	Feed   *gateway.ErrorFeed
	// Ready is optional; without it /readyz only checks the templates.
	Ready  Pinger
	Logger *applog.Logger

	RateLimitPerMinute int
	SessionTTL         time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	ledger *services.LedgerService
	auth   *auth.Service
	hub    *live.Hub
	feed   *gateway.ErrorFeed
	ready  Pinger
	logger *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	sessionTTL  time.Duration
	started     time.Time

	// streams ends every open event stream on shutdown
	streams      context.Context
	closeStreams context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      deps.Ledger,
		auth:        deps.Auth,
		hub:         deps.Hub,
		feed:        deps.Feed,
		ready:       deps.Ready,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(limiterCfg),
		detector:    security.NewDetector(logger.WithComponent(applog.ComponentSecurity).Slog()),
		sessionTTL:  deps.SessionTTL,
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.streams, s.closeStreams = context.WithCancel(context.Background())
	s.RegisterOnShutdown(s.closeStreams)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := appweb.Static(); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /auth/signup", security.NoStoreMiddleware(http.HandlerFunc(s.handleSignUp)))
	mux.Handle("POST /auth/signin", security.NoStoreMiddleware(http.HandlerFunc(s.handleSignIn)))
	mux.Handle("POST /auth/signout", security.NoStoreMiddleware(http.HandlerFunc(s.handleSignOut)))
	mux.Handle("GET /auth/me", s.api(s.handleMe))

	mux.Handle("GET /api/summary", s.api(s.handleSummary))
	mux.Handle("GET /api/reports", s.api(s.handleReport))
	mux.Handle("GET /api/transactions", s.api(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.api(s.handleCreateTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.api(s.handleEditTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.api(s.handleDeleteTransaction))
	mux.Handle("POST /api/transactions/{id}/pay", s.api(s.handleMarkPaid))
	mux.Handle("POST /api/installments", s.api(s.handleCreateInstallments))
	mux.Handle("GET /api/installments/{parcelaId}", s.api(s.handleListInstallments))
	mux.Handle("DELETE /api/installments/{parcelaId}", s.api(s.handleDeleteInstallments))
	mux.Handle("GET /api/groups", s.api(s.handleListGroups))
	mux.Handle("POST /api/groups", s.api(s.handleCreateGroup))
	mux.Handle("DELETE /api/groups/{id}", s.api(s.handleDeleteGroup))
	mux.Handle("GET /api/descriptions", s.api(s.handleListDescriptions))
	mux.Handle("POST /api/descriptions", s.api(s.handleCreateDescription))
	mux.Handle("DELETE /api/descriptions/{id}", s.api(s.handleDeleteDescription))
	mux.Handle("GET /api/stream", s.api(s.handleStream))

	// Wrapped inside out. A request meets the logger, the probe detector and
	// the tracer before headers and limits.
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = applog.Middleware(logger)(handler)
	s.Handler = handler

	return s
}

// api wraps an authenticated JSON endpoint.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	return security.NoStoreMiddleware(s.requireUser(h))
}

// requireUser resolves the session and stores the user in the context.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.auth.CurrentUser(sessionToken(r))
		if err != nil {
			UnauthorizedError(auth.Message(err)).Write(w)
			return
		}
		ctx := withUser(r.Context(), u)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, u.ID))
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.", "").Write(w)
}

// Shutdown stops background routines and gracefully shuts down the server.
// Open event streams are ended first so they do not hold the shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.closeStreams()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// RateLimiter exposes the limiter so its cleanup can be registered with a
// cache manager.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.rateLimiter
}
