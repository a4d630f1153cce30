// Package http exposes the JSON API over chi.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/middleware/ratelimit"
	"github.com/brandonwu32/financedashboard/internal/middleware/security"
	"github.com/brandonwu32/financedashboard/internal/middleware/trace"
	"github.com/brandonwu32/financedashboard/internal/registry"
	"github.com/brandonwu32/financedashboard/internal/services"
)

// Dependencies are the services the handlers call.
type Dependencies struct {
	Access *registry.Service
	Ledger *services.LedgerService
	Logger *log.Logger
}

// Options tunes request handling. Zero values fall back to defaults.
type Options struct {
	IdentityHeader     string
	Allow              func(email string) bool
	TrustedProxies     []string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	DefaultCadence     core.Cadence
	StoreTimeout       time.Duration
	Now                func() time.Time
}

const (
	defaultIdentityHeader = "X-Forwarded-Email"
	defaultMaxUploadBytes = 20 << 20
	defaultStoreTimeout   = 10 * time.Second
)

type Server struct {
	http.Server

	access *registry.Service
	ledger *services.LedgerService
	logger *log.Logger
	opts   Options

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Dependencies, opts Options) (*Server, error) {
	if deps.Access == nil || deps.Ledger == nil {
		return nil, errors.New("http server needs both the access and ledger services")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if opts.IdentityHeader == "" {
		opts.IdentityHeader = defaultIdentityHeader
	}
	if opts.Allow == nil {
		opts.Allow = func(string) bool { return true }
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.DefaultCadence == "" {
		opts.DefaultCadence = core.Biweekly
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		access:   deps.Access,
		ledger:   deps.Ledger,
		logger:   logger,
		opts:     opts,
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(logger, s.clientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(capturePeer)
	r.Use(middleware.RealIP)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.clientIP, s.rateLimited))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/access-request", s.handleAccessStatus)
		r.Post("/access-request", s.handleRequestAccess)
		r.Get("/admin/pending-requests", s.handlePendingRequests)
		r.Post("/admin/approve-access", s.handleApproveAccess)

		r.Get("/onboarding/info", s.handleOnboardingInfo)
		r.Get("/onboarding/status", s.handleOnboardingStatus)
		r.Post("/onboarding/register", s.handleRegister)
		r.Post("/onboarding/create", s.handleCreateLedger)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleAppendTransactions)
		r.Get("/budgets", s.handleGetBudgets)
		r.Post("/budgets", s.handleUpdateBudgets)
		r.Get("/summary", s.handleSummary)
		r.Get("/periods", s.handlePeriods)
		r.Post("/parse-transactions", s.handleParseTransactions)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// storeContext bounds one request's calls into the ledger store.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.StoreTimeout)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.clientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error: "rate limit exceeded, please try again later",
		Code:  "rate_limited",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the registry can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.access.Ping(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
