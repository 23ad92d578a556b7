package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetapp/internal/auth"
	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
	"budgetapp/internal/middleware/ratelimit"
	"budgetapp/internal/middleware/security"
	"budgetapp/internal/middleware/trace"
	"budgetapp/internal/services"
)

// Services are the application services the handlers delegate to.
type Services struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Recurring    *services.RecurringProcessor
	Reports      *services.ReportService
	Categories   *services.CategoryService
	Planning     *services.PlanningService
}

// GoogleAuth runs the Google OAuth code flow.
type GoogleAuth interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (auth.GoogleProfile, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure optional server behavior.
type Options struct {
	CookieSecure bool
	// AuthRateLimit is the per-client budget of auth POSTs per minute.
	AuthRateLimit int
	// Google is nil when Google sign-in is not configured.
	Google GoogleAuth
	States *auth.StateSigner
	Ready  Pinger
	Logger *applog.Logger
}

type Server struct {
	http.Server
	svc  Services
	opts Options

	detector    *security.Detector
	authLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()
	detector := security.NewDetector()

	s := &Server{
		svc:         svc,
		opts:        opts,
		detector:    detector,
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
		now:         time.Now,
	}

	limited := s.authLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Auth
	authLogs := applog.ComponentMiddleware(applog.ComponentAuth)
	mux.Handle("POST /api/auth/signup", authLogs(limited(http.HandlerFunc(s.handleSignup))))
	mux.Handle("POST /api/auth/login", authLogs(limited(http.HandlerFunc(s.handleLogin))))
	mux.Handle("POST /api/auth/logout", authLogs(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /api/auth/me", authLogs(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /api/auth/google", authLogs(http.HandlerFunc(s.handleGoogleLogin)))
	mux.Handle("GET /api/auth/google/callback", authLogs(http.HandlerFunc(s.handleGoogleCallback)))

	// Data
	mux.Handle("GET /api/data/transactions", s.requireAuth(s.handleListTransactions))
	mux.Handle("POST /api/data/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.Handle("DELETE /api/data/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.Handle("GET /api/data/recurring", s.requireAuth(s.handleListRecurring))
	mux.Handle("POST /api/data/recurring", s.requireAuth(s.handleCreateRecurring))
	mux.Handle("POST /api/data/recurring/process", s.requireAuth(s.handleProcessRecurring))
	mux.Handle("DELETE /api/data/recurring/{id}", s.requireAuth(s.handleDeleteRecurring))

	mux.Handle("GET /api/data/categories", s.requireAuth(s.handleListCategories))
	mux.Handle("POST /api/data/categories", s.requireAuth(s.handleCreateCategory))
	mux.Handle("DELETE /api/data/categories/{key}", s.requireAuth(s.handleDeleteCategory))

	mux.Handle("GET /api/data/budgets", s.requireAuth(s.handleListBudgets))
	mux.Handle("POST /api/data/budgets", s.requireAuth(s.handleSaveBudget))
	mux.Handle("DELETE /api/data/budgets/{category}", s.requireAuth(s.handleDeleteBudget))

	mux.Handle("GET /api/data/goals", s.requireAuth(s.handleListGoals))
	mux.Handle("POST /api/data/goals", s.requireAuth(s.handleCreateGoal))
	mux.Handle("POST /api/data/goals/{id}/deposit", s.requireAuth(s.handleDepositGoal))
	mux.Handle("DELETE /api/data/goals/{id}", s.requireAuth(s.handleDeleteGoal))

	mux.Handle("GET /api/data/settings", s.requireAuth(s.handleGetSettings))
	mux.Handle("POST /api/data/settings", s.requireAuth(s.handleSaveSettings))

	// Reports
	reportLogs := applog.ComponentMiddleware(applog.ComponentReport)
	mux.Handle("GET /api/reports/summary", reportLogs(s.requireAuth(s.handleSummaryReport)))
	mux.Handle("GET /api/reports/calendar", reportLogs(s.requireAuth(s.handleCalendarReport)))

	// Unmatched API paths answer in JSON rather than the mux's plain text.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Unknown endpoint.").Write(w)
	})

	// Outermost first: tracing assigns the request ID every later layer logs.
	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = applog.Middleware(opts.Logger.WithComponent(applog.ComponentHTTP))(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// today is the calendar date requests are evaluated against.
func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// Metrics is a snapshot of the middleware counters.
type Metrics struct {
	Requests           int64 `json:"requests"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
	RateLimited        int64 `json:"rate_limited"`
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Requests:           s.tracer.GetMetrics().TotalRequests,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
		RateLimited:        s.authLimiter.GetMetrics().TotalHits,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
