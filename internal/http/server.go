package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finboard/internal/cache"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// Services are the operations the API exposes.
type Services struct {
	Transactions *services.TransactionService
	Receipts     *services.ReceiptService
	Insights     *services.InsightService
	Analysis     *services.AnalysisService
	Budgets      *services.BudgetService
}

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server; zero values select defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// RequestTimeout bounds the upstream work of a single request.
	RequestTimeout time.Duration
	// Ready is pinged by /readyz.
	Ready Pinger
	// Caches is swept in the background while the server runs.
	Caches *cache.Manager
}

const (
	defaultRequestTimeout = 45 * time.Second
	readyTimeout          = 2 * time.Second
	cacheSweepInterval    = 10 * time.Minute
)

type Server struct {
	http.Server
	svc     Services
	logger  *log.Logger
	timeout time.Duration
	ready   Pinger
	caches  *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		svc:      svc,
		logger:   logger,
		timeout:  timeout,
		ready:    opts.Ready,
		caches:   opts.Caches,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(logger),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.caches != nil {
		s.caches.StartCleanup(cacheSweepInterval)
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard/{userId}", s.handleDashboard)

	mux.HandleFunc("GET /api/transactions/{userId}", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/categorize", s.handleRecategorize)

	mux.HandleFunc("POST /api/receipts/analyze", s.handleAnalyzeReceipt)

	mux.HandleFunc("GET /api/budgets/{userId}/analysis", s.handleBudgetAnalysis)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("POST /api/insights/generate/{userId}", s.handleGenerateInsights)
	mux.HandleFunc("GET /api/insights/{userId}", s.handleListInsights)
	mux.HandleFunc("PATCH /api/insights/{id}/read", s.handleMarkInsightRead)

	mux.HandleFunc("GET /api/spending/trends/{userId}", s.handleTrends)

	return mux
}

// middleware wraps h, outermost first: logger injection, tracing, security
// headers, probe screening, then rate limiting of mutating requests.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
	})(h)
	h = s.detector.Middleware(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusBadRequest, "Bad request")
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

// withTimeout bounds the upstream work of one request.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// Shutdown stops background work and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.caches != nil {
			s.caches.Stop()
		}
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
