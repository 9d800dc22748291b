// Package http exposes the ledger as a JSON API over a chi router.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tripspese/internal/core"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/middleware/ratelimit"
	"tripspese/internal/middleware/security"
	"tripspese/internal/services"
)

// Ledger records and soft-deletes expenses. *services.LedgerService
// implements it.
type Ledger interface {
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	SoftDelete(ctx context.Context, rawID, secret string) (core.Expense, error)
}

// Queries answers the read side. *services.QueryService implements it.
type Queries interface {
	List(ctx context.Context, req services.ListRequest) (services.ListResult, error)
	PerPersonTotals(ctx context.Context) ([]core.PersonTotal, error)
	Stats(ctx context.Context) (core.Stats, error)
	Report(ctx context.Context) (core.Report, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the transport.
type Options struct {
	Addr            string
	DefaultPageSize int
	// DeleteRateLimit is the number of delete attempts allowed per client
	// and minute.
	DeleteRateLimit int
	TrustedProxies  []string
	MaxBodyBytes    int64
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Ledger  Ledger
	Queries Queries
	Catalog *core.Catalog
	Store   Pinger
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

type Server struct {
	http.Server

	ledger  Ledger
	queries Queries
	catalog *core.Catalog
	store   Pinger
	metrics *metrics.Metrics
	logger  *log.Logger

	defaultPageSize int
	maxBodyBytes    int64
	limiter         *ratelimit.Limiter
	clientIP        func(*http.Request) string
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer builds the router and the http.Server around it.
func NewServer(opts Options, deps Deps) (*Server, error) {
	if deps.Ledger == nil || deps.Queries == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("http server: ledger, queries and catalog are required")
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	if opts.TrustedProxies == nil {
		opts.TrustedProxies = security.DefaultTrustedProxies
	}
	resolver, err := security.NewClientIPResolver(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		ledger:          deps.Ledger,
		queries:         deps.Queries,
		catalog:         deps.Catalog,
		store:           deps.Store,
		metrics:         deps.Metrics,
		logger:          logger,
		defaultPageSize: opts.DefaultPageSize,
		maxBodyBytes:    opts.MaxBodyBytes,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{Limit: opts.DeleteRateLimit, Window: time.Minute}),
		clientIP:        resolver.ClientIP,
		started:         time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.AccessLog(s.clientIP))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	limitDeletes := s.limiter.Middleware(s.clientIP, s.onDeleteLimited)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/stats", s.handleStats)
		r.Get("/export.csv", s.handleExportCSV)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/per-person", s.handlePerPersonTotals)
			r.With(limitDeletes).Delete("/{id}", s.handleDeleteExpense)
		})

		// Paths kept for clients of the previous API.
		r.Post("/create-expense", s.handleCreateExpense)
		r.With(limitDeletes).Delete("/delete-expense", s.handleDeleteExpense)
	})
	return r
}

func (s *Server) onDeleteLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncrementDeleteRejected(metrics.RejectRateLimited)
	log.FromContext(r.Context()).WarnContext(r.Context(), "Delete rate limit exceeded",
		log.FieldClientIP, s.clientIP(r),
		log.FieldOperation, log.OpDelete)
	writeMessage(w, http.StatusTooManyRequests, "Too many delete attempts, please try again later")
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
