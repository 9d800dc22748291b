package services

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"tripspese/internal/cache"
	"tripspese/internal/core"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/storage"
)

const perPersonKey = "per-person"

// ListRequest selects one page of active expenses. Empty filter fields
// match everything.
type ListRequest struct {
	Category    string
	Participant string
	Page        int
	PageSize    int
}

// ListResult is one page plus the summary of the whole filtered set.
type ListResult struct {
	Expenses   []core.Expense
	Pagination core.Pagination
	Summary    core.Summary
}

// QueryService answers read-side questions over active expenses.
type QueryService struct {
	store       storage.Store
	catalog     *core.Catalog
	timeout     time.Duration
	maxPageSize int
	totals      cache.Versioned[[]core.PersonTotal]
	metrics     *metrics.Metrics
	logger      *log.Logger
	now         func() time.Time
}

type QueryOption func(*QueryService)

// WithTotalsCache caches per-person totals. The same cache must be handed
// to the LedgerService so writes clear it.
func WithTotalsCache(c cache.Versioned[[]core.PersonTotal]) QueryOption {
	return func(s *QueryService) { s.totals = c }
}

func WithQueryMetrics(m *metrics.Metrics) QueryOption { return func(s *QueryService) { s.metrics = m } }

func WithQueryLogger(l *log.Logger) QueryOption { return func(s *QueryService) { s.logger = l } }

func NewQueryService(store storage.Store, catalog *core.Catalog, timeout time.Duration, maxPageSize int, opts ...QueryOption) *QueryService {
	s := &QueryService{
		store:       store,
		catalog:     catalog,
		timeout:     timeout,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentQuery})
	}
	return s
}

// filter normalizes a request filter. Asking for the select-all token as a
// participant means no participant filter.
func (s *QueryService) filter(category, participant string) storage.Filter {
	if participant == s.catalog.SelectAll() {
		participant = ""
	}
	return storage.Filter{Category: category, Participant: participant}
}

func (s *QueryService) validatePage(page, pageSize int) error {
	ve := &core.ValidationError{}
	if page < 1 {
		ve.Add("page", "must be a positive integer, got %d", page)
	}
	if pageSize < 1 || pageSize > s.maxPageSize {
		ve.Add("pageSize", "must be between 1 and %d, got %d", s.maxPageSize, pageSize)
	} else if page > math.MaxInt/pageSize {
		// the store offset would overflow
		ve.Add("page", "must be at most %d for page size %d", math.MaxInt/pageSize, pageSize)
	}
	return ve.OrNil()
}

// List returns the requested page, newest first. The page, the count and
// the summary are read concurrently.
func (s *QueryService) List(ctx context.Context, req ListRequest) (ListResult, error) {
	if err := s.validatePage(req.Page, req.PageSize); err != nil {
		return ListResult{}, err
	}
	f := s.filter(req.Category, req.Participant)

	var (
		page   []core.Expense
		total  int
		totals storage.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = storageCall(gctx, s.timeout, s.metrics, "find", func(ctx context.Context) ([]core.Expense, error) {
			return s.store.Find(ctx, f, storage.FindOptions{Skip: (req.Page - 1) * req.PageSize, Limit: req.PageSize})
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = storageCall(gctx, s.timeout, s.metrics, "count", func(ctx context.Context) (int, error) {
			return s.store.Count(ctx, f)
		})
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = storageCall(gctx, s.timeout, s.metrics, "totals", func(ctx context.Context) (storage.Totals, error) {
			return s.store.Totals(ctx, f)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list expenses", log.FieldOperation, log.OpList, log.FieldError, err)
		return ListResult{}, err
	}

	return ListResult{
		Expenses:   page,
		Pagination: core.NewPagination(req.Page, req.PageSize, total),
		Summary:    core.NewSummary(totals.Amount, totals.Count),
	}, nil
}

// Summarize aggregates every active expense matching the filter.
func (s *QueryService) Summarize(ctx context.Context, category, participant string) (core.Summary, error) {
	f := s.filter(category, participant)
	t, err := storageCall(ctx, s.timeout, s.metrics, "totals", func(ctx context.Context) (storage.Totals, error) {
		return s.store.Totals(ctx, f)
	})
	if err != nil {
		return core.Summary{}, err
	}
	return core.NewSummary(t.Amount, t.Count), nil
}

// PerPersonTotals returns one entry per roster member, sorted by name.
func (s *QueryService) PerPersonTotals(ctx context.Context) ([]core.PersonTotal, error) {
	var gen uint64
	if s.totals != nil {
		if cached, ok := s.totals.Get(perPersonKey); ok {
			return slices.Clone(cached), nil
		}
		gen = s.totals.Generation()
	}

	active, err := s.allActive(ctx)
	if err != nil {
		return nil, err
	}
	out := core.PersonTotals(s.catalog.Roster(), active)
	if s.totals != nil {
		// a write that cleared the cache during the read wins
		s.totals.SetIfGeneration(perPersonKey, slices.Clone(out), gen)
	}
	return out, nil
}

// Stats counts records by lifecycle state.
func (s *QueryService) Stats(ctx context.Context) (core.Stats, error) {
	return storageCall(ctx, s.timeout, s.metrics, "stats", s.store.Stats)
}

// Report snapshots every active expense with the per-person totals derived
// from the same snapshot.
func (s *QueryService) Report(ctx context.Context) (core.Report, error) {
	active, err := s.allActive(ctx)
	if err != nil {
		return core.Report{}, err
	}
	return core.NewReport(s.now().UTC(), s.catalog.Roster(), active), nil
}

func (s *QueryService) allActive(ctx context.Context) ([]core.Expense, error) {
	return storageCall(ctx, s.timeout, s.metrics, "find", func(ctx context.Context) ([]core.Expense, error) {
		return s.store.Find(ctx, storage.Filter{}, storage.FindOptions{})
	})
}
