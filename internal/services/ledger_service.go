package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tripspese/internal/amqp"
	"tripspese/internal/core"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/storage"
)

// Publisher announces committed ledger writes. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.LedgerEvent) error
}

// Invalidator drops cached read models after a write.
type Invalidator interface {
	Clear()
}

// LedgerService owns the expense lifecycle: validated creation and
// secret-guarded soft deletion.
type LedgerService struct {
	store     storage.Store
	catalog   *core.Catalog
	secret    string
	timeout   time.Duration
	publisher Publisher
	cache     Invalidator
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

type LedgerOption func(*LedgerService)

func WithPublisher(p Publisher) LedgerOption { return func(s *LedgerService) { s.publisher = p } }

func WithInvalidator(c Invalidator) LedgerOption { return func(s *LedgerService) { s.cache = c } }

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption { return func(s *LedgerService) { s.metrics = m } }

func WithLedgerLogger(l *log.Logger) LedgerOption { return func(s *LedgerService) { s.logger = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LedgerOption { return func(s *LedgerService) { s.now = now } }

// NewLedgerService wires the lifecycle manager. timeout bounds each store
// call; zero disables it.
func NewLedgerService(store storage.Store, catalog *core.Catalog, deleteSecret string, timeout time.Duration, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:   store,
		catalog: catalog,
		secret:  deleteSecret,
		timeout: timeout,
		now:     time.Now,
		newID:   core.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentLedger})
	}
	return s
}

// Create validates in, records a new active expense and returns it.
func (s *LedgerService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	v, err := s.catalog.Validate(in)
	if err != nil {
		s.metrics.IncrementValidationErrors()
		return core.Expense{}, err
	}

	e := core.NewExpense(s.newID(), v.Category, v.Participants, v.Note, v.Amount, v.CreatedBy, s.now().UTC())
	if _, err := storageCall(ctx, s.timeout, s.metrics, "insert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Insert(ctx, e)
	}); err != nil {
		log.NewStructuredLogger(s.logger).LogError(ctx, "Failed to record expense", err,
			log.ErrorTypeDatabase, log.OpCreate, log.NewFields().WithExpense(e.ID, e.Category, e.Amount, e.ShareAmount, len(e.Participants)))
		return core.Expense{}, err
	}

	s.metrics.IncrementCreated()
	log.NewStructuredLogger(s.logger).LogExpenseCreated(ctx, e.ID, e.Category, e.Amount, e.ShareAmount, len(e.Participants))
	s.afterWrite(ctx, amqp.LedgerEvent{
		Type:      amqp.EventExpenseCreated,
		ExpenseID: e.ID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: e.CreatedAt,
	})
	return e, nil
}

// SoftDelete marks the expense inactive when secret matches the configured
// passphrase. The secret is checked before the id so that callers without
// it learn nothing about which ids exist.
func (s *LedgerService) SoftDelete(ctx context.Context, rawID, secret string) (core.Expense, error) {
	if !s.secretMatches(secret) {
		s.metrics.IncrementDeleteRejected(metrics.RejectUnauthorized)
		s.logger.WarnContext(ctx, "Delete rejected: wrong secret", log.FieldOperation, log.OpDelete)
		return core.Expense{}, core.ErrUnauthorized
	}

	id, err := core.ParseID(rawID)
	if err != nil {
		s.metrics.IncrementDeleteRejected(metrics.RejectInvalidID)
		return core.Expense{}, err
	}

	at := s.now().UTC()
	e, err := storageCall(ctx, s.timeout, s.metrics, "soft_delete", func(ctx context.Context) (core.Expense, error) {
		return s.store.SoftDelete(ctx, id, at)
	})
	if errors.Is(err, core.ErrNotFound) {
		s.metrics.IncrementDeleteRejected(metrics.RejectNotFound)
		return core.Expense{}, fmt.Errorf("delete %s: %w", id, err)
	}
	if err != nil {
		log.NewStructuredLogger(s.logger).LogError(ctx, "Failed to delete expense", err,
			log.ErrorTypeDatabase, log.OpDelete, log.NewFields().WithExpense(id, "", 0, 0, 0))
		return core.Expense{}, err
	}

	s.metrics.IncrementDeleted()
	log.NewStructuredLogger(s.logger).LogExpenseDeleted(ctx, e.ID)
	s.afterWrite(ctx, amqp.LedgerEvent{
		Type:      amqp.EventExpenseDeleted,
		ExpenseID: e.ID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: at,
	})
	return e, nil
}

func (s *LedgerService) secretMatches(got string) bool {
	if s.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) == 1
}

// afterWrite drops cached reads and announces the write. Publishing is best
// effort: the write is already committed.
func (s *LedgerService) afterWrite(ctx context.Context, ev amqp.LedgerEvent) {
	if s.cache != nil {
		s.cache.Clear()
	}
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, ev)
	s.metrics.IncrementEventPublished(ev.Type, err)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			log.FieldExpenseID, ev.ExpenseID,
			log.FieldError, err)
	}
}
