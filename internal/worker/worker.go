package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"tripspese/internal/amqp"
	"tripspese/internal/log"
)

// EventSource delivers ledger events until ctx is done. *amqp.Client
// implements it.
type EventSource interface {
	Consume(ctx context.Context, prefetch int, handler func(context.Context, amqp.LedgerEvent) error) error
}

// Syncer rewrites the exported report. *services.ReportSyncer implements it.
type Syncer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SyncNow(ctx context.Context) error
	Trigger()
	IsRunning() bool
}

// Worker keeps the spreadsheet in step with the ledger: every event
// triggers a full rewrite, and the syncer's own timer repairs anything an
// event missed.
type Worker struct {
	events   EventSource
	syncer   Syncer
	prefetch int
	logger   *log.Logger
}

// New builds a worker. events may be nil, leaving only the periodic sync.
func New(events EventSource, syncer Syncer, prefetch int, logger *log.Logger) *Worker {
	return &Worker{events: events, syncer: syncer, prefetch: prefetch, logger: logger}
}

// Run blocks until ctx is done or consumption fails for good.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.syncer.Start(ctx); err != nil {
		return fmt.Errorf("start report syncer: %w", err)
	}
	defer func() {
		if err := w.syncer.Stop(context.WithoutCancel(ctx)); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop report syncer", log.FieldError, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if w.events != nil {
		g.Go(func() error {
			return w.events.Consume(gctx, w.prefetch, w.HandleEvent)
		})
	} else {
		w.logger.WarnContext(ctx, "No event source configured, relying on periodic sync only")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// HandleEvent rewrites the report for one ledger event. An error makes
// the broker redeliver it.
func (w *Worker) HandleEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		log.FieldExpenseID, ev.ExpenseID)

	if err := w.syncer.SyncNow(ctx); err != nil {
		return fmt.Errorf("sync after %s %s: %w", ev.Type, ev.ExpenseID, err)
	}
	return nil
}

// Routes serves the worker's admin surface next to metrics. POST /sync
// queues a rewrite without waiting for it; /healthz fails while the sync
// loop is down.
func (w *Worker) Routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !w.syncer.IsRunning() {
			writeStatus(rw, http.StatusServiceUnavailable, "not_running")
			return
		}
		writeStatus(rw, http.StatusOK, "ok")
	})
	r.Post("/sync", func(rw http.ResponseWriter, req *http.Request) {
		w.syncer.Trigger()
		w.logger.InfoContext(req.Context(), "Report sync requested")
		writeStatus(rw, http.StatusAccepted, "queued")
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
