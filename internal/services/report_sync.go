package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripspese/internal/core"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/sheets"
)

// ReportSource builds the export report. *QueryService implements it.
type ReportSource interface {
	Report(ctx context.Context) (core.Report, error)
}

// ReportSyncConfig holds configuration for the report syncer
type ReportSyncConfig struct {
	// Interval is how often the whole report is rewritten (default: 5m)
	Interval time.Duration

	// WriteTimeout bounds one report write (default: 30s)
	WriteTimeout time.Duration
}

// DefaultReportSyncConfig returns sensible defaults
func DefaultReportSyncConfig() ReportSyncConfig {
	return ReportSyncConfig{
		Interval:     5 * time.Minute,
		WriteTimeout: 30 * time.Second,
	}
}

// ReportSyncer keeps an exported copy of the ledger current. It rewrites
// the full report on a timer and whenever Trigger is called, so a lost
// event is repaired by the next tick.
type ReportSyncer struct {
	source  ReportSource
	writer  sheets.ReportWriter
	config  ReportSyncConfig
	metrics *metrics.Metrics
	logger  *log.Logger

	// serializes writes so two syncs never interleave clear and update
	syncMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	trigger chan struct{}
}

func NewReportSyncer(source ReportSource, writer sheets.ReportWriter, config ReportSyncConfig, m *metrics.Metrics, logger *log.Logger) *ReportSyncer {
	def := DefaultReportSyncConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentSheets})
	}
	return &ReportSyncer{
		source:  source,
		writer:  writer,
		config:  config,
		metrics: m,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the sync loop. Returns an error if already running.
func (p *ReportSyncer) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("report syncer is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Report syncer started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for the write in flight to finish.
func (p *ReportSyncer) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Report syncer stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Report syncer stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the sync loop is active
func (p *ReportSyncer) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger asks the loop for a sync soon. Calls made while one is already
// pending collapse into it.
func (p *ReportSyncer) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *ReportSyncer) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Sync immediately on startup
	p.syncLogged(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.syncLogged(ctx)
		case <-p.trigger:
			p.syncLogged(ctx)
		}
	}
}

func (p *ReportSyncer) syncLogged(ctx context.Context) {
	if err := p.SyncNow(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Report sync failed",
			log.FieldOperation, log.OpSync,
			log.FieldError, err)
	}
}

// SyncNow rebuilds the report and writes it out.
func (p *ReportSyncer) SyncNow(ctx context.Context) error {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()

	r, err := p.source.Report(ctx)
	if err != nil {
		p.metrics.IncrementSheetSync(err)
		return fmt.Errorf("build report: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
	defer cancel()
	if err := p.writer.WriteReport(wctx, r); err != nil {
		p.metrics.IncrementSheetSync(err)
		return fmt.Errorf("write report: %w", err)
	}
	p.metrics.IncrementSheetSync(nil)

	p.logger.InfoContext(ctx, "Report synced",
		log.FieldOperation, log.OpSync,
		"expenses", len(r.Expenses),
		"grand_total", r.GrandTotal)
	return nil
}
