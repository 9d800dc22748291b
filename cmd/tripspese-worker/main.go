package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tripspese/internal/amqp"
	"tripspese/internal/backend"
	"tripspese/internal/cli"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/services"
	"tripspese/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentWorker)
	logger.Info("Starting tripspese-worker")

	catalog, err := cfg.Catalog()
	if err != nil {
		logger.Error("Invalid catalog", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	factory := backend.NewFactory(logger.Named(log.ComponentStorage).Logger)
	store, err := factory.CreateStore(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to open ledger store", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	writer, err := factory.CreateReportWriter(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize report writer", log.FieldError, err)
		os.Exit(1)
	}
	if !backendCfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports stay in memory")
	}

	m := metrics.New(prometheus.NewRegistry())
	queries := services.NewQueryService(store, catalog, cfg.StorageTimeout, cfg.MaxPageSize,
		services.WithQueryMetrics(m),
		services.WithQueryLogger(logger.Named(log.ComponentQuery)))
	syncer := services.NewReportSyncer(queries, writer, services.ReportSyncConfig{
		Interval: cfg.SyncInterval,
	}, m, logger.Named(log.ComponentSheets))

	// Without a broker the worker still rewrites the report on its timer.
	var events worker.EventSource
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	w := worker.New(events, syncer, cfg.SyncBatchSize, logger.Named(log.ComponentWorker))

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           w.Routes(m.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Admin server stopped", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
	})

	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
