package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tripspese/internal/amqp"
	"tripspese/internal/backend"
	"tripspese/internal/cache"
	"tripspese/internal/cli"
	"tripspese/internal/core"
	apphttp "tripspese/internal/http"
	"tripspese/internal/log"
	"tripspese/internal/metrics"
	"tripspese/internal/services"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentApp)

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

	store, err := backend.NewFactory(logger.Named(log.ComponentStorage).Logger).CreateStore(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to open ledger store", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ledgerOpts := []services.LedgerOption{
		services.WithLedgerMetrics(m),
		services.WithLedgerLogger(logger.Named(log.ComponentLedger)),
	}
	queryOpts := []services.QueryOption{
		services.WithQueryMetrics(m),
		services.WithQueryLogger(logger.Named(log.ComponentQuery)),
	}

	cacheManager := cache.NewManager()
	if cfg.TotalsCacheTTL > 0 {
		totals := cache.NewLRUCache[[]core.PersonTotal](8, cfg.TotalsCacheTTL)
		cacheManager.Register(totals)
		cacheManager.StartCleanup(cfg.TotalsCacheTTL)
		ledgerOpts = append(ledgerOpts, services.WithInvalidator(totals))
		queryOpts = append(queryOpts, services.WithTotalsCache(totals))
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Events are best effort; the worker's periodic sync catches up.
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		} else {
			ledgerOpts = append(ledgerOpts, services.WithPublisher(amqpClient))
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	ledger := services.NewLedgerService(store, catalog, cfg.DeleteSecret, cfg.StorageTimeout, ledgerOpts...)
	queries := services.NewQueryService(store, catalog, cfg.StorageTimeout, cfg.MaxPageSize, queryOpts...)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		DefaultPageSize: cfg.DefaultPageSize,
		DeleteRateLimit: cfg.DeleteRateLimit,
		TrustedProxies:  cfg.TrustedProxies,
	}, apphttp.Deps{
		Ledger:  ledger,
		Queries: queries,
		Catalog: catalog,
		Store:   store,
		Metrics: m,
		Logger:  logger.Named(log.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Store close error", log.FieldError, err)
		}
	})

	logger.Info("Starting tripspese server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
