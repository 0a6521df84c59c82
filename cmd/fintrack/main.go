package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mboyd/fintrack/internal/config"
	"github.com/mboyd/fintrack/internal/handler"
	"github.com/mboyd/fintrack/internal/infra/cache"
	"github.com/mboyd/fintrack/internal/infra/observability"
	"github.com/mboyd/fintrack/internal/infra/resilience"
	"github.com/mboyd/fintrack/internal/infra/sqlite"
	"github.com/mboyd/fintrack/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		zap.Int("max_import_rows", cfg.MaxImportRows),
		zap.Int("max_concurrent_imports", cfg.MaxConcurrentImports),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("report_cache_ttl", cfg.ReportCacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fintrack")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	reportCache := cache.New[any](cfg.ReportCacheTTL)

	// --- Resilience ---
	retryCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	importBulkhead := resilience.NewBulkhead(cfg.MaxConcurrentImports)

	// --- Store ---
	store, err := sqlite.Open(cfg.DBPath, retryCfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("db_path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()
	store.SetRetryHook(metrics.IncrStoreRetry)

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, reportCache, metrics, logger, cfg.RecentTransactions)
	importSvc := service.NewImportService(store, reportCache, importBulkhead, metrics, logger, cfg.MaxImportRows)
	reportSvc := service.NewReportService(store, reportCache, metrics, logger)
	tagSvc := service.NewTagService(store, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Ledger:         ledgerSvc,
		Imports:        importSvc,
		Reports:        reportSvc,
		Tags:           tagSvc,
		Store:          store,
		Metrics:        metrics,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
