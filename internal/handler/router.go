// Package handler wires the HTTP boundary: routing, request decoding,
// and the mapping from domain errors to status codes.
package handler

import (
	"net/http"

	"github.com/mboyd/fintrack/internal/infra/observability"
	"github.com/mboyd/fintrack/internal/port"
	"github.com/mboyd/fintrack/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups everything the router dispatches to.
type Services struct {
	Ledger  *service.LedgerService
	Imports *service.ImportService
	Reports *service.ReportService
	Tags    *service.TagService
	Store   port.LedgerStore
	Metrics *observability.Metrics

	// MaxUploadBytes caps the multipart body accepted by POST /upload.
	MaxUploadBytes int64
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(svcs.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/stats", statsHandler(svcs.Metrics))

	// --- Accounts ---
	r.Get("/accounts", listAccountsHandler(svcs.Ledger, logger))
	r.Post("/accounts", createAccountHandler(svcs.Ledger, logger))
	r.Get("/accounts/{accountId}", getAccountHandler(svcs.Ledger, logger))

	// --- Transactions ---
	r.Get("/transactions", listTransactionsHandler(svcs.Ledger, logger))
	r.Post("/transactions", createTransactionHandler(svcs.Ledger, logger))
	r.Get("/transactions/{transactionId}", getTransactionHandler(svcs.Ledger, logger))
	r.Patch("/transactions/{transactionId}", updateTransactionHandler(svcs.Ledger, logger))
	r.Post("/transactions/{transactionId}/tags", attachTagHandler(svcs.Ledger, logger))

	// --- Tags & categories ---
	r.Get("/tags", listTagsHandler(svcs.Tags, logger))
	r.Post("/tags", createTagHandler(svcs.Tags, logger))
	r.Delete("/tags/{tagId}", deleteTagHandler(svcs.Tags, logger))
	r.Get("/categories", categoriesHandler(svcs.Tags))

	// --- Statement import ---
	r.Post("/upload", uploadHandler(svcs.Imports, svcs.MaxUploadBytes, logger))

	// --- Reports ---
	r.Get("/reports", reportsHandler(svcs.Reports, logger))

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(store port.LedgerStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetImportSnapshot())
	}
}
