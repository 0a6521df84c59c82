package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can serve it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	importedRows    *prometheus.CounterVec
	storeRetries    prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// ImportStats is a point-in-time snapshot of import activity, served by
// GET /stats for dashboards that don't scrape Prometheus.
type ImportStats struct {
	CSVImports       int64   `json:"csv_imports"`
	SyntheticImports int64   `json:"synthetic_imports"`
	RowsImported     int64   `json:"rows_imported"`
	FailedImports    int64   `json:"failed_imports"`
	ReportCacheRate  float64 `json:"report_cache_hit_rate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_imports_total",
				Help: "Statement imports by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		importedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_imported_rows_total",
				Help: "Transactions committed by statement imports.",
			},
			[]string{"source"},
		),
		storeRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fintrack_store_retries_total",
				Help: "Retried store writes (lock contention).",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// RecordImport records a completed import attempt and its row count.
func (m *Metrics) RecordImport(source string, rows int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.importsTotal.WithLabelValues(source, outcome).Inc()
	if err == nil {
		m.importedRows.WithLabelValues(source).Add(float64(rows))
	}
}

// IncrStoreRetry counts a retried store write.
func (m *Metrics) IncrStoreRetry() {
	m.storeRetries.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetImportSnapshot returns current import counters for the GET /stats
// endpoint. Prometheus counters are cumulative, so the snapshot is too.
func (m *Metrics) GetImportSnapshot() *ImportStats {
	csvOK := getCounterValue(m.importsTotal, "csv", "success")
	synthOK := getCounterValue(m.importsTotal, "synthetic", "success")
	failed := getCounterValue(m.importsTotal, "csv", "error") +
		getCounterValue(m.importsTotal, "synthetic", "error")
	rows := getCounterValue(m.importedRows, "csv") + getCounterValue(m.importedRows, "synthetic")

	hits := getCounterValue(m.cacheHits, "reports")
	misses := getCounterValue(m.cacheMisses, "reports")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &ImportStats{
		CSVImports:       int64(csvOK),
		SyntheticImports: int64(synthOK),
		RowsImported:     int64(rows),
		FailedImports:    int64(failed),
		ReportCacheRate:  hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
