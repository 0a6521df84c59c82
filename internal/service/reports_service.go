package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/infra/observability"
	"github.com/mboyd/fintrack/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var reportTracer = otel.Tracer("service/reports")

// Report groupings accepted by GetReport.
const (
	GroupByNone    = ""
	GroupByMonth   = "month"
	GroupByAccount = "account"
)

const reportCacheName = "reports"

// ReportService serves income/expense aggregates over a date range.
// Results are cached per (groupBy, range). Every write path clears the
// cache, so a read after a write always recomputes.
type ReportService struct {
	store   port.LedgerStore
	cache   port.Cache[any]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReportService creates a new report service backed by the given cache.
func NewReportService(store port.LedgerStore, cache port.Cache[any], metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, cache: cache, metrics: metrics, logger: logger}
}

// GetReport computes the aggregate for the inclusive [start, end] range.
// groupBy selects the shape: "" for a single summary, "month" for one row
// per calendar month (newest first), "account" for one row per account.
func (s *ReportService) GetReport(ctx context.Context, groupBy string, start, end time.Time) (any, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.GetReport")
	defer span.End()
	span.SetAttributes(attribute.String("report.group_by", groupBy))

	if end.Before(start) {
		return nil, &domain.ErrValidation{Field: "endDate", Message: "must not precede startDate"}
	}

	key := fmt.Sprintf("report:%s:%s:%s", groupBy, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit(reportCacheName)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(reportCacheName)

	var result any
	var err error
	switch groupBy {
	case GroupByNone:
		result, err = s.store.ReportSummary(ctx, start, end)
	case GroupByMonth:
		result, err = s.store.ReportByMonth(ctx, start, end)
	case GroupByAccount:
		result, err = s.store.ReportByAccount(ctx, start, end)
	default:
		return nil, &domain.ErrValidation{Field: "groupBy", Message: "must be empty, 'month' or 'account'"}
	}
	if err != nil {
		s.logger.Error("report query failed",
			zap.String("group_by", groupBy),
			zap.Error(err),
		)
		return nil, err
	}

	s.cache.Set(key, result)
	return result, nil
}
