package handler

import (
	"net/http"

	"github.com/mboyd/fintrack/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Reports
// ============================================================

func reportsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports")
		defer span.End()

		start, end, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		groupBy := r.URL.Query().Get("groupBy")
		span.SetAttributes(attribute.String("report.group_by", groupBy))

		result, err := svc.GetReport(ctx, groupBy, start, end)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
