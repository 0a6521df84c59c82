package handler

import (
	"net/http"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Statement import
// ============================================================

// uploadHandler accepts a multipart form with an accountId field and either
// a CSV statement file or isRandom=true to generate a synthetic statement.
func uploadHandler(svc *service.ImportService, maxUploadBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		accountID := r.FormValue("accountId")
		if accountID == "" {
			handleServiceError(w, &domain.ErrValidation{Field: "accountId", Message: "required"}, logger)
			return
		}
		span.SetAttributes(attribute.String("account.id", accountID))

		if r.FormValue("isRandom") == "true" {
			result, err := svc.ImportSynthetic(ctx, accountID)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "file", Message: "a statement file is required unless isRandom is true"}, logger)
			return
		}
		defer file.Close()

		result, err := svc.ImportCSV(ctx, accountID, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
