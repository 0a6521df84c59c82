package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mboyd/fintrack/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseDateRange reads the required startDate/endDate query parameters
// (YYYY-MM-DD). Both must be present and well-formed.
func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	rawStart := r.URL.Query().Get("startDate")
	rawEnd := r.URL.Query().Get("endDate")
	if rawStart == "" {
		return start, end, &domain.ErrValidation{Field: "startDate", Message: "required"}
	}
	if rawEnd == "" {
		return start, end, &domain.ErrValidation{Field: "endDate", Message: "required"}
	}
	start, err = time.Parse("2006-01-02", rawStart)
	if err != nil {
		return start, end, &domain.ErrValidation{Field: "startDate", Message: "must be YYYY-MM-DD"}
	}
	end, err = time.Parse("2006-01-02", rawEnd)
	if err != nil {
		return start, end, &domain.ErrValidation{Field: "endDate", Message: "must be YYYY-MM-DD"}
	}
	return start, end, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var row *domain.ErrRow

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &row):
		logger.Debug("unparseable statement row", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
