package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Tags & categories
// ============================================================

func listTagsHandler(svc *service.TagService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tags")
		defer span.End()

		tags, err := svc.ListTags(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

func createTagHandler(svc *service.TagService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /tags")
		defer span.End()

		var req domain.CreateTagRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tag, err := svc.CreateTag(ctx, req.Name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tag)
	}
}

func deleteTagHandler(svc *service.TagService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /tags/{tagId}")
		defer span.End()

		tagID := chi.URLParam(r, "tagId")
		if err := svc.DeleteTag(ctx, tagID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func categoriesHandler(svc *service.TagService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Categories())
	}
}
