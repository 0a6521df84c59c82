package service

import (
	"context"

	"github.com/mboyd/fintrack/internal/domain"
	"github.com/mboyd/fintrack/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tagTracer = otel.Tracer("service/tags")

// TagService manages tags and exposes the closed category set.
type TagService struct {
	store  port.LedgerStore
	logger *zap.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store port.LedgerStore, logger *zap.Logger) *TagService {
	return &TagService{store: store, logger: logger}
}

// Categories returns the closed category set.
func (s *TagService) Categories() []string {
	return domain.Categories()
}

func (s *TagService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	ctx, span := tagTracer.Start(ctx, "TagService.ListTags")
	defer span.End()

	return s.store.ListTags(ctx)
}

// CreateTag creates a standalone tag. Names are unique; a duplicate name
// is a conflict.
func (s *TagService) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	ctx, span := tagTracer.Start(ctx, "TagService.CreateTag")
	defer span.End()

	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	tag := &domain.Tag{ID: uuid.NewString(), Name: name}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created", zap.String("tag_id", tag.ID), zap.String("name", tag.Name))
	return tag, nil
}

// DeleteTag removes a tag and detaches it from every transaction.
func (s *TagService) DeleteTag(ctx context.Context, id string) error {
	ctx, span := tagTracer.Start(ctx, "TagService.DeleteTag")
	defer span.End()

	if err := s.store.DeleteTag(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", zap.String("tag_id", id))
	return nil
}
