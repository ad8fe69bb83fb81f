package repository

import (
	"context"

	"github.com/agrolab/sample-engine/internal/domain"
	"gorm.io/gorm"
)

type ResultEventRepository interface {
	Create(ctx context.Context, e *domain.ResultEvent) error
	ListBySample(ctx context.Context, sampleID string) ([]domain.ResultEvent, error)
}

type GormResultEventRepo struct {
	db *gorm.DB
}

func NewGormResultEventRepo(db *gorm.DB) *GormResultEventRepo {
	return &GormResultEventRepo{db: db}
}

func (r *GormResultEventRepo) Create(ctx context.Context, e *domain.ResultEvent) error {
	model := resultEventModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *resultEventModelToDomain(model)
	}
	return nil
}

func (r *GormResultEventRepo) ListBySample(ctx context.Context, sampleID string) ([]domain.ResultEvent, error) {
	var models []ResultEventModel
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.ResultEvent, 0, len(models))
	for i := range models {
		events = append(events, *resultEventModelToDomain(&models[i]))
	}
	return events, nil
}
