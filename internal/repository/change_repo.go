package repository

import (
	"context"
	"errors"

	"github.com/agrolab/sample-engine/internal/domain"
	"gorm.io/gorm"
)

type ChangeRequestRepository interface {
	Create(ctx context.Context, c *domain.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error)
	ListBySample(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error)
	GetUndispatched(ctx context.Context, limit int) ([]domain.ChangeRequest, error)
	MarkDispatched(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string, status domain.ChangeRequestStatus) (*domain.ChangeRequest, error)
}

type GormChangeRequestRepo struct {
	db *gorm.DB
}

func NewGormChangeRequestRepo(db *gorm.DB) *GormChangeRequestRepo {
	return &GormChangeRequestRepo{db: db}
}

func (r *GormChangeRequestRepo) Create(ctx context.Context, c *domain.ChangeRequest) error {
	model := changeRequestModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *changeRequestModelToDomain(model)
	}
	return nil
}

func (r *GormChangeRequestRepo) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	var model ChangeRequestModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return changeRequestModelToDomain(&model), nil
}

func (r *GormChangeRequestRepo) ListBySample(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error) {
	var models []ChangeRequestModel
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	changes := make([]domain.ChangeRequest, 0, len(models))
	for i := range models {
		changes = append(changes, *changeRequestModelToDomain(&models[i]))
	}
	return changes, nil
}

func (r *GormChangeRequestRepo) GetUndispatched(ctx context.Context, limit int) ([]domain.ChangeRequest, error) {
	var models []ChangeRequestModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND dispatched = false", domain.ChangeRequestPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	changes := make([]domain.ChangeRequest, 0, len(models))
	for i := range models {
		changes = append(changes, *changeRequestModelToDomain(&models[i]))
	}
	return changes, nil
}

func (r *GormChangeRequestRepo) MarkDispatched(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&ChangeRequestModel{}).
		Where("id = ?", id).
		Update("dispatched", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Resolve records the lab's decision. Only a pending request can be
// resolved; a second decision for the same request is a conflict.
func (r *GormChangeRequestRepo) Resolve(ctx context.Context, id string, status domain.ChangeRequestStatus) (*domain.ChangeRequest, error) {
	result := r.db.WithContext(ctx).
		Model(&ChangeRequestModel{}).
		Where("id = ? AND status = ?", id, domain.ChangeRequestPending).
		Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrConflict
	}
	return r.GetByID(ctx, id)
}
