package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrolab/sample-engine/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfigurationUpdate carries the fields a configuration change writes.
// PendingTests is the recomputed analyte set for the new selection minus
// whatever already completed.
type ConfigurationUpdate struct {
	PackageID    string
	AddOnIDs     []string
	SampleName   *string
	PendingTests []string
}

type SampleRepository interface {
	Create(ctx context.Context, s *domain.Sample) error
	GetByID(ctx context.Context, id string) (*domain.Sample, error)
	ListByFarm(ctx context.Context, farmID string) ([]domain.Sample, error)
	DeletePending(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, id string, from, to domain.Status) error
	UpdateConfigurationIfPending(ctx context.Context, id string, update ConfigurationUpdate) (bool, error)
	ApplyConfiguration(ctx context.Context, id string, update ConfigurationUpdate) error
	ApplyResults(ctx context.Context, id string, labNumber string, analytes []string) (*domain.Sample, error)
}

type GormSampleRepo struct {
	db *gorm.DB
}

func NewGormSampleRepo(db *gorm.DB) *GormSampleRepo {
	return &GormSampleRepo{db: db}
}

func (r *GormSampleRepo) Create(ctx context.Context, s *domain.Sample) error {
	model := sampleModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *sampleModelToDomain(model)
	}
	return nil
}

func (r *GormSampleRepo) GetByID(ctx context.Context, id string) (*domain.Sample, error) {
	var model SampleModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sampleModelToDomain(&model), nil
}

func (r *GormSampleRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Sample, error) {
	var models []SampleModel
	err := r.db.WithContext(ctx).
		Where("farm_id = ?", farmID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	samples := make([]domain.Sample, 0, len(models))
	for i := range models {
		samples = append(samples, *sampleModelToDomain(&models[i]))
	}
	return samples, nil
}

// DeletePending removes a sample only while it is still pending; once lab
// work starts the record is permanent.
func (r *GormSampleRepo) DeletePending(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Delete(&SampleModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

// TransitionStatus moves id from the expected current status to the next
// one. The WHERE guard makes the read-modify-write atomic: a concurrent
// transition leaves zero rows affected and surfaces as a conflict.
func (r *GormSampleRepo) TransitionStatus(ctx context.Context, id string, from, to domain.Status) error {
	result := r.db.WithContext(ctx).
		Model(&SampleModel{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

// UpdateConfigurationIfPending commits a configuration change only while the
// sample is still pending. It reports false when the sample exists but has
// already entered processing, so the caller can fall back to the approval
// flow instead of losing the race.
func (r *GormSampleRepo) UpdateConfigurationIfPending(ctx context.Context, id string, update ConfigurationUpdate) (bool, error) {
	values := configurationValues(update)
	result := r.db.WithContext(ctx).
		Model(&SampleModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// ApplyConfiguration commits a lab-approved configuration change regardless
// of status.
func (r *GormSampleRepo) ApplyConfiguration(ctx context.Context, id string, update ConfigurationUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&SampleModel{}).
		Where("id = ?", id).
		Updates(configurationValues(update))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func configurationValues(update ConfigurationUpdate) map[string]any {
	values := map[string]any{
		"package_id":    update.PackageID,
		"add_on_ids":    datatypes.NewJSONSlice(update.AddOnIDs),
		"pending_tests": datatypes.NewJSONSlice(update.PendingTests),
	}
	if update.SampleName != nil {
		values["sample_name"] = *update.SampleName
	}
	return values
}

// ApplyResults moves the given analytes from pending to completed under a
// row lock, issues the lab number if the sample does not have one yet, and
// derives the resulting status: completed when nothing is left pending,
// partial otherwise. Terminal samples reject further results.
func (r *GormSampleRepo) ApplyResults(ctx context.Context, id string, labNumber string, analytes []string) (*domain.Sample, error) {
	var updated *domain.Sample

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model SampleModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if model.Status.IsTerminal() {
			return fmt.Errorf("%w: sample %s is already %s", domain.ErrIllegalTransition, id, model.Status)
		}

		arrived := make(map[string]struct{}, len(analytes))
		for _, analyte := range analytes {
			arrived[analyte] = struct{}{}
		}

		completed := []string(model.CompletedTests)
		pending := make([]string, 0, len(model.PendingTests))
		for _, analyte := range model.PendingTests {
			if _, ok := arrived[analyte]; ok {
				completed = append(completed, analyte)
				continue
			}
			pending = append(pending, analyte)
		}

		status := domain.StatusPartial
		if len(pending) == 0 {
			status = domain.StatusCompleted
		}

		model.CompletedTests = datatypes.NewJSONSlice(completed)
		model.PendingTests = datatypes.NewJSONSlice(pending)
		model.Status = status
		model.UpdatedAt = time.Now().UTC()
		if model.LabNumber == nil && labNumber != "" {
			model.LabNumber = &labNumber
		}

		if err := tx.Save(&model).Error; err != nil {
			return err
		}

		updated = sampleModelToDomain(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
