package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agrolab/sample-engine/internal/catalog"
	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/filter"
	"github.com/agrolab/sample-engine/internal/pricing"
	"github.com/agrolab/sample-engine/internal/ratelimit"
	"github.com/agrolab/sample-engine/internal/repository"
)

// SampleService owns the sample lifecycle on the portal side: submission,
// lookup, filtered search, pending-only deletion, configuration changes, and
// lab-side status transitions.
type SampleService struct {
	samples repository.SampleRepository
	changes repository.ChangeRequestRepository
	filters *filter.Engine
	limiter ratelimit.RateLimiter
	logger  *zap.Logger
	now     func() time.Time
}

// ConfigurationChange is a requested test-configuration edit. Package and
// add-on references may be catalog ids or display names.
type ConfigurationChange struct {
	Package    string
	AddOns     []string
	SampleName *string
}

// ChangeResult reports what happened to a configuration change together with
// the billing impact computed from the snapshot the request was made against.
type ChangeResult struct {
	Outcome         domain.ChangeOutcome
	CostDelta       float64
	ChangeRequestID string
	Sample          *domain.Sample
}

func NewSampleService(
	samples repository.SampleRepository,
	changes repository.ChangeRequestRepository,
	filters *filter.Engine,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*SampleService, error) {
	if samples == nil {
		return nil, fmt.Errorf("sample repository is required")
	}
	if changes == nil {
		return nil, fmt.Errorf("change request repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if filters == nil {
		filters = filter.NewEngine(logger)
	}

	return &SampleService{
		samples: samples,
		changes: changes,
		filters: filters,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Submit registers a new sample for a farm. The selection is resolved
// against the mode's catalog and normalized to catalog ids, the pending
// analyte set is derived from it, and the sample starts as pending with no
// lab number.
func (s *SampleService) Submit(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sample == nil {
		return nil, fmt.Errorf("%w: sample is required", domain.ErrValidation)
	}

	sample.FarmID = strings.TrimSpace(sample.FarmID)
	if sample.FarmID == "" {
		return nil, fmt.Errorf("%w: farm id is required", domain.ErrValidation)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, sample.FarmID)
		if err != nil {
			return nil, fmt.Errorf("failed to check submission rate: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: farm %s exceeded the submission rate", domain.ErrRateLimited, sample.FarmID)
		}
	}

	if err := s.prepareForCreate(sample); err != nil {
		return nil, err
	}

	if err := s.samples.Create(ctx, sample); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%w: container %s is already registered for farm %s",
				domain.ErrConflict, sample.ContainerID, sample.FarmID)
		}
		return nil, err
	}

	s.logger.Info("sample submitted",
		zap.String("sampleId", sample.ID),
		zap.String("farmId", sample.FarmID),
		zap.String("sampleType", sample.SampleType),
		zap.String("packageId", sample.PackageID),
	)

	return sample, nil
}

func (s *SampleService) GetByID(ctx context.Context, id string) (*domain.Sample, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: sample id is required", domain.ErrValidation)
	}
	return s.samples.GetByID(ctx, strings.TrimSpace(id))
}

// Search returns the farm's samples matching the filter, newest first.
// Package references in the filter are normalized to catalog ids so that
// name-keyed callers match id-keyed records.
func (s *SampleService) Search(ctx context.Context, farmID string, mode domain.Mode, spec filter.Spec) ([]domain.Sample, error) {
	farmID = strings.TrimSpace(farmID)
	if farmID == "" {
		return nil, fmt.Errorf("%w: farm id is required", domain.ErrValidation)
	}

	cat, err := catalog.ForMode(mode)
	if err != nil {
		return nil, err
	}
	spec.Packages = normalizePackageRefs(cat, spec.Packages)

	samples, err := s.samples.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	return s.filters.Apply(s.now().UTC(), samples, spec), nil
}

// Delete removes a sample while it is still pending. Once the lab starts
// work the record is permanent and the delete fails with a conflict.
func (s *SampleService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: sample id is required", domain.ErrValidation)
	}
	return s.samples.DeletePending(ctx, strings.TrimSpace(id))
}

// TransitionStatus applies a lab-side lifecycle move. Only forward
// transitions are accepted; anything else fails with ErrIllegalTransition
// before touching storage.
func (s *SampleService) TransitionStatus(ctx context.Context, id string, next domain.Status) (*domain.Sample, error) {
	sample, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !sample.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, sample.Status, next)
	}

	if err := s.samples.TransitionStatus(ctx, sample.ID, sample.Status, next); err != nil {
		return nil, err
	}

	sample.Status = next
	return sample, nil
}

// ChangeConfiguration handles a test-configuration edit against an existing
// sample. Pending samples take the change immediately. Samples already in
// the lab get a recorded change request that is forwarded for approval.
// Terminal samples reject the change outright. The outcome is a value, not
// an error, and always carries the signed cost delta.
func (s *SampleService) ChangeConfiguration(ctx context.Context, sampleID string, change ConfigurationChange) (*ChangeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sample, err := s.GetByID(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.ForMode(sample.Mode)
	if err != nil {
		return nil, err
	}

	proposedPkg, proposedAddOns, err := resolveSelection(cat, change.Package, change.AddOns)
	if err != nil {
		return nil, err
	}

	delta, err := pricing.CostDelta(cat,
		pricing.Selection{Package: sample.PackageID, AddOns: sample.AddOnIDs},
		pricing.Selection{Package: proposedPkg, AddOns: proposedAddOns},
	)
	if err != nil {
		return nil, err
	}

	if name := change.SampleName; name != nil {
		trimmed := strings.TrimSpace(*name)
		change.SampleName = &trimmed
	}

	if sample.Status.IsTerminal() {
		s.logger.Info("configuration change rejected",
			zap.String("sampleId", sample.ID),
			zap.String("status", sample.Status.String()),
		)
		return &ChangeResult{Outcome: domain.ChangeRejected, CostDelta: delta, Sample: sample}, nil
	}

	if sample.Status == domain.StatusPending {
		update := repository.ConfigurationUpdate{
			PackageID:    proposedPkg,
			AddOnIDs:     proposedAddOns,
			SampleName:   change.SampleName,
			PendingTests: pendingAfterChange(cat, proposedPkg, proposedAddOns, sample.CompletedTests),
		}
		applied, err := s.samples.UpdateConfigurationIfPending(ctx, sample.ID, update)
		if err != nil {
			return nil, err
		}
		if applied {
			updated, err := s.samples.GetByID(ctx, sample.ID)
			if err != nil {
				return nil, err
			}
			return &ChangeResult{Outcome: domain.ChangeApplied, CostDelta: delta, Sample: updated}, nil
		}
		// Lost the race against the lab starting work; fall through to the
		// approval flow instead of failing the request.
	}

	request := &domain.ChangeRequest{
		ID:               uuid.NewString(),
		SampleID:         sample.ID,
		ProposedPackage:  proposedPkg,
		ProposedAddOnIDs: proposedAddOns,
		ProposedName:     change.SampleName,
		CostDelta:        delta,
		Status:           domain.ChangeRequestPending,
	}
	if err := s.changes.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("configuration change flagged for approval",
		zap.String("sampleId", sample.ID),
		zap.String("changeRequestId", request.ID),
		zap.Float64("costDelta", delta),
	)

	return &ChangeResult{
		Outcome:         domain.ChangeNeedsApproval,
		CostDelta:       delta,
		ChangeRequestID: request.ID,
		Sample:          sample,
	}, nil
}

// ChangeRequests lists the recorded configuration changes for a sample.
func (s *SampleService) ChangeRequests(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error) {
	if strings.TrimSpace(sampleID) == "" {
		return nil, fmt.Errorf("%w: sample id is required", domain.ErrValidation)
	}
	return s.changes.ListBySample(ctx, strings.TrimSpace(sampleID))
}

func (s *SampleService) prepareForCreate(sample *domain.Sample) error {
	sample.ContainerID = strings.TrimSpace(sample.ContainerID)
	if sample.ContainerID == "" {
		sample.ContainerID = uuid.NewString()
	}
	sample.SampleName = strings.TrimSpace(sample.SampleName)
	sample.SampleType = strings.TrimSpace(sample.SampleType)

	cat, err := catalog.ForMode(sample.Mode)
	if err != nil {
		return err
	}

	pkgID, addOnIDs, err := resolveSelection(cat, sample.PackageID, sample.AddOnIDs)
	if err != nil {
		return err
	}
	sample.PackageID = pkgID
	sample.AddOnIDs = addOnIDs

	pending, err := cat.Analytes(pkgID, addOnIDs)
	if err != nil {
		return err
	}

	sample.ID = strings.TrimSpace(sample.ID)
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	sample.LabNumber = ""
	sample.Status = domain.StatusPending
	sample.CompletedTests = nil
	sample.PendingTests = pending

	now := s.now().UTC()
	sample.CreatedAt = now
	sample.UpdatedAt = now

	return sample.Validate()
}

// resolveSelection resolves package and add-on references (ids or display
// names) to catalog ids, deduplicating add-ons while keeping their order.
func resolveSelection(cat *catalog.Catalog, packageRef string, addOnRefs []string) (string, []string, error) {
	pkg, err := cat.PackageByRef(packageRef)
	if err != nil {
		return "", nil, err
	}

	seen := make(map[string]struct{}, len(addOnRefs))
	addOnIDs := make([]string, 0, len(addOnRefs))
	for _, ref := range addOnRefs {
		addOn, err := cat.AddOnByRef(ref)
		if err != nil {
			return "", nil, err
		}
		if _, ok := seen[addOn.ID]; ok {
			continue
		}
		seen[addOn.ID] = struct{}{}
		addOnIDs = append(addOnIDs, addOn.ID)
	}

	return pkg.ID, addOnIDs, nil
}

// normalizePackageRefs maps display names to catalog ids where they resolve
// and keeps unknown references as-is, so that they match nothing instead of
// failing the search.
func normalizePackageRefs(cat *catalog.Catalog, refs []string) []string {
	if len(refs) == 0 {
		return refs
	}
	normalized := make([]string, len(refs))
	for i, ref := range refs {
		if pkg, err := cat.PackageByRef(ref); err == nil {
			normalized[i] = pkg.ID
			continue
		}
		normalized[i] = ref
	}
	return normalized
}

// pendingAfterChange recomputes the pending analyte set for a new selection,
// skipping analytes that already completed.
func pendingAfterChange(cat *catalog.Catalog, packageID string, addOnIDs []string, completed []string) []string {
	analytes, err := cat.Analytes(packageID, addOnIDs)
	if err != nil {
		// The selection was resolved against the same catalog already.
		return nil
	}

	done := make(map[string]struct{}, len(completed))
	for _, analyte := range completed {
		done[analyte] = struct{}{}
	}

	pending := make([]string, 0, len(analytes))
	for _, analyte := range analytes {
		if _, ok := done[analyte]; ok {
			continue
		}
		pending = append(pending, analyte)
	}
	return pending
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
