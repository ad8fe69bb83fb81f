package service

import (
	"context"

	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/notify"
	"github.com/agrolab/sample-engine/internal/queue"
	"github.com/agrolab/sample-engine/internal/ratelimit"
	"github.com/agrolab/sample-engine/internal/repository"
)

type fakeSampleRepo struct {
	createFn          func(ctx context.Context, s *domain.Sample) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Sample, error)
	listByFarmFn      func(ctx context.Context, farmID string) ([]domain.Sample, error)
	deletePendingFn   func(ctx context.Context, id string) error
	transitionFn      func(ctx context.Context, id string, from, to domain.Status) error
	updateIfPendingFn func(ctx context.Context, id string, update repository.ConfigurationUpdate) (bool, error)
	applyConfigFn     func(ctx context.Context, id string, update repository.ConfigurationUpdate) error
	applyResultsFn    func(ctx context.Context, id string, labNumber string, analytes []string) (*domain.Sample, error)
}

func (f *fakeSampleRepo) Create(ctx context.Context, s *domain.Sample) error {
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeSampleRepo) GetByID(ctx context.Context, id string) (*domain.Sample, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSampleRepo) ListByFarm(ctx context.Context, farmID string) ([]domain.Sample, error) {
	if f.listByFarmFn != nil {
		return f.listByFarmFn(ctx, farmID)
	}
	return nil, nil
}

func (f *fakeSampleRepo) DeletePending(ctx context.Context, id string) error {
	if f.deletePendingFn != nil {
		return f.deletePendingFn(ctx, id)
	}
	return nil
}

func (f *fakeSampleRepo) TransitionStatus(ctx context.Context, id string, from, to domain.Status) error {
	if f.transitionFn != nil {
		return f.transitionFn(ctx, id, from, to)
	}
	return nil
}

func (f *fakeSampleRepo) UpdateConfigurationIfPending(ctx context.Context, id string, update repository.ConfigurationUpdate) (bool, error) {
	if f.updateIfPendingFn != nil {
		return f.updateIfPendingFn(ctx, id, update)
	}
	return true, nil
}

func (f *fakeSampleRepo) ApplyConfiguration(ctx context.Context, id string, update repository.ConfigurationUpdate) error {
	if f.applyConfigFn != nil {
		return f.applyConfigFn(ctx, id, update)
	}
	return nil
}

func (f *fakeSampleRepo) ApplyResults(ctx context.Context, id string, labNumber string, analytes []string) (*domain.Sample, error) {
	if f.applyResultsFn != nil {
		return f.applyResultsFn(ctx, id, labNumber, analytes)
	}
	return nil, domain.ErrNotFound
}

var _ repository.SampleRepository = (*fakeSampleRepo)(nil)

type fakeChangeRepo struct {
	createFn          func(ctx context.Context, c *domain.ChangeRequest) error
	getByIDFn         func(ctx context.Context, id string) (*domain.ChangeRequest, error)
	listBySampleFn    func(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error)
	getUndispatchedFn func(ctx context.Context, limit int) ([]domain.ChangeRequest, error)
	markDispatchedFn  func(ctx context.Context, id string) error
	resolveFn         func(ctx context.Context, id string, status domain.ChangeRequestStatus) (*domain.ChangeRequest, error)
}

func (f *fakeChangeRepo) Create(ctx context.Context, c *domain.ChangeRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return nil
}

func (f *fakeChangeRepo) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeChangeRepo) ListBySample(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error) {
	if f.listBySampleFn != nil {
		return f.listBySampleFn(ctx, sampleID)
	}
	return nil, nil
}

func (f *fakeChangeRepo) GetUndispatched(ctx context.Context, limit int) ([]domain.ChangeRequest, error) {
	if f.getUndispatchedFn != nil {
		return f.getUndispatchedFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeChangeRepo) MarkDispatched(ctx context.Context, id string) error {
	if f.markDispatchedFn != nil {
		return f.markDispatchedFn(ctx, id)
	}
	return nil
}

func (f *fakeChangeRepo) Resolve(ctx context.Context, id string, status domain.ChangeRequestStatus) (*domain.ChangeRequest, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, id, status)
	}
	return nil, domain.ErrNotFound
}

var _ repository.ChangeRequestRepository = (*fakeChangeRepo)(nil)

type fakeResultEventRepo struct {
	createFn       func(ctx context.Context, e *domain.ResultEvent) error
	listBySampleFn func(ctx context.Context, sampleID string) ([]domain.ResultEvent, error)
}

func (f *fakeResultEventRepo) Create(ctx context.Context, e *domain.ResultEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeResultEventRepo) ListBySample(ctx context.Context, sampleID string) ([]domain.ResultEvent, error) {
	if f.listBySampleFn != nil {
		return f.listBySampleFn(ctx, sampleID)
	}
	return nil, nil
}

var _ repository.ResultEventRepository = (*fakeResultEventRepo)(nil)

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.ApprovalMessage) error
	closeFn   func() error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.ApprovalMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

var _ queue.Publisher = (*fakePublisher)(nil)

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

var _ queue.Consumer = (*fakeConsumer)(nil)

type fakeNotifier struct {
	sampleCompletedFn func(ctx context.Context, sample domain.Sample) error
}

func (f *fakeNotifier) SampleCompleted(ctx context.Context, sample domain.Sample) error {
	if f.sampleCompletedFn != nil {
		return f.sampleCompletedFn(ctx, sample)
	}
	return nil
}

var _ notify.Notifier = (*fakeNotifier)(nil)

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)
