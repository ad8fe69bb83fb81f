package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrolab/sample-engine/internal/catalog"
	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/notify"
	"github.com/agrolab/sample-engine/internal/observability"
	"github.com/agrolab/sample-engine/internal/queue"
	"github.com/agrolab/sample-engine/internal/repository"
)

const minWorkerConcurrency = 1

// ResultWorker consumes the lab's queues: analyte results on lab.results and
// change-request verdicts on lab.decisions. Messages that can never be
// processed dead-letter; everything else is retried through redelivery.
type ResultWorker struct {
	samples     repository.SampleRepository
	changes     repository.ChangeRequestRepository
	events      repository.ResultEventRepository
	consumer    queue.Consumer
	notifier    notify.Notifier
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewResultWorker(
	samples repository.SampleRepository,
	changes repository.ChangeRequestRepository,
	events repository.ResultEventRepository,
	consumer queue.Consumer,
	notifier notify.Notifier,
	concurrency int,
	logger *zap.Logger,
) (*ResultWorker, error) {
	if samples == nil {
		return nil, fmt.Errorf("sample repository is required")
	}
	if changes == nil {
		return nil, fmt.Errorf("change request repository is required")
	}
	if events == nil {
		return nil, fmt.Errorf("result event repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResultWorker{
		samples:     samples,
		changes:     changes,
		events:      events,
		consumer:    consumer,
		notifier:    notifier,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (w *ResultWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the lab queues until context cancellation. Workers are
// spread round-robin over the queues.
func (w *ResultWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.ConsumerQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no consumer queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := w.consumer.Consume(groupCtx, queueName, w.handlerFor(queueName))
			if err != nil {
				w.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *ResultWorker) handlerFor(queueName string) queue.MessageHandler {
	if queueName == queue.DecisionsQueue {
		return w.handleDecision
	}
	return w.handleResult
}

func (w *ResultWorker) handleResult(ctx context.Context, body []byte) error {
	if w.metrics != nil {
		w.metrics.IncWorkerInFlight(queue.ResultsQueue)
		defer w.metrics.DecWorkerInFlight(queue.ResultsQueue)
	}

	var msg queue.ResultMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: malformed result message: %v", queue.ErrDiscard, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: invalid result message: %v", queue.ErrDiscard, err)
	}

	sample, err := w.samples.ApplyResults(ctx, msg.SampleID, msg.LabNumber, msg.Analytes)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: sample %s not found", queue.ErrDiscard, msg.SampleID)
	case errors.Is(err, domain.ErrIllegalTransition):
		// Redelivery after the sample completed. The results are already
		// applied; only the completion callback may still be owed.
		existing, getErr := w.samples.GetByID(ctx, msg.SampleID)
		if getErr != nil {
			return fmt.Errorf("%w: sample %s is terminal", queue.ErrDiscard, msg.SampleID)
		}
		return w.notifyCompleted(ctx, existing)
	case err != nil:
		return fmt.Errorf("failed to apply results for sample %s: %w", msg.SampleID, err)
	}

	event := &domain.ResultEvent{
		ID:          uuid.NewString(),
		SampleID:    sample.ID,
		Analytes:    msg.Analytes,
		StatusAfter: sample.Status,
		CreatedAt:   w.now().UTC(),
	}
	if err := w.events.Create(ctx, event); err != nil {
		w.logger.Error("failed to record result event",
			zap.String("sampleId", sample.ID),
			zap.Error(err),
		)
	}

	if w.metrics != nil {
		w.metrics.IncResultApplied(sample.Status.String())
	}

	w.logger.Info("results applied",
		zap.String("sampleId", sample.ID),
		zap.String("status", sample.Status.String()),
		zap.Int("analytes", len(msg.Analytes)),
	)

	return w.notifyCompleted(ctx, sample)
}

// notifyCompleted fires the completion callback for completed samples.
// Transient delivery failures requeue the message; permanent ones are logged
// and acked so a broken endpoint cannot wedge the queue.
func (w *ResultWorker) notifyCompleted(ctx context.Context, sample *domain.Sample) error {
	if sample == nil || sample.Status != domain.StatusCompleted || w.notifier == nil {
		return nil
	}

	start := w.now()
	err := w.notifier.SampleCompleted(ctx, *sample)
	if w.metrics != nil {
		w.metrics.ObserveWebhookDeliveryDuration(w.now().Sub(start))
	}
	if err == nil {
		return nil
	}

	if notify.IsTransient(err) {
		return fmt.Errorf("completion callback for sample %s failed: %w", sample.ID, err)
	}

	w.logger.Warn("completion callback permanently failed",
		zap.String("sampleId", sample.ID),
		zap.Error(err),
	)
	return nil
}

func (w *ResultWorker) handleDecision(ctx context.Context, body []byte) error {
	if w.metrics != nil {
		w.metrics.IncWorkerInFlight(queue.DecisionsQueue)
		defer w.metrics.DecWorkerInFlight(queue.DecisionsQueue)
	}

	var msg queue.DecisionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: malformed decision message: %v", queue.ErrDiscard, err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: invalid decision message: %v", queue.ErrDiscard, err)
	}

	status := domain.ChangeRequestDeclined
	if msg.Approved {
		status = domain.ChangeRequestApproved
	}

	request, err := w.changes.Resolve(ctx, msg.ChangeRequestID, status)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: change request %s not found", queue.ErrDiscard, msg.ChangeRequestID)
	case errors.Is(err, domain.ErrConflict):
		// Already decided; a redelivered verdict is a no-op.
		w.logger.Info("decision already applied",
			zap.String("changeRequestId", msg.ChangeRequestID),
		)
		return nil
	case err != nil:
		return fmt.Errorf("failed to resolve change request %s: %w", msg.ChangeRequestID, err)
	}

	if !msg.Approved {
		w.logger.Info("change request declined",
			zap.String("changeRequestId", request.ID),
			zap.String("sampleId", request.SampleID),
		)
		return nil
	}

	if err := w.applyApprovedChange(ctx, request); err != nil {
		return err
	}

	w.logger.Info("change request approved and applied",
		zap.String("changeRequestId", request.ID),
		zap.String("sampleId", request.SampleID),
		zap.Float64("costDelta", request.CostDelta),
	)
	return nil
}

func (w *ResultWorker) applyApprovedChange(ctx context.Context, request *domain.ChangeRequest) error {
	sample, err := w.samples.GetByID(ctx, request.SampleID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: sample %s for change request %s not found",
			queue.ErrDiscard, request.SampleID, request.ID)
	}
	if err != nil {
		return err
	}

	cat, err := catalog.ForMode(sample.Mode)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrDiscard, err)
	}

	update := repository.ConfigurationUpdate{
		PackageID:    request.ProposedPackage,
		AddOnIDs:     request.ProposedAddOnIDs,
		SampleName:   request.ProposedName,
		PendingTests: pendingAfterChange(cat, request.ProposedPackage, request.ProposedAddOnIDs, sample.CompletedTests),
	}
	if err := w.samples.ApplyConfiguration(ctx, sample.ID, update); err != nil {
		return fmt.Errorf("failed to apply approved configuration to sample %s: %w", sample.ID, err)
	}
	return nil
}
