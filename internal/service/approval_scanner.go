package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agrolab/sample-engine/internal/observability"
	"github.com/agrolab/sample-engine/internal/queue"
	"github.com/agrolab/sample-engine/internal/repository"
)

const (
	defaultScanInterval = 5 * time.Second
	defaultScanLimit    = 100
)

// ApprovalScanner periodically forwards undispatched change requests to the
// lab's approval queue. Publishing and marking are separate steps, so a
// crash between them means at worst a duplicate on lab.approvals, never a
// lost request.
type ApprovalScanner struct {
	changes   repository.ChangeRequestRepository
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	limit     int
}

func NewApprovalScanner(
	changes repository.ChangeRequestRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*ApprovalScanner, error) {
	if changes == nil {
		return nil, fmt.Errorf("change request repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultScanInterval
	}
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ApprovalScanner{
		changes:   changes,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}, nil
}

func (s *ApprovalScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *ApprovalScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanUndispatched(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("approval scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanUndispatched(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("approval scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *ApprovalScanner) scanUndispatched(ctx context.Context) error {
	requests, err := s.changes.GetUndispatched(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch undispatched change requests: %w", err)
	}

	for i := range requests {
		request := requests[i]
		msg := queue.ApprovalMessage{
			ChangeRequestID:  request.ID,
			SampleID:         request.SampleID,
			ProposedPackage:  request.ProposedPackage,
			ProposedAddOnIDs: request.ProposedAddOnIDs,
			CostDelta:        request.CostDelta,
		}

		if err := s.publisher.Publish(ctx, queue.ApprovalsQueue, msg); err != nil {
			s.logger.Error("failed to forward change request for approval",
				zap.String("changeRequestId", request.ID),
				zap.String("sampleId", request.SampleID),
				zap.Error(err),
			)
			continue
		}

		if err := s.changes.MarkDispatched(ctx, request.ID); err != nil {
			s.logger.Error("failed to mark change request as dispatched",
				zap.String("changeRequestId", request.ID),
				zap.Error(err),
			)
			continue
		}

		if s.metrics != nil {
			s.metrics.IncApprovalDispatched()
		}
		s.logger.Info("change request forwarded for approval",
			zap.String("changeRequestId", request.ID),
			zap.String("sampleId", request.SampleID),
			zap.Float64("costDelta", request.CostDelta),
		)
	}

	return nil
}
