package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/observability"
	"github.com/fieldops/job-scheduling/internal/repository"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

// ScheduleConflictService checks proposed worker assignments against their
// existing commitments. The result is advisory: nothing is reserved, so a
// concurrent save for the same worker can still land between the check and
// the caller's write.
type ScheduleConflictService struct {
	index         repository.ScheduleIndex
	logger        *zap.Logger
	metrics       *observability.Metrics
	lookupTimeout time.Duration
	concurrency   int
}

// ScheduleConflictDependencies bundles collaborators.
type ScheduleConflictDependencies struct {
	Index         repository.ScheduleIndex
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	LookupTimeout time.Duration
	Concurrency   int
}

// PersistedSchedule is what a job was last saved with.
type PersistedSchedule struct {
	Interval domain.Interval
	Workers  []domain.Worker
}

// ConflictCheckInput describes a proposed job schedule.
type ConflictCheckInput struct {
	// JobID is empty for a job that has not been saved yet.
	JobID    string
	Workers  []domain.Worker
	Interval domain.Interval
	Previous *PersistedSchedule
}

type workerResult struct {
	worker    domain.Worker
	conflicts []domain.Conflict
	err       error
}

// NewScheduleConflictService constructs the service.
func NewScheduleConflictService(deps ScheduleConflictDependencies) *ScheduleConflictService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ScheduleConflictService{
		index:         deps.Index,
		logger:        logger,
		metrics:       deps.Metrics,
		lookupTimeout: deps.LookupTimeout,
		concurrency:   concurrency,
	}
}

// CheckConflicts reports, per distinct worker, the existing assignments that
// overlap the proposed interval. A worker whose lookup fails is reported as
// UNKNOWN with a warning; only validation errors and caller cancellation are
// returned as errors.
func (s *ScheduleConflictService) CheckConflicts(ctx context.Context, input ConflictCheckInput) (domain.ConflictReport, error) {
	report := domain.NewConflictReport()
	if err := validateInterval(input.Interval); err != nil {
		return report, err
	}

	workers := domain.DistinctWorkers(input.Workers)
	if isUnchanged(input, workers) {
		report.ShortCircuited = true
		s.metrics.RecordConflictCheck(true, 0, 0)
		return report, nil
	}

	results := make([]workerResult, len(workers))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			results[i] = s.checkWorker(ctx, input.JobID, w, input.Interval)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	conflictCount, unknownCount := 0, 0
	for _, res := range results {
		id := res.worker.ID
		if res.err != nil {
			unknownCount++
			report.WorkerStatus[id] = domain.WorkerCheckUnknown
			report.Warnings = append(report.Warnings, domain.LookupWarning{
				WorkerID:   id,
				WorkerName: res.worker.Name,
				Message:    res.err.Error(),
				Retryable:  !errors.Is(res.err, context.Canceled),
			})
			s.logger.Warn("schedule lookup failed",
				zap.String("job_id", input.JobID),
				zap.String("worker_id", id),
				zap.Error(res.err))
			continue
		}
		if len(res.conflicts) == 0 {
			report.WorkerStatus[id] = domain.WorkerCheckClear
			continue
		}
		conflictCount += len(res.conflicts)
		report.WorkerStatus[id] = domain.WorkerCheckConflicting
		report.PerWorkerConflicts[id] = res.conflicts
		report.HasConflicts = true
	}

	s.metrics.RecordConflictCheck(false, conflictCount, unknownCount)
	return report, nil
}

func (s *ScheduleConflictService) checkWorker(ctx context.Context, jobID string, worker domain.Worker, proposed domain.Interval) workerResult {
	lookupCtx := ctx
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	existing, err := s.index.ListForWorker(lookupCtx, worker.ID, proposed)
	if err != nil {
		return workerResult{worker: worker, err: err}
	}

	others := existing[:0:0]
	for _, a := range existing {
		if jobID != "" && a.JobID == jobID {
			continue
		}
		if a.WorkerName == "" {
			a.WorkerName = worker.Name
		}
		others = append(others, a)
	}
	return workerResult{worker: worker, conflicts: DetectConflicts(proposed, others)}
}

func isUnchanged(input ConflictCheckInput, workers []domain.Worker) bool {
	if input.JobID == "" || input.Previous == nil {
		return false
	}
	return input.Previous.Interval.Equal(input.Interval) && domain.SameWorkers(input.Previous.Workers, workers)
}

func validateInterval(interval domain.Interval) error {
	if _, err := domain.NewInterval(interval.Start, interval.End); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{
			"start": interval.Start,
			"end":   interval.End,
		})
	}
	return nil
}
