package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/events"
	"github.com/fieldops/job-scheduling/internal/observability"
	"github.com/fieldops/job-scheduling/internal/repository"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

const defaultCommitAttempts = 3

// FollowUpService persists follow-up lifecycle changes together with the
// owning job's aggregate.
type FollowUpService struct {
	jobs       repository.JobRepository
	followUps  repository.FollowUpRepository
	lifecycle  *FollowUpLifecycle
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	attempts   int
}

// FollowUpDependencies bundles collaborators for the follow-up service.
type FollowUpDependencies struct {
	JobRepo      repository.JobRepository
	FollowUpRepo repository.FollowUpRepository
	Lifecycle    *FollowUpLifecycle
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	// CommitAttempts bounds retries after the job aggregate moved underneath a commit.
	CommitAttempts int
}

// FollowUpResult is a committed follow-up with the job aggregate it produced.
type FollowUpResult struct {
	FollowUp   domain.FollowUp
	Aggregate  domain.JobAggregate
	JobVersion int64
}

// NewFollowUpService constructs the service.
func NewFollowUpService(deps FollowUpDependencies) *FollowUpService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.CommitAttempts
	if attempts <= 0 {
		attempts = defaultCommitAttempts
	}
	return &FollowUpService{
		jobs:       deps.JobRepo,
		followUps:  deps.FollowUpRepo,
		lifecycle:  deps.Lifecycle,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		attempts:   attempts,
	}
}

// CreateFollowUp raises a follow-up on a job as the given technician.
func (s *FollowUpService) CreateFollowUp(ctx context.Context, actor *domain.StaffMember, input FollowUpCreateInput) (*FollowUpResult, error) {
	if err := requireRole(actor, domain.StaffRoleTechnician, domain.StaffRoleAdmin); err != nil {
		return nil, err
	}
	fu, delta, err := s.lifecycle.Create(input, actor.Actor())
	if err != nil {
		return nil, err
	}

	result, err := s.commit(ctx, fu.JobID, func(job *domain.Job) (repository.FollowUpCommit, error) {
		if err := GuardDelta(job.Aggregate, delta); err != nil {
			return repository.FollowUpCommit{}, err
		}
		return repository.FollowUpCommit{
			FollowUp:           &fu,
			NewHistory:         fu.History,
			Aggregate:          ApplyAggregateDelta(job.Aggregate, delta),
			ExpectedJobVersion: job.Version,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(fu.Status))
	s.logger.Info("follow-up created",
		zap.String("job_id", fu.JobID),
		zap.String("follow_up_id", fu.ID),
		zap.String("type", string(fu.Type)))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:  events.EventFollowUpCreated,
		JobID: fu.JobID,
		Actor: staffActor(actor),
		Payload: events.FollowUpCreatedPayload{
			FollowUpID: fu.ID,
			Type:       fu.Type,
			Priority:   fu.Priority,
		},
	})
	return result, nil
}

// TransitionFollowUp moves a follow-up to next as the given customer service officer.
func (s *FollowUpService) TransitionFollowUp(ctx context.Context, actor *domain.StaffMember, followUpID string, next domain.FollowUpStatus, notes string) (*FollowUpResult, error) {
	if err := requireRole(actor, domain.StaffRoleCSO, domain.StaffRoleAdmin); err != nil {
		return nil, err
	}

	var previous domain.FollowUpStatus
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		current, err := s.followUps.GetByID(ctx, followUpID)
		if err != nil {
			return nil, mapLookupError(err, "follow_up", map[string]any{"follow_up_id": followUpID})
		}
		job, err := s.jobs.GetByID(ctx, current.JobID)
		if err != nil {
			return nil, mapLookupError(err, "job", map[string]any{"job_id": current.JobID})
		}

		updated, delta, err := s.lifecycle.Transition(*current, next, actor.Actor(), notes)
		if err != nil {
			return nil, err
		}
		if err := GuardDelta(job.Aggregate, delta); err != nil {
			return nil, err
		}

		aggregate := ApplyAggregateDelta(job.Aggregate, delta)
		previous = current.Status
		version, err := s.followUps.Commit(ctx, repository.FollowUpCommit{
			FollowUp:           &updated,
			PreviousStatus:     &previous,
			NewHistory:         updated.History[len(current.History):],
			Aggregate:          aggregate,
			ExpectedJobVersion: job.Version,
		})
		if errors.Is(err, repository.ErrStaleAggregate) {
			lastErr = err
			s.logger.Debug("follow-up commit raced, retrying",
				zap.String("follow_up_id", followUpID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, apperrors.NewPersistenceFailure(err)
		}

		s.metrics.RecordTransition(string(next))
		s.logger.Info("follow-up status changed",
			zap.String("job_id", updated.JobID),
			zap.String("follow_up_id", updated.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(next)))
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:  events.EventFollowUpStatusChanged,
			JobID: updated.JobID,
			Actor: staffActor(actor),
			Payload: events.FollowUpStatusChangedPayload{
				FollowUpID: updated.ID,
				Type:       updated.Type,
				OldStatus:  previous,
				NewStatus:  next,
				Notes:      notes,
			},
		})
		return &FollowUpResult{FollowUp: updated, Aggregate: aggregate, JobVersion: version}, nil
	}
	return nil, apperrors.NewConflict(lastErr.Error(), map[string]any{"follow_up_id": followUpID})
}

// GetFollowUp returns a follow-up with its history.
func (s *FollowUpService) GetFollowUp(ctx context.Context, id string) (*domain.FollowUp, error) {
	fu, err := s.followUps.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "follow_up", map[string]any{"follow_up_id": id})
	}
	return fu, nil
}

// ListJobFollowUps returns a job's follow-ups, oldest first.
func (s *FollowUpService) ListJobFollowUps(ctx context.Context, jobID string) ([]domain.FollowUp, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, mapLookupError(err, "job", map[string]any{"job_id": jobID})
	}
	items, err := s.followUps.ListByJob(ctx, jobID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// commit reloads the job and rebuilds the commit until the job version holds.
func (s *FollowUpService) commit(ctx context.Context, jobID string, build func(*domain.Job) (repository.FollowUpCommit, error)) (*FollowUpResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		job, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return nil, mapLookupError(err, "job", map[string]any{"job_id": jobID})
		}
		c, err := build(job)
		if err != nil {
			return nil, err
		}
		version, err := s.followUps.Commit(ctx, c)
		if errors.Is(err, repository.ErrStaleAggregate) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, apperrors.NewPersistenceFailure(err)
		}
		return &FollowUpResult{FollowUp: *c.FollowUp, Aggregate: c.Aggregate, JobVersion: version}, nil
	}
	return nil, apperrors.NewConflict(lastErr.Error(), map[string]any{"job_id": jobID})
}
