package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/events"
	"github.com/fieldops/job-scheduling/internal/observability"
	"github.com/fieldops/job-scheduling/internal/repository"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

const uniqueViolation = "23505"

// JobService coordinates the job save workflow.
type JobService struct {
	jobs        repository.JobRepository
	staff       repository.StaffRepository
	conflicts   *ScheduleConflictService
	invalidator repository.ScheduleInvalidator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	location    *time.Location
}

// JobDependencies bundles collaborators for the job service.
type JobDependencies struct {
	JobRepo     repository.JobRepository
	StaffRepo   repository.StaffRepository
	Conflicts   *ScheduleConflictService
	Invalidator repository.ScheduleInvalidator
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Location    *time.Location
}

// JobSaveInput describes a job create or edit.
type JobSaveInput struct {
	ID           string
	Title        string
	CustomerName string
	Schedule     domain.Schedule
	Workers      []domain.Worker
	// OverrideConflicts saves even when the conflict report asks for confirmation.
	OverrideConflicts bool
	// ExpectedVersion guards edits against concurrent job updates when non-zero.
	ExpectedVersion int64
}

// JobSaveResult carries the saved job and the report it was checked against.
type JobSaveResult struct {
	Job    *domain.Job
	Report domain.ConflictReport
}

// NewJobService constructs the service.
func NewJobService(deps JobDependencies) *JobService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &JobService{
		jobs:        deps.JobRepo,
		staff:       deps.StaffRepo,
		conflicts:   deps.Conflicts,
		invalidator: deps.Invalidator,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		location:    loc,
	}
}

// GetJob fetches a job by number.
func (s *JobService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "job", map[string]any{"job_id": id})
	}
	return job, nil
}

// CheckSchedule runs the advisory conflict check without saving anything.
func (s *JobService) CheckSchedule(ctx context.Context, actor *domain.StaffMember, jobID string, schedule domain.Schedule, workers []domain.Worker) (domain.ConflictReport, error) {
	if err := requireRole(actor, domain.StaffRoleDispatcher, domain.StaffRoleAdmin); err != nil {
		return domain.ConflictReport{}, err
	}
	interval, err := s.interval(schedule)
	if err != nil {
		return domain.ConflictReport{}, err
	}
	input := ConflictCheckInput{JobID: jobID, Workers: workers, Interval: interval}
	if jobID != "" {
		existing, err := s.GetJob(ctx, jobID)
		if err != nil {
			return domain.ConflictReport{}, err
		}
		input.Previous = s.persistedSchedule(existing)
	}
	return s.conflicts.CheckConflicts(ctx, input)
}

// CreateJob validates, conflict-checks and saves a new job.
func (s *JobService) CreateJob(ctx context.Context, actor *domain.StaffMember, input JobSaveInput) (*JobSaveResult, error) {
	if err := requireRole(actor, domain.StaffRoleDispatcher, domain.StaffRoleAdmin); err != nil {
		return nil, err
	}
	interval, workers, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:              strings.TrimSpace(input.ID),
		Title:           strings.TrimSpace(input.Title),
		CustomerName:    strings.TrimSpace(input.CustomerName),
		Schedule:        input.Schedule,
		AssignedWorkers: workers,
		Aggregate: domain.JobAggregate{
			SubStatus: map[domain.FollowUpType]bool{},
			FollowUps: map[string]domain.FollowUpRef{},
		},
	}
	if job.ID == "" {
		job.ID = generateJobNumber()
	}

	report, err := s.conflicts.CheckConflicts(ctx, ConflictCheckInput{Workers: workers, Interval: interval})
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, actor, job.ID, report, input.OverrideConflicts); err != nil {
		return &JobSaveResult{Report: report}, err
	}

	if err := s.jobs.Create(ctx, job, interval); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.NewConflict("job number already exists", map[string]any{"job_id": job.ID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	s.invalidate(ctx, job.ID, workerIDs(workers))
	s.publish(ctx, actor, job.ID, events.EventJobScheduled, events.JobScheduledPayload{
		Interval: interval,
		Workers:  workers,
		Created:  true,
	})
	return &JobSaveResult{Job: job, Report: report}, nil
}

// UpdateJob edits an existing job. Unchanged schedules skip the conflict check.
func (s *JobService) UpdateJob(ctx context.Context, actor *domain.StaffMember, jobID string, input JobSaveInput) (*JobSaveResult, error) {
	if err := requireRole(actor, domain.StaffRoleDispatcher, domain.StaffRoleAdmin); err != nil {
		return nil, err
	}
	interval, workers, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != 0 && input.ExpectedVersion != job.Version {
		return nil, apperrors.NewConflict(repository.ErrStaleAggregate.Error(), map[string]any{
			"job_id":           jobID,
			"expected_version": input.ExpectedVersion,
			"current_version":  job.Version,
		})
	}

	report, err := s.conflicts.CheckConflicts(ctx, ConflictCheckInput{
		JobID:    job.ID,
		Workers:  workers,
		Interval: interval,
		Previous: s.persistedSchedule(job),
	})
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, actor, job.ID, report, input.OverrideConflicts); err != nil {
		return &JobSaveResult{Report: report}, err
	}

	previousWorkers := workerIDs(job.AssignedWorkers)
	if title := strings.TrimSpace(input.Title); title != "" {
		job.Title = title
	}
	if customer := strings.TrimSpace(input.CustomerName); customer != "" {
		job.CustomerName = customer
	}
	job.Schedule = input.Schedule
	job.AssignedWorkers = workers

	if err := s.jobs.Update(ctx, job, interval); err != nil {
		if errors.Is(err, repository.ErrStaleAggregate) {
			return nil, apperrors.NewConflict(err.Error(), map[string]any{"job_id": job.ID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	if !report.ShortCircuited {
		s.invalidate(ctx, job.ID, append(previousWorkers, workerIDs(workers)...))
		s.publish(ctx, actor, job.ID, events.EventJobScheduled, events.JobScheduledPayload{
			Interval: interval,
			Workers:  workers,
		})
	}
	return &JobSaveResult{Job: job, Report: report}, nil
}

// ReconcileAggregate rebuilds a job's follow-up count and flags from its follow-up map.
func (s *JobService) ReconcileAggregate(ctx context.Context, actor *domain.StaffMember, jobID string) (*domain.Job, error) {
	if err := requireRole(actor, domain.StaffRoleAdmin); err != nil {
		return nil, err
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	next := RecomputeAggregate(job.Aggregate)
	version, err := s.jobs.SaveAggregate(ctx, job.ID, next, job.Version)
	if err != nil {
		if errors.Is(err, repository.ErrStaleAggregate) {
			return nil, apperrors.NewConflict(err.Error(), map[string]any{"job_id": job.ID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	if next.FollowUpCount != job.Aggregate.FollowUpCount {
		s.logger.Info("job aggregate reconciled",
			zap.String("job_id", job.ID),
			zap.Int("old_count", job.Aggregate.FollowUpCount),
			zap.Int("new_count", next.FollowUpCount))
	}
	job.Aggregate = next
	job.Version = version
	return job, nil
}

func (s *JobService) prepare(ctx context.Context, input JobSaveInput) (domain.Interval, []domain.Worker, error) {
	interval, err := s.interval(input.Schedule)
	if err != nil {
		return domain.Interval{}, nil, err
	}
	workers, err := s.resolveWorkers(ctx, input.Workers)
	if err != nil {
		return domain.Interval{}, nil, err
	}
	return interval, workers, nil
}

func (s *JobService) interval(schedule domain.Schedule) (domain.Interval, error) {
	interval, err := schedule.Interval(s.location)
	if err != nil {
		return domain.Interval{}, apperrors.NewValidationError(err.Error(), map[string]any{
			"start_date": schedule.StartDate,
			"start_time": schedule.StartTime,
			"end_date":   schedule.EndDate,
			"end_time":   schedule.EndTime,
		})
	}
	return interval, nil
}

// resolveWorkers requires every worker to be an active technician and takes names from the staff record.
func (s *JobService) resolveWorkers(ctx context.Context, requested []domain.Worker) ([]domain.Worker, error) {
	workers := domain.DistinctWorkers(requested)
	if len(workers) == 0 || s.staff == nil {
		return workers, nil
	}
	role := domain.StaffRoleTechnician
	active := true
	staff, err := s.staff.List(ctx, repository.StaffFilter{
		Role:   &role,
		IDs:    workerIDs(workers),
		Active: &active,
		Limit:  len(workers),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	names := make(map[string]string, len(staff))
	for _, member := range staff {
		names[member.ID] = member.Name
	}
	var unknown []string
	for i := range workers {
		name, ok := names[workers[i].ID]
		if !ok {
			unknown = append(unknown, workers[i].ID)
			continue
		}
		workers[i].Name = name
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("unknown or inactive workers", map[string]any{"worker_ids": unknown})
	}
	return workers, nil
}

func (s *JobService) persistedSchedule(job *domain.Job) *PersistedSchedule {
	interval, err := job.Schedule.Interval(s.location)
	if err != nil {
		return nil
	}
	return &PersistedSchedule{Interval: interval, Workers: job.AssignedWorkers}
}

func (s *JobService) confirm(ctx context.Context, actor *domain.StaffMember, jobID string, report domain.ConflictReport, override bool) error {
	if !report.RequiresConfirmation() {
		return nil
	}
	if !override {
		return apperrors.NewScheduleConflict(map[string]any{"job_id": jobID, "report": report})
	}

	s.metrics.RecordOverride()
	payload := events.JobConflictsOverriddenPayload{}
	for id, status := range report.WorkerStatus {
		switch status {
		case domain.WorkerCheckConflicting:
			payload.ConflictingWorkers = append(payload.ConflictingWorkers, id)
		case domain.WorkerCheckUnknown:
			payload.UnverifiedWorkers = append(payload.UnverifiedWorkers, id)
		}
	}
	sort.Strings(payload.ConflictingWorkers)
	sort.Strings(payload.UnverifiedWorkers)
	s.logger.Info("schedule conflicts overridden",
		zap.String("job_id", jobID),
		zap.Strings("conflicting_workers", payload.ConflictingWorkers),
		zap.Strings("unverified_workers", payload.UnverifiedWorkers))
	s.publish(ctx, actor, jobID, events.EventJobConflictsOverridden, payload)
	return nil
}

func (s *JobService) invalidate(ctx context.Context, jobID string, ids []string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateWorkers(ctx, ids); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.String("job_id", jobID), zap.Strings("worker_ids", ids), zap.Error(err))
	}
}

func (s *JobService) publish(ctx context.Context, actor *domain.StaffMember, jobID string, eventType events.EventType, payload interface{}) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    eventType,
		JobID:   jobID,
		Actor:   staffActor(actor),
		Payload: payload,
	})
}

func workerIDs(workers []domain.Worker) []string {
	ids := make([]string, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.ID)
	}
	return ids
}

func generateJobNumber() string {
	return "JOB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func mapLookupError(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
