package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// ErrStaleAggregate is returned when a job changed since it was read.
var ErrStaleAggregate = errors.New("job was modified concurrently")

// JobRepository encapsulates job persistence.
type JobRepository interface {
	// Create inserts the job and its assignments in one transaction.
	Create(ctx context.Context, job *domain.Job, interval domain.Interval) error
	// Update rewrites the job and replaces its assignments when job.Version still matches.
	Update(ctx context.Context, job *domain.Job, interval domain.Interval) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	// SaveAggregate stores a recomputed aggregate when expectedVersion still matches.
	SaveAggregate(ctx context.Context, jobID string, aggregate domain.JobAggregate, expectedVersion int64) (int64, error)
}

type jobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository instantiates repository.
func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepository{pool: pool}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.Job, interval domain.Interval) error {
	subStatus, followUps, err := encodeAggregate(job.Aggregate)
	if err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO jobs (id, title, customer_name, start_date, end_date, start_time, end_time,
                          assigned_workers, follow_up_count, sub_status, follow_ups, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)
        RETURNING version, created_at, updated_at`
	workers, err := json.Marshal(job.AssignedWorkers)
	if err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, query,
		job.ID,
		job.Title,
		job.CustomerName,
		job.Schedule.StartDate,
		job.Schedule.EndDate,
		job.Schedule.StartTime,
		job.Schedule.EndTime,
		workers,
		job.Aggregate.FollowUpCount,
		subStatus,
		followUps,
	).Scan(&job.Version, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return err
	}
	if err := replaceAssignments(ctx, tx, job.ID, job.AssignedWorkers, interval); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *jobRepository) Update(ctx context.Context, job *domain.Job, interval domain.Interval) error {
	workers, err := json.Marshal(job.AssignedWorkers)
	if err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE jobs SET title=$1, customer_name=$2, start_date=$3, end_date=$4, start_time=$5, end_time=$6,
            assigned_workers=$7, version=version+1, updated_at=NOW()
        WHERE id=$8 AND version=$9
        RETURNING version, updated_at`
	err = tx.QueryRow(ctx, query,
		job.Title,
		job.CustomerName,
		job.Schedule.StartDate,
		job.Schedule.EndDate,
		job.Schedule.StartTime,
		job.Schedule.EndTime,
		workers,
		job.ID,
		job.Version,
	).Scan(&job.Version, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleAggregate
	}
	if err != nil {
		return err
	}
	if err := replaceAssignments(ctx, tx, job.ID, job.AssignedWorkers, interval); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	const query = `
        SELECT id, title, customer_name, start_date, end_date, start_time, end_time,
               assigned_workers, follow_up_count, sub_status, follow_ups, version, created_at, updated_at
        FROM jobs WHERE id=$1`
	var (
		job                          domain.Job
		workers, subStatus, followUp []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Title,
		&job.CustomerName,
		&job.Schedule.StartDate,
		&job.Schedule.EndDate,
		&job.Schedule.StartTime,
		&job.Schedule.EndTime,
		&workers,
		&job.Aggregate.FollowUpCount,
		&subStatus,
		&followUp,
		&job.Version,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(workers) > 0 {
		if err := json.Unmarshal(workers, &job.AssignedWorkers); err != nil {
			return nil, fmt.Errorf("decode assigned workers: %w", err)
		}
	}
	aggregate, err := decodeAggregate(job.Aggregate.FollowUpCount, subStatus, followUp)
	if err != nil {
		return nil, err
	}
	job.Aggregate = aggregate
	return &job, nil
}

func (r *jobRepository) SaveAggregate(ctx context.Context, jobID string, aggregate domain.JobAggregate, expectedVersion int64) (int64, error) {
	var version int64
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		version, err = updateAggregate(ctx, tx, jobID, aggregate, expectedVersion)
		return err
	})
	return version, err
}

func updateAggregate(ctx context.Context, tx pgx.Tx, jobID string, aggregate domain.JobAggregate, expectedVersion int64) (int64, error) {
	subStatus, followUps, err := encodeAggregate(aggregate)
	if err != nil {
		return 0, err
	}
	const query = `
        UPDATE jobs SET follow_up_count=$1, sub_status=$2, follow_ups=$3, version=version+1, updated_at=NOW()
        WHERE id=$4 AND version=$5
        RETURNING version`
	var version int64
	err = tx.QueryRow(ctx, query, aggregate.FollowUpCount, subStatus, followUps, jobID, expectedVersion).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStaleAggregate
	}
	return version, err
}

func encodeAggregate(a domain.JobAggregate) ([]byte, []byte, error) {
	subStatus := a.SubStatus
	if subStatus == nil {
		subStatus = map[domain.FollowUpType]bool{}
	}
	followUps := a.FollowUps
	if followUps == nil {
		followUps = map[string]domain.FollowUpRef{}
	}
	s, err := json.Marshal(subStatus)
	if err != nil {
		return nil, nil, fmt.Errorf("encode sub status: %w", err)
	}
	f, err := json.Marshal(followUps)
	if err != nil {
		return nil, nil, fmt.Errorf("encode follow ups: %w", err)
	}
	return s, f, nil
}

func decodeAggregate(count int, subStatus, followUps []byte) (domain.JobAggregate, error) {
	out := domain.JobAggregate{
		FollowUpCount: count,
		SubStatus:     map[domain.FollowUpType]bool{},
		FollowUps:     map[string]domain.FollowUpRef{},
	}
	if len(subStatus) > 0 {
		if err := json.Unmarshal(subStatus, &out.SubStatus); err != nil {
			return out, fmt.Errorf("decode sub status: %w", err)
		}
	}
	if len(followUps) > 0 {
		if err := json.Unmarshal(followUps, &out.FollowUps); err != nil {
			return out, fmt.Errorf("decode follow ups: %w", err)
		}
	}
	return out, nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
