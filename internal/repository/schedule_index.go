package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// ScheduleIndex answers which commitments a worker currently holds.
type ScheduleIndex interface {
	// ListForWorker returns the worker's assignments whose interval touches window.
	ListForWorker(ctx context.Context, workerID string, window domain.Interval) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleIndex instantiates the postgres backed index.
func NewScheduleIndex(pool *pgxpool.Pool) ScheduleIndex {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) ListForWorker(ctx context.Context, workerID string, window domain.Interval) ([]domain.Assignment, error) {
	// Range pre-filter only; the inclusive overlap test runs in memory.
	const query = `
        SELECT job_id, worker_id, worker_name, start_at, end_at
        FROM job_assignments
        WHERE worker_id=$1 AND start_at <= $3 AND end_at >= $2
        ORDER BY start_at ASC, job_id ASC`
	rows, err := r.pool.Query(ctx, query, workerID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list assignments for worker %s: %w", workerID, err)
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func scanAssignments(rows pgx.Rows) ([]domain.Assignment, error) {
	var result []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.JobID, &a.WorkerID, &a.WorkerName, &a.Interval.Start, &a.Interval.End); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func replaceAssignments(ctx context.Context, tx pgx.Tx, jobID string, workers []domain.Worker, interval domain.Interval) error {
	if _, err := tx.Exec(ctx, `DELETE FROM job_assignments WHERE job_id=$1`, jobID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	for _, w := range workers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO job_assignments (job_id, worker_id, worker_name, start_at, end_at) VALUES ($1,$2,$3,$4,$5)`,
			jobID, w.ID, w.Name, interval.Start, interval.End,
		); err != nil {
			return fmt.Errorf("insert assignment %s: %w", w.ID, err)
		}
	}
	return nil
}
