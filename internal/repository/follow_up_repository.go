package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// FollowUpCommit is everything one follow-up operation writes.
type FollowUpCommit struct {
	FollowUp *domain.FollowUp
	// PreviousStatus is nil when the follow-up is new.
	PreviousStatus     *domain.FollowUpStatus
	NewHistory         []domain.HistoryEntry
	Aggregate          domain.JobAggregate
	ExpectedJobVersion int64
}

// FollowUpRepository encapsulates follow-up persistence.
type FollowUpRepository interface {
	GetByID(ctx context.Context, id string) (*domain.FollowUp, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.FollowUp, error)
	// Commit writes the follow-up, its new history and the job aggregate atomically.
	// It returns the job's new version.
	Commit(ctx context.Context, commit FollowUpCommit) (int64, error)
}

type followUpRepository struct {
	pool *pgxpool.Pool
}

// NewFollowUpRepository builds repository.
func NewFollowUpRepository(pool *pgxpool.Pool) FollowUpRepository {
	return &followUpRepository{pool: pool}
}

const followUpColumns = `id, job_id, type, status, priority, technician_id, assigned_cso_id, assigned_cso_name,
               due_date, notes, created_at, updated_at, completed_at`

func (r *followUpRepository) GetByID(ctx context.Context, id string) (*domain.FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE id=$1`
	fu, err := scanFollowUp(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	history, err := r.listHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	fu.History = history
	return fu, nil
}

func (r *followUpRepository) ListByJob(ctx context.Context, jobID string) ([]domain.FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE job_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FollowUp
	for rows.Next() {
		fu, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *fu)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	history, err := r.jobHistory(ctx, jobID)
	if err != nil {
		return nil, err
	}
	attachHistory(result, history)
	return result, nil
}

func (r *followUpRepository) listHistory(ctx context.Context, followUpID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT follow_up_id, id, action, from_status, to_status, created_at, user_id, user_name, notes
        FROM follow_up_history WHERE follow_up_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, followUpID)
	if err != nil {
		return nil, err
	}
	byFollowUp, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	return byFollowUp[followUpID], nil
}

// jobHistory loads the history of every follow-up on a job in one query.
func (r *followUpRepository) jobHistory(ctx context.Context, jobID string) (map[string][]domain.HistoryEntry, error) {
	const query = `
        SELECT h.follow_up_id, h.id, h.action, h.from_status, h.to_status, h.created_at, h.user_id, h.user_name, h.notes
        FROM follow_up_history h
        JOIN follow_ups f ON f.id = h.follow_up_id
        WHERE f.job_id=$1
        ORDER BY h.follow_up_id, h.seq ASC`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) (map[string][]domain.HistoryEntry, error) {
	defer rows.Close()

	result := make(map[string][]domain.HistoryEntry)
	for rows.Next() {
		var followUpID string
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&followUpID,
			&entry.ID,
			&entry.Action,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Timestamp,
			&entry.UserID,
			&entry.UserName,
			&entry.Notes,
		); err != nil {
			return nil, err
		}
		result[followUpID] = append(result[followUpID], entry)
	}
	return result, rows.Err()
}

func attachHistory(followUps []domain.FollowUp, history map[string][]domain.HistoryEntry) {
	for i := range followUps {
		followUps[i].History = history[followUps[i].ID]
	}
}

func (r *followUpRepository) Commit(ctx context.Context, commit FollowUpCommit) (int64, error) {
	if commit.FollowUp == nil {
		return 0, errors.New("follow-up required")
	}
	var version int64
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		fu := commit.FollowUp
		if commit.PreviousStatus == nil {
			if err := insertFollowUp(ctx, tx, fu); err != nil {
				return err
			}
		} else if err := updateFollowUp(ctx, tx, fu, *commit.PreviousStatus); err != nil {
			return err
		}
		for _, entry := range commit.NewHistory {
			if err := appendHistory(ctx, tx, fu.ID, entry); err != nil {
				return err
			}
		}
		var err error
		version, err = updateAggregate(ctx, tx, fu.JobID, commit.Aggregate, commit.ExpectedJobVersion)
		return err
	})
	return version, err
}

func insertFollowUp(ctx context.Context, tx pgx.Tx, fu *domain.FollowUp) error {
	const query = `
        INSERT INTO follow_ups (id, job_id, type, status, priority, technician_id, assigned_cso_id, assigned_cso_name,
                                due_date, notes, created_at, updated_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := tx.Exec(ctx, query,
		fu.ID,
		fu.JobID,
		fu.Type,
		fu.Status,
		fu.Priority,
		fu.TechnicianID,
		fu.AssignedCSOID,
		fu.AssignedCSOName,
		fu.DueDate,
		fu.Notes,
		fu.CreatedAt,
		fu.UpdatedAt,
		fu.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert follow-up: %w", err)
	}
	return nil
}

// updateFollowUp only succeeds while the stored status is still previous.
func updateFollowUp(ctx context.Context, tx pgx.Tx, fu *domain.FollowUp, previous domain.FollowUpStatus) error {
	const query = `
        UPDATE follow_ups SET status=$1, assigned_cso_id=$2, assigned_cso_name=$3, updated_at=$4, completed_at=$5
        WHERE id=$6 AND status=$7`
	cmd, err := tx.Exec(ctx, query,
		fu.Status,
		fu.AssignedCSOID,
		fu.AssignedCSOName,
		fu.UpdatedAt,
		fu.CompletedAt,
		fu.ID,
		previous,
	)
	if err != nil {
		return fmt.Errorf("update follow-up: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleAggregate
	}
	return nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, followUpID string, entry domain.HistoryEntry) error {
	const query = `
        INSERT INTO follow_up_history (id, follow_up_id, seq, action, from_status, to_status, created_at, user_id, user_name, notes)
        VALUES ($1,$2,(SELECT COALESCE(MAX(seq),0)+1 FROM follow_up_history WHERE follow_up_id=$2),$3,$4,$5,$6,$7,$8,$9)`
	_, err := tx.Exec(ctx, query,
		entry.ID,
		followUpID,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Timestamp,
		entry.UserID,
		entry.UserName,
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func scanFollowUp(row pgx.Row) (*domain.FollowUp, error) {
	var fu domain.FollowUp
	if err := row.Scan(
		&fu.ID,
		&fu.JobID,
		&fu.Type,
		&fu.Status,
		&fu.Priority,
		&fu.TechnicianID,
		&fu.AssignedCSOID,
		&fu.AssignedCSOName,
		&fu.DueDate,
		&fu.Notes,
		&fu.CreatedAt,
		&fu.UpdatedAt,
		&fu.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &fu, nil
}
