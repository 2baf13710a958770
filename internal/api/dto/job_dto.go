package dto

import (
	"time"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// WorkerRef names an assigned worker. Names are resolved server-side.
type WorkerRef struct {
	WorkerID   string `json:"worker_id" validate:"required,max=64"`
	WorkerName string `json:"worker_name,omitempty"`
}

// ScheduleRequest carries the raw date and time-of-day fields.
type ScheduleRequest struct {
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// ConflictCheckRequest asks whether a proposed schedule collides with existing work.
type ConflictCheckRequest struct {
	JobID string `json:"job_id,omitempty" validate:"omitempty,max=64"`
	ScheduleRequest
	AssignedWorkers []WorkerRef `json:"assigned_workers" validate:"required,min=1,max=50,dive"`
}

// JobSaveRequest creates or edits a job.
type JobSaveRequest struct {
	JobID        string `json:"job_id,omitempty" validate:"omitempty,max=64"`
	Title        string `json:"title" validate:"max=200"`
	CustomerName string `json:"customer_name" validate:"max=200"`
	ScheduleRequest
	AssignedWorkers   []WorkerRef `json:"assigned_workers" validate:"max=50,dive"`
	OverrideConflicts bool        `json:"override_conflicts"`
	ExpectedVersion   int64       `json:"expected_version,omitempty" validate:"gte=0"`
}

// JobResponse exposes a job and its follow-up aggregate.
type JobResponse struct {
	ID              string                        `json:"id"`
	Title           string                        `json:"title"`
	CustomerName    string                        `json:"customer_name"`
	StartDate       string                        `json:"start_date"`
	EndDate         string                        `json:"end_date"`
	StartTime       string                        `json:"start_time"`
	EndTime         string                        `json:"end_time"`
	AssignedWorkers []domain.Worker               `json:"assigned_workers"`
	FollowUpCount   int                           `json:"follow_up_count"`
	SubStatus       map[domain.FollowUpType]bool  `json:"sub_status"`
	FollowUps       map[string]domain.FollowUpRef `json:"follow_ups"`
	Version         int64                         `json:"version"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
}

// JobSaveResponse pairs the saved job with the report it was checked against.
type JobSaveResponse struct {
	Job    JobResponse           `json:"job"`
	Report domain.ConflictReport `json:"conflict_report"`
}

// Schedule converts the request fields.
func (r ScheduleRequest) Schedule() domain.Schedule {
	return domain.Schedule{
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

// Workers converts worker refs.
func Workers(refs []WorkerRef) []domain.Worker {
	out := make([]domain.Worker, 0, len(refs))
	for _, r := range refs {
		out = append(out, domain.Worker{ID: r.WorkerID, Name: r.WorkerName})
	}
	return out
}

// NewJobResponse maps a job.
func NewJobResponse(j *domain.Job) JobResponse {
	workers := j.AssignedWorkers
	if workers == nil {
		workers = []domain.Worker{}
	}
	return JobResponse{
		ID:              j.ID,
		Title:           j.Title,
		CustomerName:    j.CustomerName,
		StartDate:       j.Schedule.StartDate,
		EndDate:         j.Schedule.EndDate,
		StartTime:       j.Schedule.StartTime,
		EndTime:         j.Schedule.EndTime,
		AssignedWorkers: workers,
		FollowUpCount:   j.Aggregate.FollowUpCount,
		SubStatus:       j.Aggregate.SubStatus,
		FollowUps:       j.Aggregate.FollowUps,
		Version:         j.Version,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}
