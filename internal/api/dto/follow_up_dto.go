package dto

import (
	"time"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// FollowUpCreateRequest payload.
type FollowUpCreateRequest struct {
	Type     domain.FollowUpType     `json:"type" validate:"required,max=64"`
	Priority domain.FollowUpPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate  *time.Time              `json:"due_date"`
	Notes    string                  `json:"notes" validate:"max=2000"`
}

// FollowUpTransitionRequest payload.
type FollowUpTransitionRequest struct {
	Status domain.FollowUpStatus `json:"status" validate:"required,oneof=LOGGED IN_PROGRESS CLOSED CANCELLED"`
	Notes  string                `json:"notes" validate:"max=2000"`
}

// HistoryEntryResponse is one audit entry.
type HistoryEntryResponse struct {
	ID         string                 `json:"id"`
	Action     domain.HistoryAction   `json:"action"`
	FromStatus *domain.FollowUpStatus `json:"from_status,omitempty"`
	ToStatus   domain.FollowUpStatus  `json:"to_status"`
	Timestamp  time.Time              `json:"timestamp"`
	UserID     string                 `json:"user_id"`
	UserName   string                 `json:"user_name"`
	Notes      string                 `json:"notes,omitempty"`
}

// FollowUpResponse exposes a follow-up with its history.
type FollowUpResponse struct {
	ID              string                  `json:"id"`
	JobID           string                  `json:"job_id"`
	Type            domain.FollowUpType     `json:"type"`
	Status          domain.FollowUpStatus   `json:"status"`
	Priority        domain.FollowUpPriority `json:"priority"`
	TechnicianID    string                  `json:"technician_id"`
	AssignedCSOID   *string                 `json:"assigned_cso_id,omitempty"`
	AssignedCSOName *string                 `json:"assigned_cso_name,omitempty"`
	DueDate         *time.Time              `json:"due_date,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	History         []HistoryEntryResponse  `json:"history"`
}

// FollowUpCommitResponse includes the job aggregate after the change.
type FollowUpCommitResponse struct {
	FollowUp      FollowUpResponse             `json:"follow_up"`
	FollowUpCount int                          `json:"follow_up_count"`
	SubStatus     map[domain.FollowUpType]bool `json:"sub_status"`
	JobVersion    int64                        `json:"job_version"`
}

// NewFollowUpResponse maps a follow-up.
func NewFollowUpResponse(f *domain.FollowUp) FollowUpResponse {
	history := make([]HistoryEntryResponse, 0, len(f.History))
	for _, h := range f.History {
		history = append(history, HistoryEntryResponse{
			ID:         h.ID,
			Action:     h.Action,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Timestamp:  h.Timestamp,
			UserID:     h.UserID,
			UserName:   h.UserName,
			Notes:      h.Notes,
		})
	}
	return FollowUpResponse{
		ID:              f.ID,
		JobID:           f.JobID,
		Type:            f.Type,
		Status:          f.Status,
		Priority:        f.Priority,
		TechnicianID:    f.TechnicianID,
		AssignedCSOID:   f.AssignedCSOID,
		AssignedCSOName: f.AssignedCSOName,
		DueDate:         f.DueDate,
		Notes:           f.Notes,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
		CompletedAt:     f.CompletedAt,
		History:         history,
	}
}
