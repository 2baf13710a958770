package events

import (
	"time"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventJobScheduled           EventType = "job_scheduled"
	EventJobConflictsOverridden EventType = "job_conflicts_overridden"
	EventFollowUpCreated        EventType = "followup_created"
	EventFollowUpStatusChanged  EventType = "followup_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	StaffID string           `json:"staff_id"`
	Name    string           `json:"name,omitempty"`
	Role    domain.StaffRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// JobScheduledPayload payload.
type JobScheduledPayload struct {
	Interval domain.Interval `json:"interval"`
	Workers  []domain.Worker `json:"workers"`
	Created  bool            `json:"created"`
}

// JobConflictsOverriddenPayload payload.
type JobConflictsOverriddenPayload struct {
	ConflictingWorkers []string `json:"conflicting_workers"`
	UnverifiedWorkers  []string `json:"unverified_workers,omitempty"`
}

// FollowUpCreatedPayload payload.
type FollowUpCreatedPayload struct {
	FollowUpID string                  `json:"follow_up_id"`
	Type       domain.FollowUpType     `json:"type"`
	Priority   domain.FollowUpPriority `json:"priority"`
}

// FollowUpStatusChangedPayload payload.
type FollowUpStatusChangedPayload struct {
	FollowUpID string                `json:"follow_up_id"`
	Type       domain.FollowUpType   `json:"type"`
	OldStatus  domain.FollowUpStatus `json:"old_status"`
	NewStatus  domain.FollowUpStatus `json:"new_status"`
	Notes      string                `json:"notes,omitempty"`
}
