package domain

import "time"

// FollowUpStatus enumerates lifecycle states for follow-ups.
type FollowUpStatus string

const (
	FollowUpStatusLogged     FollowUpStatus = "LOGGED"
	FollowUpStatusInProgress FollowUpStatus = "IN_PROGRESS"
	FollowUpStatusClosed     FollowUpStatus = "CLOSED"
	FollowUpStatusCancelled  FollowUpStatus = "CANCELLED"
)

// IsTerminal reports whether no transition leaves the status.
func (s FollowUpStatus) IsTerminal() bool {
	return s == FollowUpStatusClosed || s == FollowUpStatusCancelled
}

// IsOpen reports whether the status counts towards the job's follow-up count.
func (s FollowUpStatus) IsOpen() bool {
	return s == FollowUpStatusLogged || s == FollowUpStatusInProgress
}

// FollowUpType is the configurable key used in a job's sub-status flags.
type FollowUpType string

const (
	FollowUpTypeAppointment    FollowUpType = "appointment"
	FollowUpTypeRepair         FollowUpType = "repair"
	FollowUpTypeContract       FollowUpType = "contract"
	FollowUpTypeVerifyCustomer FollowUpType = "verifyCustomer"
)

// DefaultFollowUpTypes are used when no types are configured.
var DefaultFollowUpTypes = []FollowUpType{
	FollowUpTypeAppointment,
	FollowUpTypeRepair,
	FollowUpTypeContract,
	FollowUpTypeVerifyCustomer,
}

// FollowUpPriority enumerates urgency.
type FollowUpPriority string

const (
	FollowUpPriorityLow    FollowUpPriority = "LOW"
	FollowUpPriorityMedium FollowUpPriority = "MEDIUM"
	FollowUpPriorityHigh   FollowUpPriority = "HIGH"
	FollowUpPriorityUrgent FollowUpPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p FollowUpPriority) Valid() bool {
	switch p {
	case FollowUpPriorityLow, FollowUpPriorityMedium, FollowUpPriorityHigh, FollowUpPriorityUrgent:
		return true
	}
	return false
}

// HistoryAction captures what a history entry records.
type HistoryAction string

const (
	HistoryActionCreated      HistoryAction = "CREATED"
	HistoryActionStatusUpdate HistoryAction = "STATUS_UPDATE"
)

// HistoryEntry is an immutable audit trail entry.
type HistoryEntry struct {
	ID         string
	Action     HistoryAction
	FromStatus *FollowUpStatus
	ToStatus   FollowUpStatus
	Timestamp  time.Time
	UserID     string
	UserName   string
	Notes      string
}

// FollowUp is a secondary task spawned from a job.
type FollowUp struct {
	ID              string
	JobID           string
	Type            FollowUpType
	Status          FollowUpStatus
	Priority        FollowUpPriority
	TechnicianID    string
	AssignedCSOID   *string
	AssignedCSOName *string
	DueDate         *time.Time
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	History         []HistoryEntry
}

// Clone returns a copy that shares no mutable state with f.
func (f FollowUp) Clone() FollowUp {
	out := f
	out.History = append([]HistoryEntry(nil), f.History...)
	out.AssignedCSOID = cloneString(f.AssignedCSOID)
	out.AssignedCSOName = cloneString(f.AssignedCSOName)
	out.DueDate = cloneTime(f.DueDate)
	out.CompletedAt = cloneTime(f.CompletedAt)
	return out
}

// Ref summarises the follow-up for its job.
func (f FollowUp) Ref() FollowUpRef {
	return FollowUpRef{Type: f.Type, Status: f.Status, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt}
}

// Actor is the staff member performing a follow-up operation.
type Actor struct {
	ID   string
	Name string
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
