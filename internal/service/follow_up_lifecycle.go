package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/job-scheduling/internal/domain"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

var (
	ErrInvalidTransition   = errors.New("follow-up status transition not allowed")
	ErrUnknownFollowUpType = errors.New("unknown follow-up type")
)

var followUpTransitions = map[domain.FollowUpStatus][]domain.FollowUpStatus{
	domain.FollowUpStatusLogged:     {domain.FollowUpStatusInProgress, domain.FollowUpStatusClosed, domain.FollowUpStatusCancelled},
	domain.FollowUpStatusInProgress: {domain.FollowUpStatusInProgress, domain.FollowUpStatusClosed, domain.FollowUpStatusCancelled},
	domain.FollowUpStatusClosed:     {},
	domain.FollowUpStatusCancelled:  {},
}

// CanTransition reports whether next is reachable from current in one step.
func CanTransition(current, next domain.FollowUpStatus) bool {
	for _, candidate := range followUpTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// FollowUpLifecycle governs follow-up status changes. It only computes values;
// callers persist the returned follow-up and delta.
type FollowUpLifecycle struct {
	types map[domain.FollowUpType]struct{}
	now   func() time.Time
	newID func() string
}

// FollowUpCreateInput describes a new follow-up raised by a technician.
type FollowUpCreateInput struct {
	JobID    string
	Type     domain.FollowUpType
	Priority domain.FollowUpPriority
	DueDate  *time.Time
	Notes    string
}

// NewFollowUpLifecycle accepts the configured follow-up type keys. An empty
// list falls back to domain.DefaultFollowUpTypes.
func NewFollowUpLifecycle(types []string) *FollowUpLifecycle {
	set := make(map[domain.FollowUpType]struct{}, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			set[domain.FollowUpType(t)] = struct{}{}
		}
	}
	if len(set) == 0 {
		for _, t := range domain.DefaultFollowUpTypes {
			set[t] = struct{}{}
		}
	}
	return &FollowUpLifecycle{
		types: set,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock overrides the time source.
func (l *FollowUpLifecycle) WithClock(now func() time.Time) *FollowUpLifecycle {
	l.now = now
	return l
}

// KnownType reports whether t is configured.
func (l *FollowUpLifecycle) KnownType(t domain.FollowUpType) bool {
	_, ok := l.types[t]
	return ok
}

// Create starts a follow-up in LOGGED and emits +1 with the type flag set.
func (l *FollowUpLifecycle) Create(input FollowUpCreateInput, actor domain.Actor) (domain.FollowUp, domain.AggregateDelta, error) {
	if strings.TrimSpace(input.JobID) == "" {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewValidationError("job_id required", nil)
	}
	if strings.TrimSpace(actor.ID) == "" {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewValidationError("actor required", nil)
	}
	if !l.KnownType(input.Type) {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewValidationError(ErrUnknownFollowUpType.Error(), map[string]any{"type": input.Type})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.FollowUpPriorityMedium
	}
	if !priority.Valid() {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := l.now()
	fu := domain.FollowUp{
		ID:           l.newID(),
		JobID:        input.JobID,
		Type:         input.Type,
		Status:       domain.FollowUpStatusLogged,
		Priority:     priority,
		TechnicianID: actor.ID,
		DueDate:      input.DueDate,
		Notes:        strings.TrimSpace(input.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fu.History = []domain.HistoryEntry{{
		ID:        l.newID(),
		Action:    domain.HistoryActionCreated,
		ToStatus:  domain.FollowUpStatusLogged,
		Timestamp: now,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Notes:     fu.Notes,
	}}

	delta := domain.AggregateDelta{
		JobID:              fu.JobID,
		FollowUpID:         fu.ID,
		Type:               fu.Type,
		ToStatus:           fu.Status,
		FollowUpCountDelta: 1,
		SubStatusSet:       map[domain.FollowUpType]bool{fu.Type: true},
		OccurredAt:         now,
	}
	return fu, delta, nil
}

// Transition moves the follow-up to next. The input is never modified; on
// error the zero follow-up is returned.
func (l *FollowUpLifecycle) Transition(current domain.FollowUp, next domain.FollowUpStatus, actor domain.Actor, notes string) (domain.FollowUp, domain.AggregateDelta, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewValidationError("actor required", nil)
	}
	if !CanTransition(current.Status, next) {
		return domain.FollowUp{}, domain.AggregateDelta{}, apperrors.NewInvalidTransition(ErrInvalidTransition, map[string]any{
			"follow_up_id": current.ID,
			"from":         current.Status,
			"to":           next,
		})
	}

	fu := current.Clone()
	now := l.now()
	// History stays in non-decreasing timestamp order even if the clock steps back.
	if n := len(fu.History); n > 0 && now.Before(fu.History[n-1].Timestamp) {
		now = fu.History[n-1].Timestamp
	}

	from := current.Status
	fu.Status = next
	fu.UpdatedAt = now

	delta := domain.AggregateDelta{
		JobID:      fu.JobID,
		FollowUpID: fu.ID,
		Type:       fu.Type,
		FromStatus: &from,
		ToStatus:   next,
		OccurredAt: now,
	}

	switch {
	case next == domain.FollowUpStatusInProgress:
		id, name := actor.ID, actor.Name
		fu.AssignedCSOID = &id
		fu.AssignedCSOName = &name
	case next.IsTerminal():
		fu.CompletedAt = &now
		delta.FollowUpCountDelta = -1
		delta.SubStatusClear = map[domain.FollowUpType]bool{fu.Type: false}
	}

	fu.History = append(fu.History, domain.HistoryEntry{
		ID:         l.newID(),
		Action:     domain.HistoryActionStatusUpdate,
		FromStatus: &from,
		ToStatus:   next,
		Timestamp:  now,
		UserID:     actor.ID,
		UserName:   actor.Name,
		Notes:      strings.TrimSpace(notes),
	})
	return fu, delta, nil
}
