package service

import (
	"errors"

	"github.com/fieldops/job-scheduling/internal/domain"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

var (
	// ErrDuplicateDelta means the job already reflects the delta's target status.
	ErrDuplicateDelta = errors.New("aggregate delta already applied")
	// ErrAggregateOutOfSync means the job records a status the delta does not start from.
	ErrAggregateOutOfSync = errors.New("job aggregate does not match follow-up status")
)

// GuardDelta must pass before ApplyAggregateDelta is called. It compares the
// follow-up status recorded on the job with the delta's source and target so
// a replayed delta is rejected instead of being counted twice.
func GuardDelta(aggregate domain.JobAggregate, delta domain.AggregateDelta) error {
	recorded, ok := aggregate.FollowUps[delta.FollowUpID]
	details := map[string]any{"job_id": delta.JobID, "follow_up_id": delta.FollowUpID, "to": delta.ToStatus}

	if delta.FromStatus == nil {
		if ok {
			return apperrors.NewDuplicateDelta(ErrDuplicateDelta, details)
		}
		return nil
	}
	if !ok || recorded.Status == *delta.FromStatus {
		return nil
	}
	if recorded.Status == delta.ToStatus {
		return apperrors.NewDuplicateDelta(ErrDuplicateDelta, details)
	}
	details["recorded"] = recorded.Status
	return apperrors.NewConflict(ErrAggregateOutOfSync.Error(), details)
}

// ApplyAggregateDelta returns the aggregate after delta; current is not modified.
//
// The count is clamped at zero. A type flag takes the delta's set value, then
// its clear value, then the current value. A clear is ignored while another
// follow-up of the same type is still open on the job, so the flag means
// "at least one open follow-up of this type". A zero delta that keeps the
// status, such as a re-claim, leaves the aggregate as it was.
func ApplyAggregateDelta(current domain.JobAggregate, delta domain.AggregateDelta) domain.JobAggregate {
	next := current.Clone()
	if delta.IsZero() && delta.FromStatus != nil && *delta.FromStatus == delta.ToStatus {
		return next
	}

	next.FollowUpCount += delta.FollowUpCountDelta
	if next.FollowUpCount < 0 {
		next.FollowUpCount = 0
	}

	if delta.FollowUpID != "" {
		ref, ok := next.FollowUps[delta.FollowUpID]
		if !ok {
			ref.CreatedAt = delta.OccurredAt
		}
		ref.Type = delta.Type
		ref.Status = delta.ToStatus
		ref.UpdatedAt = delta.OccurredAt
		next.FollowUps[delta.FollowUpID] = ref
	}

	for t, v := range delta.SubStatusClear {
		if _, set := delta.SubStatusSet[t]; set {
			continue
		}
		if !v && hasOpenOfType(next.FollowUps, t) {
			v = true
		}
		next.SubStatus[t] = v
	}
	for t, v := range delta.SubStatusSet {
		next.SubStatus[t] = v
	}

	if !delta.OccurredAt.IsZero() {
		ts := delta.OccurredAt
		next.UpdatedAt = &ts
	}
	return next
}

// RecomputeAggregate rebuilds the count and flags from the job's follow-up map.
func RecomputeAggregate(current domain.JobAggregate) domain.JobAggregate {
	next := current.Clone()
	next.FollowUpCount = 0
	for t := range next.SubStatus {
		next.SubStatus[t] = false
	}
	for _, ref := range next.FollowUps {
		if _, ok := next.SubStatus[ref.Type]; !ok {
			next.SubStatus[ref.Type] = false
		}
		if ref.Status.IsOpen() {
			next.FollowUpCount++
			next.SubStatus[ref.Type] = true
		}
	}
	return next
}

func hasOpenOfType(refs map[string]domain.FollowUpRef, t domain.FollowUpType) bool {
	for _, ref := range refs {
		if ref.Type == t && ref.Status.IsOpen() {
			return true
		}
	}
	return false
}
