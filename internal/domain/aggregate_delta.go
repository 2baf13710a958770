package domain

import "time"

// AggregateDelta describes how a job's follow-up summary changes after one
// follow-up event. SubStatusSet wins over SubStatusClear for the same type.
type AggregateDelta struct {
	JobID              string
	FollowUpID         string
	Type               FollowUpType
	FromStatus         *FollowUpStatus
	ToStatus           FollowUpStatus
	FollowUpCountDelta int
	SubStatusSet       map[FollowUpType]bool
	SubStatusClear     map[FollowUpType]bool
	OccurredAt         time.Time
}

// IsZero reports whether applying the delta changes counters or flags.
func (d AggregateDelta) IsZero() bool {
	return d.FollowUpCountDelta == 0 && len(d.SubStatusSet) == 0 && len(d.SubStatusClear) == 0
}
