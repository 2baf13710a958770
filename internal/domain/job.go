package domain

import (
	"strings"
	"time"
)

// Worker identifies a technician that can be assigned to a job.
type Worker struct {
	ID   string `json:"worker_id"`
	Name string `json:"worker_name"`
}

// Assignment is one worker's commitment to a job interval.
type Assignment struct {
	WorkerID   string
	WorkerName string
	JobID      string
	Interval   Interval
}

// FollowUpRef is the job-side summary of an attached follow-up.
type FollowUpRef struct {
	Type      FollowUpType   `json:"type"`
	Status    FollowUpStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// JobAggregate is the follow-up summary persisted on a job.
type JobAggregate struct {
	FollowUpCount int
	SubStatus     map[FollowUpType]bool
	FollowUps     map[string]FollowUpRef
	UpdatedAt     *time.Time
}

// Job is keyed by its job number.
type Job struct {
	ID              string
	Title           string
	CustomerName    string
	Schedule        Schedule
	AssignedWorkers []Worker
	Aggregate       JobAggregate
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy of the aggregate.
func (a JobAggregate) Clone() JobAggregate {
	out := JobAggregate{
		FollowUpCount: a.FollowUpCount,
		SubStatus:     make(map[FollowUpType]bool, len(a.SubStatus)),
		FollowUps:     make(map[string]FollowUpRef, len(a.FollowUps)),
	}
	for k, v := range a.SubStatus {
		out.SubStatus[k] = v
	}
	for k, v := range a.FollowUps {
		out.FollowUps[k] = v
	}
	if a.UpdatedAt != nil {
		ts := *a.UpdatedAt
		out.UpdatedAt = &ts
	}
	return out
}

// DistinctWorkers drops blank ids and repeated workers, keeping first occurrence.
func DistinctWorkers(workers []Worker) []Worker {
	seen := make(map[string]struct{}, len(workers))
	out := make([]Worker, 0, len(workers))
	for _, w := range workers {
		id := strings.TrimSpace(w.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Worker{ID: id, Name: strings.TrimSpace(w.Name)})
	}
	return out
}

// SameWorkers reports whether both lists name exactly the same worker ids, ignoring order.
func SameWorkers(a, b []Worker) bool {
	a, b = DistinctWorkers(a), DistinctWorkers(b)
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]struct{}, len(a))
	for _, w := range a {
		ids[w.ID] = struct{}{}
	}
	for _, w := range b {
		if _, ok := ids[w.ID]; !ok {
			return false
		}
	}
	return true
}
