package service

import (
	"fmt"
	"time"

	"github.com/fieldops/job-scheduling/internal/domain"
)

// DetectConflicts returns one conflict per existing assignment that overlaps
// proposed, in the order the assignments were supplied.
func DetectConflicts(proposed domain.Interval, existing []domain.Assignment) []domain.Conflict {
	conflicts := []domain.Conflict{}
	for _, a := range existing {
		if !proposed.Overlaps(a.Interval) {
			continue
		}
		conflicts = append(conflicts, domain.Conflict{
			WorkerID:    a.WorkerID,
			WorkerName:  a.WorkerName,
			JobID:       a.JobID,
			Existing:    a.Interval,
			Proposed:    proposed,
			Description: describeConflict(a),
		})
	}
	return conflicts
}

func describeConflict(a domain.Assignment) string {
	who := a.WorkerName
	if who == "" {
		who = a.WorkerID
	}
	return fmt.Sprintf("%s is already assigned to job %s from %s to %s",
		who, a.JobID,
		a.Interval.Start.Format(time.DateTime),
		a.Interval.End.Format(time.DateTime))
}
