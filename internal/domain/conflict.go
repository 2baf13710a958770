package domain

// Conflict is one existing commitment that collides with a proposed interval.
type Conflict struct {
	WorkerID    string   `json:"worker_id"`
	WorkerName  string   `json:"worker_name"`
	JobID       string   `json:"job_id"`
	Existing    Interval `json:"existing"`
	Proposed    Interval `json:"proposed"`
	Description string   `json:"description"`
}

// WorkerCheckStatus distinguishes a verified result from one that could not be verified.
type WorkerCheckStatus string

const (
	WorkerCheckClear       WorkerCheckStatus = "CLEAR"
	WorkerCheckConflicting WorkerCheckStatus = "CONFLICTING"
	WorkerCheckUnknown     WorkerCheckStatus = "UNKNOWN"
)

// LookupWarning is a non-fatal failure to read one worker's commitments.
type LookupWarning struct {
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

// ConflictReport aggregates conflict results across every proposed worker.
type ConflictReport struct {
	HasConflicts       bool                         `json:"has_conflicts"`
	ShortCircuited     bool                         `json:"short_circuited"`
	PerWorkerConflicts map[string][]Conflict        `json:"per_worker_conflicts"`
	WorkerStatus       map[string]WorkerCheckStatus `json:"worker_status"`
	Warnings           []LookupWarning              `json:"warnings"`
}

// NewConflictReport returns an empty report.
func NewConflictReport() ConflictReport {
	return ConflictReport{
		PerWorkerConflicts: map[string][]Conflict{},
		WorkerStatus:       map[string]WorkerCheckStatus{},
		Warnings:           []LookupWarning{},
	}
}

// HasUnknown reports whether at least one worker could not be verified.
func (r ConflictReport) HasUnknown() bool {
	for _, status := range r.WorkerStatus {
		if status == WorkerCheckUnknown {
			return true
		}
	}
	return false
}

// RequiresConfirmation is true when a conflict exists or might exist.
func (r ConflictReport) RequiresConfirmation() bool {
	return r.HasConflicts || r.HasUnknown()
}
