package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/repository"
)

type fakeIndex struct {
	mu          sync.Mutex
	assignments map[string][]domain.Assignment
	errs        map[string]error
	block       map[string]bool
	calls       []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		assignments: map[string][]domain.Assignment{},
		errs:        map[string]error{},
		block:       map[string]bool{},
	}
}

func (f *fakeIndex) add(a domain.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.WorkerID] = append(f.assignments[a.WorkerID], a)
}

func (f *fakeIndex) ListForWorker(ctx context.Context, workerID string, window domain.Interval) ([]domain.Assignment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, workerID)
	err := f.errs[workerID]
	block := f.block[workerID]
	var out []domain.Assignment
	for _, a := range f.assignments[workerID] {
		if !a.Interval.Start.After(window.End) && !a.Interval.End.Before(window.Start) {
			out = append(out, a)
		}
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeIndex) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeInvalidator struct {
	mu      sync.Mutex
	workers []string
}

func (f *fakeInvalidator) InvalidateWorkers(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers = append(f.workers, ids...)
	return nil
}

// fakeStore backs both job and follow-up repositories so commits can touch both.
type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	followUps map[string]domain.FollowUp
	index     *fakeIndex
	// staleCommits forces the next N follow-up commits to fail with ErrStaleAggregate.
	staleCommits int
	commitErr    error
	commits      int
}

func newFakeStore(index *fakeIndex) *fakeStore {
	return &fakeStore{
		jobs:      map[string]*domain.Job{},
		followUps: map[string]domain.FollowUp{},
		index:     index,
	}
}

type fakeJobRepo struct{ s *fakeStore }

type fakeFollowUpRepo struct{ s *fakeStore }

func cloneJob(j *domain.Job) *domain.Job {
	out := *j
	out.AssignedWorkers = append([]domain.Worker(nil), j.AssignedWorkers...)
	out.Aggregate = j.Aggregate.Clone()
	return &out
}

func (r fakeJobRepo) Create(_ context.Context, job *domain.Job, interval domain.Interval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job.Version = 1
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	r.s.jobs[job.ID] = cloneJob(job)
	r.s.syncAssignments(job, interval)
	return nil
}

func (r fakeJobRepo) Update(_ context.Context, job *domain.Job, interval domain.Interval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.jobs[job.ID]
	if !ok || stored.Version != job.Version {
		return repository.ErrStaleAggregate
	}
	job.Version++
	r.s.jobs[job.ID] = cloneJob(job)
	r.s.syncAssignments(job, interval)
	return nil
}

func (r fakeJobRepo) GetByID(_ context.Context, id string) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneJob(job), nil
}

func (r fakeJobRepo) SaveAggregate(_ context.Context, jobID string, aggregate domain.JobAggregate, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[jobID]
	if !ok || job.Version != expectedVersion {
		return 0, repository.ErrStaleAggregate
	}
	job.Aggregate = aggregate.Clone()
	job.Version++
	return job.Version, nil
}

func (s *fakeStore) syncAssignments(job *domain.Job, interval domain.Interval) {
	if s.index == nil {
		return
	}
	s.index.mu.Lock()
	defer s.index.mu.Unlock()
	for worker, list := range s.index.assignments {
		kept := list[:0]
		for _, a := range list {
			if a.JobID != job.ID {
				kept = append(kept, a)
			}
		}
		s.index.assignments[worker] = kept
	}
	for _, w := range job.AssignedWorkers {
		s.index.assignments[w.ID] = append(s.index.assignments[w.ID], domain.Assignment{
			WorkerID: w.ID, WorkerName: w.Name, JobID: job.ID, Interval: interval,
		})
	}
}

func (r fakeFollowUpRepo) GetByID(_ context.Context, id string) (*domain.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fu, ok := r.s.followUps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := fu.Clone()
	return &out, nil
}

func (r fakeFollowUpRepo) ListByJob(_ context.Context, jobID string) ([]domain.FollowUp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.FollowUp
	for _, fu := range r.s.followUps {
		if fu.JobID == jobID {
			out = append(out, fu.Clone())
		}
	}
	return out, nil
}

func (r fakeFollowUpRepo) Commit(_ context.Context, c repository.FollowUpCommit) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.commits++
	if r.s.commitErr != nil {
		return 0, r.s.commitErr
	}
	if r.s.staleCommits > 0 {
		r.s.staleCommits--
		return 0, repository.ErrStaleAggregate
	}
	job, ok := r.s.jobs[c.FollowUp.JobID]
	if !ok || job.Version != c.ExpectedJobVersion {
		return 0, repository.ErrStaleAggregate
	}
	stored, exists := r.s.followUps[c.FollowUp.ID]
	if c.PreviousStatus == nil && exists {
		return 0, repository.ErrStaleAggregate
	}
	if c.PreviousStatus != nil && (!exists || stored.Status != *c.PreviousStatus) {
		return 0, repository.ErrStaleAggregate
	}
	fu := c.FollowUp.Clone()
	fu.History = append(append([]domain.HistoryEntry(nil), stored.History...), c.NewHistory...)
	r.s.followUps[fu.ID] = fu
	job.Aggregate = c.Aggregate.Clone()
	job.Version++
	return job.Version, nil
}

type fakeStaffRepo struct {
	mu      sync.Mutex
	members map[string]domain.StaffMember
}

func newFakeStaffRepo(members ...domain.StaffMember) *fakeStaffRepo {
	r := &fakeStaffRepo{members: map[string]domain.StaffMember{}}
	for _, m := range members {
		r.members[m.ID] = m
	}
	return r
}

func (r *fakeStaffRepo) Create(_ context.Context, s *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = "staff-" + s.Email
	}
	r.members[s.ID] = *s
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, s *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.members[s.ID] = *s
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (r *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Email == email {
			out := m
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) List(_ context.Context, f repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range f.IDs {
		ids[id] = true
	}
	var out []domain.StaffMember
	for _, m := range r.members {
		if f.Role != nil && m.Role != *f.Role {
			continue
		}
		if f.Active != nil && m.Active != *f.Active {
			continue
		}
		if len(ids) > 0 && !ids[m.ID] {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func span(start, end string) domain.Interval {
	return domain.Interval{Start: mustTime(start), End: mustTime(end)}
}

func staffMember(id string, role domain.StaffRole) *domain.StaffMember {
	return &domain.StaffMember{ID: id, Name: "Name " + id, Role: role, Active: true}
}
