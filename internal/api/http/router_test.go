package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/api/http/handlers"
	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/auth"
	"github.com/fieldops/job-scheduling/internal/config"
	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/repository"
	"github.com/fieldops/job-scheduling/internal/service"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

type memStaff struct {
	members map[string]domain.StaffMember
}

func (m *memStaff) Create(_ context.Context, s *domain.StaffMember) error {
	m.members[s.ID] = *s
	return nil
}

func (m *memStaff) Update(_ context.Context, s *domain.StaffMember) error {
	m.members[s.ID] = *s
	return nil
}

func (m *memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	s, ok := m.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, s := range m.members {
		if s.Email == email {
			out := s
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStaff) List(_ context.Context, f repository.StaffFilter) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	for _, id := range f.IDs {
		s, ok := m.members[id]
		if !ok || (f.Role != nil && s.Role != *f.Role) || (f.Active != nil && s.Active != *f.Active) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type memJobs struct {
	mu          sync.Mutex
	jobs        map[string]domain.Job
	assignments []domain.Assignment
}

func (m *memJobs) Create(_ context.Context, job *domain.Job, interval domain.Interval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Version = 1
	m.jobs[job.ID] = *job
	for _, w := range job.AssignedWorkers {
		m.assignments = append(m.assignments, domain.Assignment{WorkerID: w.ID, WorkerName: w.Name, JobID: job.ID, Interval: interval})
	}
	return nil
}

func (m *memJobs) Update(_ context.Context, job *domain.Job, _ domain.Interval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Version++
	m.jobs[job.ID] = *job
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	job.Aggregate = job.Aggregate.Clone()
	return &job, nil
}

func (m *memJobs) SaveAggregate(_ context.Context, _ string, _ domain.JobAggregate, v int64) (int64, error) {
	return v + 1, nil
}

func (m *memJobs) ListForWorker(_ context.Context, workerID string, _ domain.Interval) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assignment
	for _, a := range m.assignments {
		if a.WorkerID == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type routerFixture struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	hash, err := auth.HashPassword("secret-pass", 4)
	require.NoError(t, err)
	staff := &memStaff{members: map[string]domain.StaffMember{
		"disp": {ID: "disp", Name: "Dee", Email: "dee@example.com", PasswordHash: hash, Role: domain.StaffRoleDispatcher, Active: true},
		"tech": {ID: "tech", Name: "Tia", Email: "tia@example.com", PasswordHash: hash, Role: domain.StaffRoleTechnician, Active: true},
	}}
	jobs := &memJobs{jobs: map[string]domain.Job{}}

	conflicts := service.NewScheduleConflictService(service.ScheduleConflictDependencies{Index: jobs, LookupTimeout: time.Second})
	jobService := service.NewJobService(service.JobDependencies{JobRepo: jobs, StaffRepo: staff, Conflicts: conflicts})
	authService := service.NewAuthService(cfg, staff)
	v := validation.New()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, time.Second)
	RegisterRoutes(app, RouteConfig{
		Staff:          handlers.NewStaffHandler(authService, service.NewStaffService(cfg, staff), v),
		Jobs:           handlers.NewJobsHandler(jobService, v),
		FollowUps:      handlers.NewFollowUpsHandler(nil, v),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staff),
	})
	return &routerFixture{app: app, tokens: authService.TokenManager()}
}

func (f *routerFixture) do(t *testing.T, method, path, staffID string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if staffID != "" {
		role := domain.StaffRoleDispatcher
		if staffID == "tech" {
			role = domain.StaffRoleTechnician
		}
		_, signed, err := f.tokens.GenerateToken(staffID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func jobBody(id, start, end string, override bool) map[string]any {
	return map[string]any{
		"job_id":             id,
		"start_date":         "2024-10-06",
		"end_date":           "2024-10-06",
		"start_time":         start,
		"end_time":           end,
		"assigned_workers":   []map[string]string{{"worker_id": "tech"}},
		"override_conflicts": override,
	}
}

func TestLoginIssuesToken(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/auth/staff/login", "", map[string]string{"email": "dee@example.com", "password": "secret-pass"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/auth/staff/login", "", map[string]string{"email": "dee@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJobsRequireAuthentication(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/jobs", "", jobBody("J1", "10:00", "12:00", false))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJobsRequireSchedulerRole(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/jobs", "tech", jobBody("J1", "10:00", "12:00", false))

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateJobValidatesPayload(t *testing.T) {
	f := newRouterFixture(t)
	body := jobBody("J1", "25:00", "12:00", false)

	resp := f.do(t, http.MethodPost, "/jobs", "disp", body)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.CodeValidation, decodeError(t, resp).Error.Code)
}

func TestCreateJobConflictThenOverride(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/jobs", "disp", jobBody("J1", "10:00", "12:00", false))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/jobs/conflicts", "disp", jobBody("", "11:00", "13:00", false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check struct {
		Data struct {
			HasConflicts bool `json:"has_conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
	assert.True(t, check.Data.HasConflicts)

	resp = f.do(t, http.MethodPost, "/jobs", "disp", jobBody("J2", "11:00", "13:00", false))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, apperrors.CodeScheduleConflict, body.Error.Code)
	assert.Contains(t, body.Error.Details, "report")

	resp = f.do(t, http.MethodPost, "/jobs", "disp", jobBody("J2", "11:00", "13:00", true))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/jobs/J2", "tech", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
