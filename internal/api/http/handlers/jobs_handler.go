package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/job-scheduling/internal/api/dto"
	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/service"
)

// JobsHandler exposes job scheduling endpoints.
type JobsHandler struct {
	jobs      *service.JobService
	validator *validation.Validator
}

// NewJobsHandler constructs handler.
func NewJobsHandler(jobs *service.JobService, v *validation.Validator) *JobsHandler {
	return &JobsHandler{jobs: jobs, validator: v}
}

// CheckConflicts POST /jobs/conflicts.
func (h *JobsHandler) CheckConflicts(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.ConflictCheckRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	report, err := h.jobs.CheckSchedule(c.UserContext(), staff, req.JobID, req.Schedule(), dto.Workers(req.AssignedWorkers))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// CreateJob POST /jobs.
func (h *JobsHandler) CreateJob(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.JobSaveRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.jobs.CreateJob(c.UserContext(), staff, saveInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.JobSaveResponse{
		Job:    dto.NewJobResponse(result.Job),
		Report: result.Report,
	}})
}

// UpdateJob PUT /jobs/:id.
func (h *JobsHandler) UpdateJob(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.JobSaveRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.jobs.UpdateJob(c.UserContext(), staff, c.Params("id"), saveInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.JobSaveResponse{
		Job:    dto.NewJobResponse(result.Job),
		Report: result.Report,
	}})
}

// GetJob GET /jobs/:id.
func (h *JobsHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.jobs.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewJobResponse(job)})
}

// ReconcileAggregate POST /jobs/:id/aggregate/reconcile.
func (h *JobsHandler) ReconcileAggregate(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	job, err := h.jobs.ReconcileAggregate(c.UserContext(), staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewJobResponse(job)})
}

func saveInput(req dto.JobSaveRequest) service.JobSaveInput {
	return service.JobSaveInput{
		ID:                req.JobID,
		Title:             req.Title,
		CustomerName:      req.CustomerName,
		Schedule:          req.Schedule(),
		Workers:           dto.Workers(req.AssignedWorkers),
		OverrideConflicts: req.OverrideConflicts,
		ExpectedVersion:   req.ExpectedVersion,
	}
}
