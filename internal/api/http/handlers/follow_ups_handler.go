package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/job-scheduling/internal/api/dto"
	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/service"
)

// FollowUpsHandler exposes follow-up endpoints.
type FollowUpsHandler struct {
	followUps *service.FollowUpService
	validator *validation.Validator
}

// NewFollowUpsHandler constructs handler.
func NewFollowUpsHandler(followUps *service.FollowUpService, v *validation.Validator) *FollowUpsHandler {
	return &FollowUpsHandler{followUps: followUps, validator: v}
}

// CreateFollowUp POST /jobs/:id/follow-ups.
func (h *FollowUpsHandler) CreateFollowUp(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.FollowUpCreateRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.followUps.CreateFollowUp(c.UserContext(), staff, service.FollowUpCreateInput{
		JobID:    c.Params("id"),
		Type:     req.Type,
		Priority: req.Priority,
		DueDate:  req.DueDate,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commitResponse(result)})
}

// ListJobFollowUps GET /jobs/:id/follow-ups.
func (h *FollowUpsHandler) ListJobFollowUps(c *fiber.Ctx) error {
	items, err := h.followUps.ListJobFollowUps(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.FollowUpResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewFollowUpResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetFollowUp GET /follow-ups/:id.
func (h *FollowUpsHandler) GetFollowUp(c *fiber.Ctx) error {
	fu, err := h.followUps.GetFollowUp(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFollowUpResponse(fu)})
}

// TransitionFollowUp POST /follow-ups/:id/transitions.
func (h *FollowUpsHandler) TransitionFollowUp(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.FollowUpTransitionRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.followUps.TransitionFollowUp(c.UserContext(), staff, c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commitResponse(result)})
}

func commitResponse(result *service.FollowUpResult) dto.FollowUpCommitResponse {
	return dto.FollowUpCommitResponse{
		FollowUp:      dto.NewFollowUpResponse(&result.FollowUp),
		FollowUpCount: result.Aggregate.FollowUpCount,
		SubStatus:     result.Aggregate.SubStatus,
		JobVersion:    result.JobVersion,
	}
}
