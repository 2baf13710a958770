package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/job-scheduling/internal/api/dto"
	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/service"
)

// StaffHandler exposes staff/auth endpoints.
type StaffHandler struct {
	authService  *service.AuthService
	staffService *service.StaffService
	validator    *validation.Validator
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, staffService *service.StaffService, v *validation.Validator) *StaffHandler {
	return &StaffHandler{authService: authService, staffService: staffService, validator: v}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}

	staff, token, signed, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.NewStaffResponse(staff),
			"auth":  dto.AuthResponse{Token: signed, TokenID: token.ID, ExpiresAt: token.ExpiresAt},
		},
	})
}

// ChangePassword handles POST /auth/password/change.
func (h *StaffHandler) ChangePassword(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), staff, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListStaff handles GET /staff?role=&active=.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	filters := service.StaffListFilters{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if role := c.Query("role"); role != "" {
		r := domain.StaffRole(role)
		filters.Role = &r
	}
	if active := c.Query("active"); active != "" {
		if v, err := strconv.ParseBool(active); err == nil {
			filters.Active = &v
		}
	}
	members, err := h.staffService.ListStaff(c.UserContext(), staff, filters)
	if err != nil {
		return err
	}
	out := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		out = append(out, dto.NewStaffResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateStaff handles POST /staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	member, err := h.staffService.CreateStaffMember(c.UserContext(), staff, service.StaffCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

// SetStaffActive handles PATCH /staff/:id/active.
func (h *StaffHandler) SetStaffActive(c *fiber.Ctx) error {
	staff, err := currentStaff(c)
	if err != nil {
		return err
	}
	var req dto.StaffActiveRequest
	if err := bindAndValidate(c, h.validator, &req); err != nil {
		return err
	}
	member, err := h.staffService.SetStaffActive(c.UserContext(), staff, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}
