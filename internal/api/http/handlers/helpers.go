package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/job-scheduling/internal/api/validation"
	"github.com/fieldops/job-scheduling/internal/auth"
	"github.com/fieldops/job-scheduling/internal/domain"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

func bindAndValidate(c *fiber.Ctx, v *validation.Validator, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return v.Struct(out)
}

func currentStaff(c *fiber.Ctx) (*domain.StaffMember, error) {
	staff := auth.StaffFromContext(c)
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff authentication required")
	}
	return staff, nil
}
