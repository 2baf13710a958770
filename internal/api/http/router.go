package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/job-scheduling/internal/api/http/handlers"
	"github.com/fieldops/job-scheduling/internal/auth"
	"github.com/fieldops/job-scheduling/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Jobs           *handlers.JobsHandler
	FollowUps      *handlers.FollowUpsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *RateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}

	authGroup := app.Group("/auth")
	if cfg.LoginLimiter != nil {
		authGroup.Post("/staff/login", cfg.LoginLimiter.Handler(), cfg.Staff.Login)
	} else {
		authGroup.Post("/staff/login", cfg.Staff.Login)
	}
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(), cfg.Staff.ChangePassword)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle)
	staff.Get("/", auth.RequireStaffRole(domain.StaffRoleDispatcher, domain.StaffRoleAdmin), cfg.Staff.ListStaff)
	staff.Post("/", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Staff.CreateStaff)
	staff.Patch("/:id/active", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Staff.SetStaffActive)

	schedulers := auth.RequireStaffRole(domain.StaffRoleDispatcher, domain.StaffRoleAdmin)
	jobs := app.Group("/jobs", cfg.AuthMiddleware.Handle)
	jobs.Post("/conflicts", schedulers, cfg.Jobs.CheckConflicts)
	jobs.Post("/", schedulers, cfg.Jobs.CreateJob)
	jobs.Get("/:id", auth.RequireStaffRole(), cfg.Jobs.GetJob)
	jobs.Put("/:id", schedulers, cfg.Jobs.UpdateJob)
	jobs.Post("/:id/aggregate/reconcile", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Jobs.ReconcileAggregate)
	jobs.Post("/:id/follow-ups", auth.RequireStaffRole(domain.StaffRoleTechnician, domain.StaffRoleAdmin), cfg.FollowUps.CreateFollowUp)
	jobs.Get("/:id/follow-ups", auth.RequireStaffRole(), cfg.FollowUps.ListJobFollowUps)

	followUps := app.Group("/follow-ups", cfg.AuthMiddleware.Handle)
	followUps.Get("/:id", auth.RequireStaffRole(), cfg.FollowUps.GetFollowUp)
	followUps.Post("/:id/transitions", auth.RequireStaffRole(domain.StaffRoleCSO, domain.StaffRoleAdmin), cfg.FollowUps.TransitionFollowUp)
}
