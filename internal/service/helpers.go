package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/events"
	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

func requireRole(actor *domain.StaffMember, roles ...domain.StaffRole) error {
	if actor == nil {
		return apperrors.NewUnauthorized("staff authentication required")
	}
	if !actor.Active {
		return apperrors.NewForbidden("staff inactive")
	}
	if !actor.HasRole(roles...) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func staffActor(staff *domain.StaffMember) events.Actor {
	if staff == nil {
		return events.Actor{}
	}
	return events.Actor{StaffID: staff.ID, Name: staff.Name, Role: staff.Role}
}
