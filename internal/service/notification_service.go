package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/job-scheduling/internal/config"
	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/events"
)

// NotificationService turns scheduling events into notifications. Dispatchers
// hear about overrides and urgent follow-ups by email; everything goes to the webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventJobScheduled, n.handleJobScheduled)
	n.dispatcher.Subscribe(events.EventJobConflictsOverridden, n.handleConflictsOverridden)
	n.dispatcher.Subscribe(events.EventFollowUpCreated, n.handleFollowUpCreated)
	n.dispatcher.Subscribe(events.EventFollowUpStatusChanged, n.handleFollowUpStatusChanged)
}

func (n *NotificationService) handleJobScheduled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.JobScheduledPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	n.logger.Info("job scheduled",
		zap.String("job_id", event.JobID),
		zap.Bool("created", payload.Created),
		zap.Time("start", payload.Interval.Start),
		zap.Time("end", payload.Interval.End),
		zap.Strings("worker_ids", workerIDs(payload.Workers)))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleConflictsOverridden(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.JobConflictsOverriddenPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	n.logger.Warn("schedule conflicts overridden",
		zap.String("job_id", event.JobID),
		zap.String("staff_id", event.Actor.StaffID),
		zap.Strings("conflicting_workers", payload.ConflictingWorkers),
		zap.Strings("unverified_workers", payload.UnverifiedWorkers))
	n.sendEmail(ctx, event)
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleFollowUpCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FollowUpCreatedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	n.logger.Info("follow-up created",
		zap.String("job_id", event.JobID),
		zap.String("follow_up_id", payload.FollowUpID),
		zap.String("type", string(payload.Type)),
		zap.String("priority", string(payload.Priority)),
		zap.String("technician_id", event.Actor.StaffID))
	if payload.Priority == domain.FollowUpPriorityUrgent || payload.Priority == domain.FollowUpPriorityHigh {
		n.sendEmail(ctx, event)
	}
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleFollowUpStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.FollowUpStatusChangedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	n.logger.Info("follow-up status changed",
		zap.String("job_id", event.JobID),
		zap.String("follow_up_id", payload.FollowUpID),
		zap.String("type", string(payload.Type)),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)),
		zap.String("cso_id", event.Actor.StaffID))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) unexpectedPayload(event events.Event) error {
	n.logger.Warn("unexpected event payload",
		zap.String("event_type", string(event.Type)),
		zap.String("job_id", event.JobID))
	return nil
}

func (n *NotificationService) sendEmail(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification queued",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("job_id", event.JobID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification queued",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("job_id", event.JobID),
		zap.String("event_type", string(event.Type)))
}
