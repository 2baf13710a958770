package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fieldops/job-scheduling/internal/config"
	"github.com/fieldops/job-scheduling/internal/domain"
	"github.com/fieldops/job-scheduling/internal/events"
)

func newNotificationFixture(t *testing.T) (events.Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	NewNotificationService(dispatcher, logger, config.NotificationConfig{
		EmailFrom:  "dispatch@example.com",
		WebhookURL: "https://hooks.example.com/jobs",
	}).RegisterHandlers()
	return dispatcher, logs
}

func TestNotificationLogsWorkersOnJobScheduled(t *testing.T) {
	dispatcher, logs := newNotificationFixture(t)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:  events.EventJobScheduled,
		JobID: "J1",
		Payload: events.JobScheduledPayload{
			Interval: span("2024-10-06 10:00", "2024-10-06 12:00"),
			Workers:  []domain.Worker{{ID: "W1"}, {ID: "W2"}},
			Created:  true,
		},
	}))

	entries := logs.FilterMessage("job scheduled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "J1", fields["job_id"])
	assert.Equal(t, []interface{}{"W1", "W2"}, fields["worker_ids"])
	assert.Equal(t, 1, logs.FilterMessage("webhook notification queued").Len())
	assert.Zero(t, logs.FilterMessage("email notification queued").Len())
}

func TestNotificationLogsStatusChange(t *testing.T) {
	dispatcher, logs := newNotificationFixture(t)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:  events.EventFollowUpStatusChanged,
		JobID: "J1",
		Actor: events.Actor{StaffID: "cso-1"},
		Payload: events.FollowUpStatusChangedPayload{
			FollowUpID: "f1",
			Type:       domain.FollowUpTypeRepair,
			OldStatus:  domain.FollowUpStatusInProgress,
			NewStatus:  domain.FollowUpStatusClosed,
		},
	}))

	entries := logs.FilterMessage("follow-up status changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "IN_PROGRESS", fields["from"])
	assert.Equal(t, "CLOSED", fields["to"])
	assert.Equal(t, "cso-1", fields["cso_id"])
}

func TestNotificationEmailsUrgentFollowUps(t *testing.T) {
	dispatcher, logs := newNotificationFixture(t)
	publish := func(priority domain.FollowUpPriority) {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
			Type:    events.EventFollowUpCreated,
			JobID:   "J1",
			Payload: events.FollowUpCreatedPayload{FollowUpID: "f-" + string(priority), Type: domain.FollowUpTypeVerifyCustomer, Priority: priority},
		}))
	}

	publish(domain.FollowUpPriorityLow)
	publish(domain.FollowUpPriorityUrgent)

	assert.Equal(t, 1, logs.FilterMessage("email notification queued").Len())
	assert.Equal(t, 2, logs.FilterMessage("webhook notification queued").Len())
}

func TestNotificationToleratesUnexpectedPayload(t *testing.T) {
	dispatcher, logs := newNotificationFixture(t)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventJobConflictsOverridden,
		JobID:   "J1",
		Payload: "not a payload",
	}))

	assert.Equal(t, 1, logs.FilterMessage("unexpected event payload").Len())
	assert.Zero(t, logs.FilterMessage("schedule conflicts overridden").Len())
}
