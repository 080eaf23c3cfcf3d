package cmd

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/recruiter-reports/internal/core/events"
)

// registerReportSubscribers logs every finished report run. Notification
// delivery hangs off the same events.
func registerReportSubscribers(bus *events.EventBus, log *slog.Logger) {
	logEvent := func(ctx context.Context, event events.Event) error {
		log.Info("report run finished",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(events.EventTypeRankingCalculated, logEvent)
	bus.Subscribe(events.EventTypeHoursCalculated, logEvent)
}
