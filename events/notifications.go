package events

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// NotificationSink delivers broadcast notifications for tournament and
// reward events. Delivery is fire-and-forget: failures are logged and never
// propagate to the operation that emitted the event.
type NotificationSink interface {
	NotifyAll(ctx context.Context, eventType string, payload map[string]any) error
}

// RegisterNotifications subscribes the sink to the broadcast-worthy events.
func RegisterNotifications(bus *Bus, sink NotificationSink) {
	bus.Subscribe(EventTypeTournamentCreated, func(ctx context.Context, event Event) {
		e := event.(TournamentCreatedEvent)
		notify(ctx, sink, "tournament_created", map[string]any{
			"tournament_id": e.TournamentID,
			"name":          e.Name,
			"entry_fee":     e.EntryFee,
			"creator_id":    e.CreatorID,
		})
	})

	bus.Subscribe(EventTypeTournamentCompleted, func(ctx context.Context, event Event) {
		e := event.(TournamentCompletedEvent)
		notify(ctx, sink, "tournament_completed", map[string]any{
			"tournament_id": e.TournamentID,
			"winner_id":     e.WinnerID,
			"winner_payout": e.WinnerPayout,
		})
	})

	bus.Subscribe(EventTypeUserBlocked, func(ctx context.Context, event Event) {
		e := event.(UserBlockedEvent)
		notify(ctx, sink, "user_blocked", map[string]any{
			"user_id": e.UserID,
			"reason":  e.Reason,
		})
	})
}

func notify(ctx context.Context, sink NotificationSink, eventType string, payload map[string]any) {
	if err := sink.NotifyAll(ctx, eventType, payload); err != nil {
		log.WithFields(log.Fields{
			"eventType": eventType,
		}).WithError(err).Warn("Notification delivery failed")
	}
}

// LogNotificationSink is the default sink: it just logs the broadcast.
type LogNotificationSink struct{}

func (LogNotificationSink) NotifyAll(ctx context.Context, eventType string, payload map[string]any) error {
	log.WithFields(log.Fields{
		"eventType": eventType,
		"payload":   payload,
	}).Info("Broadcast notification")
	return nil
}
