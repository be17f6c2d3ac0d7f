package calendarsync

import (
	"context"
	"fmt"

	"concierge/pkg/kafka"
	"concierge/pkg/logger"
)

// NewEventHandler consumes appointment events and reconciles the calendar.
// Undecodable payloads and permanent reconcile failures are tagged so the
// consumer dead-letters them instead of retrying.
func NewEventHandler(rec *Reconciler, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev AppointmentEvent
		if err := msg.DecodeValue(&ev); err != nil {
			return kafka.NewPermanentError("failed to decode appointment event", err)
		}
		if ev.AppointmentID <= 0 {
			return kafka.NewPermanentError(fmt.Sprintf("invalid appointment id %d", ev.AppointmentID), nil)
		}

		action, err := rec.Reconcile(ctx, ev.AppointmentID)
		if err != nil {
			if IsPermanent(err) {
				return kafka.NewPermanentError("calendar sync", err)
			}
			return kafka.NewTransientError("calendar sync", err)
		}

		log.Info("calendar synced",
			"appointment_id", ev.AppointmentID,
			"event", ev.Type,
			"action", string(action),
			"event_id", msg.GetEventID(),
		)
		return nil
	}
}
