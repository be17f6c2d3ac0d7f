package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/internal/tenant"
	"concierge/pkg/logger"
	"concierge/pkg/model"
)

type Action string

const (
	ActionNone      Action = "none"
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionRecreated Action = "recreated"
	ActionDeleted   Action = "deleted"
)

// AppointmentSource is the slice of the appointment store the reconciler
// needs.
type AppointmentSource interface {
	FindByID(ctx context.Context, id int64) (*model.Appointment, error)
	SetExternalEventID(ctx context.Context, id int64, eventID string) error
}

// Reconciler drives the calendar toward the stored state of one appointment.
// It always reloads the row, so events applied late or twice converge on the
// latest state. Calls are serialized.
type Reconciler struct {
	store  AppointmentSource
	writer EventWriter
	tenant *tenant.Tenant
	log    *logger.Logger
	mu     sync.Mutex
}

func NewReconciler(store AppointmentSource, writer EventWriter, t *tenant.Tenant, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Discard()
	}
	return &Reconciler{
		store:  store,
		writer: writer,
		tenant: t,
		log:    log,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, id int64) (Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, err := r.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return ActionNone, fmt.Errorf("%w: id %d", ErrAppointmentMissing, id)
		}
		return ActionNone, fmt.Errorf("failed to load appointment %d: %w", id, err)
	}

	switch {
	case appt.IsConfirmed() && appt.ExternalEventID == "":
		return ActionCreated, r.create(ctx, appt)

	case appt.IsConfirmed():
		ev, err := BuildEvent(r.tenant, appt)
		if err != nil {
			return ActionNone, err
		}
		err = r.writer.Update(ctx, appt.ExternalEventID, ev)
		if errors.Is(err, ErrEventGone) {
			r.log.Warn("calendar event vanished, recreating",
				"appointment_id", appt.ID,
				"event_id", appt.ExternalEventID,
			)
			return ActionRecreated, r.create(ctx, appt)
		}
		if err != nil {
			return ActionNone, fmt.Errorf("failed to update event %s: %w", appt.ExternalEventID, err)
		}
		return ActionUpdated, nil

	case appt.ExternalEventID != "":
		if err := r.writer.Delete(ctx, appt.ExternalEventID); err != nil && !errors.Is(err, ErrEventGone) {
			return ActionNone, fmt.Errorf("failed to delete event %s: %w", appt.ExternalEventID, err)
		}
		if err := r.store.SetExternalEventID(ctx, appt.ID, ""); err != nil {
			return ActionDeleted, fmt.Errorf("failed to clear event id of appointment %d: %w", appt.ID, err)
		}
		return ActionDeleted, nil

	default:
		return ActionNone, nil
	}
}

func (r *Reconciler) create(ctx context.Context, appt *model.Appointment) error {
	ev, err := BuildEvent(r.tenant, appt)
	if err != nil {
		return err
	}

	eventID, err := r.writer.Create(ctx, ev)
	if err != nil {
		return fmt.Errorf("failed to create event for appointment %d: %w", appt.ID, err)
	}

	if err := r.store.SetExternalEventID(ctx, appt.ID, eventID); err != nil {
		// The event exists remotely without a link; the next change of this
		// appointment creates a second one.
		r.log.Error("failed to store calendar event id",
			"appointment_id", appt.ID,
			"event_id", eventID,
			"error", err,
		)
		return fmt.Errorf("failed to store event id for appointment %d: %w", appt.ID, err)
	}
	return nil
}
