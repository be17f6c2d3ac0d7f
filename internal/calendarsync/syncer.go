package calendarsync

import (
	"context"

	"concierge/pkg/model"
)

// Syncer mirrors committed appointment changes to an external calendar.
// Calls never fail the caller: errors are logged by the implementation.
type Syncer interface {
	AppointmentCreated(ctx context.Context, appt *model.Appointment)
	AppointmentModified(ctx context.Context, appt *model.Appointment)
	AppointmentCancelled(ctx context.Context, appt *model.Appointment)
}

type Noop struct{}

func (Noop) AppointmentCreated(context.Context, *model.Appointment)   {}
func (Noop) AppointmentModified(context.Context, *model.Appointment)  {}
func (Noop) AppointmentCancelled(context.Context, *model.Appointment) {}
