package calendarsync

import (
	"context"
	"time"

	"concierge/pkg/logger"
	"concierge/pkg/model"
)

// Mirror reconciles in a background goroutine per change. The caller's
// context only contributes values: each reconcile gets its own deadline and
// outlives the request that triggered it. After Close, changes reconcile on
// the caller's goroutine.
type Mirror struct {
	rec     *Reconciler
	timeout time.Duration
	log     *logger.Logger
	tracker tracker
}

func NewMirror(rec *Reconciler, timeout time.Duration, log *logger.Logger) *Mirror {
	if log == nil {
		log = logger.Discard()
	}
	return &Mirror{rec: rec, timeout: timeout, log: log}
}

func (m *Mirror) AppointmentCreated(ctx context.Context, appt *model.Appointment) {
	m.dispatch(ctx, EventCreated, appt)
}

func (m *Mirror) AppointmentModified(ctx context.Context, appt *model.Appointment) {
	m.dispatch(ctx, EventModified, appt)
}

func (m *Mirror) AppointmentCancelled(ctx context.Context, appt *model.Appointment) {
	m.dispatch(ctx, EventCancelled, appt)
}

func (m *Mirror) dispatch(ctx context.Context, eventType string, appt *model.Appointment) {
	if appt == nil {
		return
	}
	id := appt.ID
	detached := context.WithoutCancel(ctx)

	m.tracker.goOrRun(func() {
		ctx, cancel := context.WithTimeout(detached, m.timeout)
		defer cancel()

		action, err := m.rec.Reconcile(ctx, id)
		if err != nil {
			m.log.Error("calendar sync failed",
				"appointment_id", id,
				"event", eventType,
				"error", err,
			)
			return
		}
		m.log.Info("calendar synced",
			"appointment_id", id,
			"event", eventType,
			"action", string(action),
		)
	})
}

// Close waits for in-flight reconciles or until ctx is done.
func (m *Mirror) Close(ctx context.Context) error {
	return m.tracker.close(ctx)
}
