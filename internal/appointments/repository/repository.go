package repository

import (
	"context"
	"fmt"
	"time"

	"concierge/pkg/config"
	"concierge/pkg/model"
)

const (
	AppointmentsCollection = "appointments"
	CountersCollection     = "counters"

	appointmentsCounterID = "appointments"
)

// Store persists appointments. Implementations must reject a second
// confirmed appointment on the same (date, time) with ErrDuplicateSlot and
// report missing or foreign rows with ErrNotFound.
type Store interface {
	Insert(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	// FindOwned returns a confirmed appointment owned by phone.
	FindOwned(ctx context.Context, id int64, phone string) (*model.Appointment, error)
	// FindByID returns the appointment in any status.
	FindByID(ctx context.Context, id int64) (*model.Appointment, error)
	IsSlotTaken(ctx context.Context, date, clock string, excludeID int64) (bool, error)
	BookedTimes(ctx context.Context, date string) ([]string, error)
	UpdateSlot(ctx context.Context, id int64, phone string, change model.SlotChange) (*model.Appointment, error)
	Cancel(ctx context.Context, id int64, phone string) (*model.Appointment, error)
	// ListActive returns confirmed appointments of phone strictly after
	// (today, now), ordered by date then time.
	ListActive(ctx context.Context, phone, today, now string) ([]*model.Appointment, error)
	// CustomerProfile summarizes the bookings of phone, with today bounding
	// LastVisit. It returns ErrNotFound when phone never booked.
	CustomerProfile(ctx context.Context, phone, today string) (*model.CustomerProfile, error)
	SetExternalEventID(ctx context.Context, id int64, eventID string) error
	Ping(ctx context.Context) error
}

// New returns the store for the configured backend. The matching client must
// already be connected.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		return NewMongoAppointmentRepository(cfg), nil
	case config.StorePostgres:
		return NewPostgresAppointmentRepository(cfg), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
