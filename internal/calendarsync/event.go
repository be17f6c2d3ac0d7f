package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"concierge/internal/tenant"
	"concierge/pkg/model"
)

var (
	// ErrEventGone reports that the remote event was deleted out of band
	// (HTTP 404 or 410).
	ErrEventGone = errors.New("calendar event no longer exists")

	// ErrEventRejected reports a request the calendar refused for good.
	ErrEventRejected = errors.New("calendar rejected the event")

	ErrAppointmentMissing = errors.New("appointment to mirror does not exist")

	ErrInvalidAppointment = errors.New("appointment cannot be mapped to a calendar event")
)

// ReminderMinutes are the popup reminders attached to every mirrored event.
var ReminderMinutes = []int{60, 15}

type Event struct {
	Summary         string
	Description     string
	Start           time.Time
	End             time.Time
	TimeZone        string
	ReminderMinutes []int
}

// EventWriter is the remote calendar. Update and Delete return ErrEventGone
// when the event id is unknown to the calendar.
type EventWriter interface {
	Create(ctx context.Context, ev Event) (string, error)
	Update(ctx context.Context, eventID string, ev Event) error
	Delete(ctx context.Context, eventID string) error
}

var descriptionLabels = map[string][4]string{
	tenant.LangIT: {"Cliente", "Telefono", "Servizio", "Prezzo"},
	tenant.LangEN: {"Customer", "Phone", "Service", "Price"},
}

// BuildEvent maps an appointment to the event mirrored on the business
// calendar, in the tenant's primary language and timezone.
func BuildEvent(t *tenant.Tenant, appt *model.Appointment) (Event, error) {
	loc := t.Location()
	start, err := appt.Start(loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: appointment %d: %v", ErrInvalidAppointment, appt.ID, err)
	}

	duration := appt.DurationMinutes
	if duration <= 0 {
		if svc, ok := t.Service(appt.ServiceCode); ok {
			duration = svc.DurationMinutes
		}
	}
	if duration <= 0 {
		return Event{}, fmt.Errorf("%w: appointment %d has no duration", ErrInvalidAppointment, appt.ID)
	}

	lang := t.PrimaryLanguage()
	labels, ok := descriptionLabels[lang]
	if !ok {
		labels = descriptionLabels[tenant.LangEN]
	}
	serviceName := t.ServiceName(appt.ServiceCode, lang)

	var desc strings.Builder
	fmt.Fprintf(&desc, "%s: %s\n", labels[0], appt.CustomerName)
	fmt.Fprintf(&desc, "%s: +%s\n", labels[1], appt.Phone)
	fmt.Fprintf(&desc, "%s: %s\n", labels[2], serviceName)
	fmt.Fprintf(&desc, "%s: %s", labels[3], t.PriceLabel(appt.Price))

	return Event{
		Summary:         fmt.Sprintf("%s - %s", serviceName, appt.CustomerName),
		Description:     desc.String(),
		Start:           start,
		End:             start.Add(time.Duration(duration) * time.Minute),
		TimeZone:        loc.String(),
		ReminderMinutes: append([]int(nil), ReminderMinutes...),
	}, nil
}

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrAppointmentMissing) ||
		errors.Is(err, ErrInvalidAppointment) ||
		errors.Is(err, ErrEventRejected)
}
