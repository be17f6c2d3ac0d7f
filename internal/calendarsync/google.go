package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const reminderMethodPopup = "popup"

// GoogleCalendar writes events to one Google calendar with a service
// account that was granted access to it.
type GoogleCalendar struct {
	events     *calendar.EventsService
	calendarID string
}

func NewGoogleCalendar(ctx context.Context, calendarID, credentialsFile string, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar id cannot be empty")
	}

	clientOpts := []option.ClientOption{option.WithScopes(calendar.CalendarEventsScope)}
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleCalendar{
		events:     svc.Events,
		calendarID: calendarID,
	}, nil
}

func (g *GoogleCalendar) Create(ctx context.Context, ev Event) (string, error) {
	created, err := g.events.Insert(g.calendarID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", classifyGoogleError(err)
	}
	return created.Id, nil
}

func (g *GoogleCalendar) Update(ctx context.Context, eventID string, ev Event) error {
	if _, err := g.events.Update(g.calendarID, eventID, toGoogleEvent(ev)).Context(ctx).Do(); err != nil {
		return classifyGoogleError(err)
	}
	return nil
}

func (g *GoogleCalendar) Delete(ctx context.Context, eventID string) error {
	if err := g.events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return classifyGoogleError(err)
	}
	return nil
}

func toGoogleEvent(ev Event) *calendar.Event {
	overrides := make([]*calendar.EventReminder, 0, len(ev.ReminderMinutes))
	for _, m := range ev.ReminderMinutes {
		overrides = append(overrides, &calendar.EventReminder{Method: reminderMethodPopup, Minutes: int64(m)})
	}

	return &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// classifyGoogleError maps 404/410 to ErrEventGone and other client errors
// to ErrEventRejected. Rate limits and server errors pass through so callers
// retry them.
func classifyGoogleError(err error) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return err
	}

	switch {
	case gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone:
		return fmt.Errorf("%w: %v", ErrEventGone, err)
	case gErr.Code == http.StatusTooManyRequests || gErr.Code >= 500:
		return err
	case gErr.Code == http.StatusForbidden && isRateLimitReason(gErr):
		return err
	case gErr.Code >= 400:
		return fmt.Errorf("%w: %v", ErrEventRejected, err)
	default:
		return err
	}
}

func isRateLimitReason(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
