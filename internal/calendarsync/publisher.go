package calendarsync

import (
	"context"
	"strconv"
	"time"

	"concierge/pkg/kafka"
	"concierge/pkg/logger"
	"concierge/pkg/model"
)

const (
	EventCreated   = "appointment.created"
	EventModified  = "appointment.modified"
	EventCancelled = "appointment.cancelled"

	eventSchemaVersion = "1"
)

// AppointmentEvent is the payload on the appointment events topic. It names
// the appointment; consumers reload the row rather than trust the snapshot.
type AppointmentEvent struct {
	Type          string    `json:"type"`
	AppointmentID int64     `json:"appointment_id"`
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher hands appointment changes to the calendar-sync worker through
// Kafka. Messages are keyed by appointment id so one appointment's events
// stay ordered on a partition. Publishing happens off the caller's
// goroutine; Close waits for pending publishes and must run before the
// producer is closed.
type Publisher struct {
	producer MessagePublisher
	source   string
	timeout  time.Duration
	log      *logger.Logger
	tracker  tracker
}

func NewPublisher(producer MessagePublisher, source string, timeout time.Duration, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}
	return &Publisher{
		producer: producer,
		source:   source,
		timeout:  timeout,
		log:      log,
	}
}

func (p *Publisher) AppointmentCreated(ctx context.Context, appt *model.Appointment) {
	p.publish(ctx, EventCreated, appt)
}

func (p *Publisher) AppointmentModified(ctx context.Context, appt *model.Appointment) {
	p.publish(ctx, EventModified, appt)
}

func (p *Publisher) AppointmentCancelled(ctx context.Context, appt *model.Appointment) {
	p.publish(ctx, EventCancelled, appt)
}

func (p *Publisher) publish(ctx context.Context, eventType string, appt *model.Appointment) {
	if appt == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	snapshot := *appt
	occurredAt := time.Now().UTC()
	p.tracker.goOrRun(func() {
		p.send(detached, eventType, &snapshot, occurredAt)
	})
}

func (p *Publisher) send(ctx context.Context, eventType string, appt *model.Appointment, occurredAt time.Time) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload := AppointmentEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		Status:        appt.Status,
		Date:          appt.Date,
		Time:          appt.Time,
		OccurredAt:    occurredAt,
	}

	msg := kafka.NewMessage().
		WithKey(strconv.FormatInt(appt.ID, 10)).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("failed to publish appointment event",
			"appointment_id", appt.ID,
			"event", eventType,
			"error", err,
		)
	}
}

// Close waits for pending publishes or until ctx is done.
func (p *Publisher) Close(ctx context.Context) error {
	return p.tracker.close(ctx)
}
