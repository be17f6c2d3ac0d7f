package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"concierge/internal/appointments/repository"
	"concierge/internal/tenant"
	"concierge/pkg/kafka"
	"concierge/pkg/logger"
	"concierge/pkg/model"
)

type fakeWriter struct {
	mu        sync.Mutex
	seq       int
	events    map[string]Event
	createErr error
	updateErr error
	deleteErr error
	calls     []string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{events: map[string]Event{}}
}

func (w *fakeWriter) Create(_ context.Context, ev Event) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "create")
	if w.createErr != nil {
		return "", w.createErr
	}
	w.seq++
	id := fmt.Sprintf("evt-%d", w.seq)
	w.events[id] = ev
	return id, nil
}

func (w *fakeWriter) Update(_ context.Context, eventID string, ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "update")
	if w.updateErr != nil {
		return w.updateErr
	}
	if _, ok := w.events[eventID]; !ok {
		return ErrEventGone
	}
	w.events[eventID] = ev
	return nil
}

func (w *fakeWriter) Delete(_ context.Context, eventID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, "delete")
	if w.deleteErr != nil {
		return w.deleteErr
	}
	if _, ok := w.events[eventID]; !ok {
		return ErrEventGone
	}
	delete(w.events, eventID)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
}

func insertAppointment(t *testing.T, store *repository.MemoryStore, clock string) *model.Appointment {
	t.Helper()
	appt, err := store.Insert(context.Background(), &model.Appointment{
		Phone:           "393331234567",
		CustomerName:    "Anna",
		ServiceCode:     "taglio_donna",
		Date:            "2026-01-13",
		Time:            clock,
		DurationMinutes: 45,
		Price:           60,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return appt
}

func TestBuildEvent(t *testing.T) {
	ten := tenant.Default()
	appt := &model.Appointment{
		ID:              7,
		Phone:           "393331234567",
		CustomerName:    "Anna",
		ServiceCode:     "taglio_donna",
		Date:            "2026-01-13",
		Time:            "10:00",
		DurationMinutes: 45,
		Price:           60,
	}

	ev, err := BuildEvent(ten, appt)
	if err != nil {
		t.Fatalf("BuildEvent() error = %v", err)
	}

	if ev.Summary != "Taglio Donna - Anna" {
		t.Errorf("Summary = %q", ev.Summary)
	}
	for _, want := range []string{"Cliente: Anna", "Telefono: +393331234567", "Servizio: Taglio Donna", "Prezzo: €60"} {
		if !strings.Contains(ev.Description, want) {
			t.Errorf("Description %q missing %q", ev.Description, want)
		}
	}
	if ev.TimeZone != "Europe/Rome" {
		t.Errorf("TimeZone = %q", ev.TimeZone)
	}
	if got := ev.Start.Format("2006-01-02T15:04"); got != "2026-01-13T10:00" {
		t.Errorf("Start = %s", got)
	}
	if got := ev.End.Sub(ev.Start); got != 45*time.Minute {
		t.Errorf("duration = %s", got)
	}
	if len(ev.ReminderMinutes) != 2 || ev.ReminderMinutes[0] != 60 || ev.ReminderMinutes[1] != 15 {
		t.Errorf("ReminderMinutes = %v", ev.ReminderMinutes)
	}
}

func TestBuildEvent_Invalid(t *testing.T) {
	ten := tenant.Default()

	_, err := BuildEvent(ten, &model.Appointment{ID: 1, Date: "13/01/2026", Time: "10:00", DurationMinutes: 30})
	if !errors.Is(err, ErrInvalidAppointment) {
		t.Errorf("bad date error = %v", err)
	}

	_, err = BuildEvent(ten, &model.Appointment{ID: 2, Date: "2026-01-13", Time: "10:00", ServiceCode: "gone"})
	if !errors.Is(err, ErrInvalidAppointment) {
		t.Errorf("no duration error = %v", err)
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	ten := tenant.Default()

	t.Run("creates then updates", func(t *testing.T) {
		store := repository.NewMemoryStore()
		writer := newFakeWriter()
		rec := NewReconciler(store, writer, ten, testLogger())
		appt := insertAppointment(t, store, "10:00")

		action, err := rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionCreated {
			t.Fatalf("first reconcile = %s, %v", action, err)
		}
		row, _ := store.FindByID(ctx, appt.ID)
		if row.ExternalEventID != "evt-1" {
			t.Fatalf("event id = %q", row.ExternalEventID)
		}

		if _, err := store.UpdateSlot(ctx, appt.ID, appt.Phone, model.SlotChange{
			Date: "2026-01-13", Time: "11:30", ServiceCode: "taglio_donna", DurationMinutes: 45, Price: 60,
		}); err != nil {
			t.Fatalf("update slot: %v", err)
		}

		action, err = rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionUpdated {
			t.Fatalf("second reconcile = %s, %v", action, err)
		}
		if got := writer.events["evt-1"].Start.Format("15:04"); got != "11:30" {
			t.Errorf("event start = %s, want 11:30", got)
		}
	})

	t.Run("recreates vanished event", func(t *testing.T) {
		store := repository.NewMemoryStore()
		writer := newFakeWriter()
		rec := NewReconciler(store, writer, ten, testLogger())
		appt := insertAppointment(t, store, "10:00")
		_ = store.SetExternalEventID(ctx, appt.ID, "deleted-by-hand")

		action, err := rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionRecreated {
			t.Fatalf("reconcile = %s, %v", action, err)
		}
		row, _ := store.FindByID(ctx, appt.ID)
		if row.ExternalEventID != "evt-1" {
			t.Errorf("event id = %q, want evt-1", row.ExternalEventID)
		}
	})

	t.Run("cancel deletes and clears id", func(t *testing.T) {
		store := repository.NewMemoryStore()
		writer := newFakeWriter()
		rec := NewReconciler(store, writer, ten, testLogger())
		appt := insertAppointment(t, store, "10:00")
		if _, err := rec.Reconcile(ctx, appt.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Cancel(ctx, appt.ID, appt.Phone); err != nil {
			t.Fatal(err)
		}

		action, err := rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionDeleted {
			t.Fatalf("reconcile = %s, %v", action, err)
		}
		if writer.count() != 0 {
			t.Errorf("events left = %d", writer.count())
		}
		row, _ := store.FindByID(ctx, appt.ID)
		if row.ExternalEventID != "" {
			t.Errorf("event id not cleared: %q", row.ExternalEventID)
		}

		action, err = rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionNone {
			t.Errorf("repeat reconcile = %s, %v", action, err)
		}
	})

	t.Run("cancel tolerates gone event", func(t *testing.T) {
		store := repository.NewMemoryStore()
		writer := newFakeWriter()
		rec := NewReconciler(store, writer, ten, testLogger())
		appt := insertAppointment(t, store, "10:00")
		_ = store.SetExternalEventID(ctx, appt.ID, "never-existed")
		_, _ = store.Cancel(ctx, appt.ID, appt.Phone)

		action, err := rec.Reconcile(ctx, appt.ID)
		if err != nil || action != ActionDeleted {
			t.Errorf("reconcile = %s, %v", action, err)
		}
	})

	t.Run("missing appointment is permanent", func(t *testing.T) {
		rec := NewReconciler(repository.NewMemoryStore(), newFakeWriter(), ten, testLogger())

		_, err := rec.Reconcile(ctx, 99)
		if !errors.Is(err, ErrAppointmentMissing) || !IsPermanent(err) {
			t.Errorf("error = %v, want permanent ErrAppointmentMissing", err)
		}
	})

	t.Run("writer failure is not permanent", func(t *testing.T) {
		store := repository.NewMemoryStore()
		writer := newFakeWriter()
		writer.createErr = errors.New("503 backend error")
		rec := NewReconciler(store, writer, ten, testLogger())
		appt := insertAppointment(t, store, "10:00")

		_, err := rec.Reconcile(ctx, appt.ID)
		if err == nil || IsPermanent(err) {
			t.Errorf("error = %v, want transient", err)
		}
		row, _ := store.FindByID(ctx, appt.ID)
		if row.ExternalEventID != "" {
			t.Errorf("event id set after failure: %q", row.ExternalEventID)
		}
	})
}

func TestMirror(t *testing.T) {
	store := repository.NewMemoryStore()
	writer := newFakeWriter()
	mirror := NewMirror(NewReconciler(store, writer, tenant.Default(), testLogger()), time.Second, testLogger())
	appt := insertAppointment(t, store, "10:00")

	ctx, cancel := context.WithCancel(context.Background())
	mirror.AppointmentCreated(ctx, appt)
	cancel()

	waitCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	if err := mirror.Close(waitCtx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	row, _ := store.FindByID(context.Background(), appt.ID)
	if row.ExternalEventID == "" || writer.count() != 1 {
		t.Fatalf("event not mirrored despite cancelled request context: id=%q events=%d", row.ExternalEventID, writer.count())
	}

	cancelled, err := store.Cancel(context.Background(), appt.ID, appt.Phone)
	if err != nil {
		t.Fatal(err)
	}
	mirror.AppointmentCancelled(context.Background(), cancelled)
	if err := mirror.Close(waitCtx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if writer.count() != 0 {
		t.Errorf("events left after cancel = %d", writer.count())
	}
}

func TestMirror_SwallowsFailures(t *testing.T) {
	store := repository.NewMemoryStore()
	writer := newFakeWriter()
	writer.createErr = errors.New("calendar down")
	mirror := NewMirror(NewReconciler(store, writer, tenant.Default(), testLogger()), time.Second, testLogger())

	mirror.AppointmentCreated(context.Background(), insertAppointment(t, store, "10:00"))
	mirror.AppointmentCreated(context.Background(), nil)

	if err := mirror.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestMirror_AfterCloseReconcilesInline(t *testing.T) {
	store := repository.NewMemoryStore()
	writer := newFakeWriter()
	mirror := NewMirror(NewReconciler(store, writer, tenant.Default(), testLogger()), time.Second, testLogger())
	if err := mirror.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	appt := insertAppointment(t, store, "10:00")
	mirror.AppointmentCreated(context.Background(), appt)

	if writer.count() != 1 {
		t.Fatalf("change after Close was not mirrored before returning: events=%d", writer.count())
	}
	row, _ := store.FindByID(context.Background(), appt.ID)
	if row.ExternalEventID == "" {
		t.Error("event id not stored")
	}
}

type capturePublisher struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	err     error
	release chan struct{}
}

func (c *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return c.err
}

func (c *capturePublisher) published() []kafka.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]kafka.Message(nil), c.msgs...)
}

func TestPublisher(t *testing.T) {
	producer := &capturePublisher{}
	pub := NewPublisher(producer, "assistant", time.Second, testLogger())
	appt := &model.Appointment{ID: 42, Status: model.StatusConfirmed, Date: "2026-01-13", Time: "10:00"}

	pub.AppointmentCreated(context.Background(), appt)
	pub.AppointmentModified(context.Background(), appt)
	pub.AppointmentCancelled(context.Background(), appt)

	if err := pub.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	msgs := producer.published()
	if len(msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(msgs))
	}

	seen := map[string]bool{}
	for i, msg := range msgs {
		if msg.Key != "42" {
			t.Errorf("msg %d key = %q", i, msg.Key)
		}
		var ev AppointmentEvent
		if err := msg.DecodeValue(&ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.AppointmentID != 42 || ev.Type != msg.GetEventType() || ev.Time != "10:00" {
			t.Errorf("payload = %+v, header type %q", ev, msg.GetEventType())
		}
		seen[msg.GetEventType()] = true
	}
	for _, want := range []string{EventCreated, EventModified, EventCancelled} {
		if !seen[want] {
			t.Errorf("no %s message published", want)
		}
	}

	producer.err = errors.New("broker down")
	pub.AppointmentCreated(context.Background(), appt)
	if len(producer.published()) != 4 {
		t.Error("publish after Close should run before returning")
	}
}

func TestPublisher_DoesNotBlockCaller(t *testing.T) {
	producer := &capturePublisher{release: make(chan struct{})}
	pub := NewPublisher(producer, "assistant", 5*time.Second, testLogger())
	appt := &model.Appointment{ID: 7, Status: model.StatusConfirmed, Date: "2026-01-13", Time: "10:00"}

	returned := make(chan struct{})
	go func() {
		pub.AppointmentCreated(context.Background(), appt)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("AppointmentCreated blocked on a slow producer")
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pub.Close(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close() with pending publish error = %v, want deadline exceeded", err)
	}

	close(producer.release)
	if err := pub.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(producer.published()) != 1 {
		t.Errorf("published %d messages, want 1", len(producer.published()))
	}
}

func TestEventHandler(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	writer := newFakeWriter()
	handler := NewEventHandler(NewReconciler(store, writer, tenant.Default(), testLogger()), testLogger())
	appt := insertAppointment(t, store, "10:00")

	event := func(id int64) kafka.Message {
		return kafka.NewMessage().WithKey(fmt.Sprint(id)).WithValue(AppointmentEvent{Type: EventCreated, AppointmentID: id}).Build()
	}

	if err := handler(ctx, event(appt.ID)); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if writer.count() != 1 {
		t.Errorf("events = %d, want 1", writer.count())
	}

	tests := []struct {
		name string
		msg  kafka.Message
		want kafka.ErrorType
	}{
		{"undecodable", kafka.NewMessage().WithKey("x").WithRawValue([]byte("not json")).Build(), kafka.ErrorTypePermanent},
		{"zero id", event(0), kafka.ErrorTypePermanent},
		{"unknown appointment", event(999), kafka.ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler(ctx, tt.msg)
			if got := kafka.ClassifyError(err); got != tt.want {
				t.Errorf("class = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}

	t.Run("calendar outage is transient", func(t *testing.T) {
		other := insertAppointment(t, store, "11:00")
		writer.createErr = errors.New("503")
		defer func() { writer.createErr = nil }()

		err := handler(ctx, event(other.ID))
		if got := kafka.ClassifyError(err); got != kafka.ErrorTypeTransient {
			t.Errorf("class = %v, want transient (err %v)", got, err)
		}
	})
}
