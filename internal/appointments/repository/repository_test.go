package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslatePgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, appointmentserrors.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, appointmentserrors.ErrDuplicateSlot},
		{"wrapped unique violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), appointmentserrors.ErrDuplicateSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translatePgError("op", tt.err); !errors.Is(got, tt.want) {
				t.Errorf("translatePgError() = %v, want %v", got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "23503"}
	got := translatePgError("failed to insert appointment", other)
	if errors.Is(got, appointmentserrors.ErrDuplicateSlot) || !errors.Is(got, other) {
		t.Errorf("foreign key violation should be wrapped as is, got %v", got)
	}
}

func TestTranslateMongoWriteError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	if got := translateMongoWriteError("op", dup); !errors.Is(got, appointmentserrors.ErrDuplicateSlot) {
		t.Errorf("duplicate key should map to ErrDuplicateSlot, got %v", got)
	}

	other := errors.New("connection reset")
	if got := translateMongoWriteError("failed to insert appointment", other); !errors.Is(got, other) {
		t.Errorf("other errors should be wrapped, got %v", got)
	}
}

func newAppointment(phone, date, clock string) *model.Appointment {
	return &model.Appointment{
		Phone:           phone,
		CustomerName:    "Maria Rossi",
		ServiceCode:     "taglio_donna",
		Date:            date,
		Time:            clock,
		DurationMinutes: 45,
		Price:           60,
	}
}

func TestMemoryStore_SlotUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Insert(ctx, newAppointment("393331234567", "2026-11-03", "10:00"))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if first.ID != 1 || first.Status != model.StatusConfirmed {
		t.Errorf("Insert() = id %d status %s", first.ID, first.Status)
	}

	if _, err := store.Insert(ctx, newAppointment("393339999999", "2026-11-03", "10:00")); !errors.Is(err, appointmentserrors.ErrDuplicateSlot) {
		t.Fatalf("second insert error = %v, want ErrDuplicateSlot", err)
	}

	if _, err := store.Cancel(ctx, first.ID, "393331234567"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := store.Insert(ctx, newAppointment("393339999999", "2026-11-03", "10:00")); err != nil {
		t.Fatalf("insert after cancel error = %v", err)
	}
}

func TestMemoryStore_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, dups := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Insert(ctx, newAppointment(fmt.Sprintf("39333000%04d", i), "2026-11-03", "11:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, appointmentserrors.ErrDuplicateSlot):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || dups != 19 {
		t.Errorf("wins = %d, dups = %d, want 1 and 19", wins, dups)
	}
}

func TestMemoryStore_OwnershipScope(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	appt, _ := store.Insert(ctx, newAppointment("393331234567", "2026-11-03", "10:00"))

	if _, err := store.FindOwned(ctx, appt.ID, "393330000000"); !errors.Is(err, appointmentserrors.ErrNotFound) {
		t.Errorf("foreign phone lookup error = %v, want ErrNotFound", err)
	}
	if _, err := store.Cancel(ctx, appt.ID, "393330000000"); !errors.Is(err, appointmentserrors.ErrNotFound) {
		t.Errorf("foreign phone cancel error = %v, want ErrNotFound", err)
	}
	if _, err := store.UpdateSlot(ctx, appt.ID, "393330000000", model.SlotChange{Date: "2026-11-04", Time: "10:00"}); !errors.Is(err, appointmentserrors.ErrNotFound) {
		t.Errorf("foreign phone update error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ListActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	phone := "393331234567"

	for _, slot := range [][2]string{
		{"2026-11-05", "09:00"},
		{"2026-11-03", "15:00"},
		{"2026-11-03", "09:00"},
		{"2026-11-02", "17:00"},
	} {
		if _, err := store.Insert(ctx, newAppointment(phone, slot[0], slot[1])); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if _, err := store.Insert(ctx, newAppointment("393330000000", "2026-11-06", "10:00")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.ListActive(ctx, phone, "2026-11-03", "12:00")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}

	want := []string{"2026-11-03 15:00", "2026-11-05 09:00"}
	if len(got) != len(want) {
		t.Fatalf("ListActive() returned %d rows, want %d", len(got), len(want))
	}
	for i, appt := range got {
		if slot := appt.Date + " " + appt.Time; slot != want[i] {
			t.Errorf("row %d = %s, want %s", i, slot, want[i])
		}
	}
}

func TestMemoryStore_CustomerProfile(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	phone := "393331234567"

	if _, err := store.CustomerProfile(ctx, phone, "2026-11-03"); !errors.Is(err, appointmentserrors.ErrNotFound) {
		t.Fatalf("CustomerProfile() for unknown phone error = %v, want ErrNotFound", err)
	}

	past, err := store.Insert(ctx, newAppointment(phone, "2026-10-20", "10:00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, newAppointment(phone, "2026-10-27", "10:00")); err != nil {
		t.Fatal(err)
	}
	upcoming := newAppointment(phone, "2026-11-10", "10:00")
	upcoming.CustomerName = "Maria Bianchi"
	if _, err := store.Insert(ctx, upcoming); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, newAppointment("393339999999", "2026-10-30", "10:00")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Cancel(ctx, past.ID, phone); err != nil {
		t.Fatal(err)
	}

	got, err := store.CustomerProfile(ctx, phone, "2026-11-03")
	if err != nil {
		t.Fatalf("CustomerProfile() error = %v", err)
	}
	want := model.CustomerProfile{Phone: phone, Name: "Maria Bianchi", Bookings: 2, LastVisit: "2026-10-27"}
	if *got != want {
		t.Errorf("CustomerProfile() = %+v, want %+v", *got, want)
	}
}
