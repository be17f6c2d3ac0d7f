package repository

import (
	"context"
	"sort"
	"sync"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/pkg/model"
)

// MemoryStore is a process-local Store holding the same slot uniqueness rule
// as the database indexes. It backs unit tests and local runs.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[int64]model.Appointment{}}
}

func (s *MemoryStore) slotHolder(date, clock string) (int64, bool) {
	for id, row := range s.rows {
		if row.Status == model.StatusConfirmed && row.Date == date && row.Time == clock {
			return id, true
		}
	}
	return 0, false
}

func (s *MemoryStore) Insert(_ context.Context, appt *model.Appointment) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *appt
	if row.Status == "" {
		row.Status = model.StatusConfirmed
	}
	if row.Status == model.StatusConfirmed {
		if _, taken := s.slotHolder(row.Date, row.Time); taken {
			return nil, appointmentserrors.ErrDuplicateSlot
		}
	}

	s.nextID++
	row.ID = s.nextID
	row.CreatedAt = now()
	row.UpdatedAt = row.CreatedAt
	s.rows[row.ID] = row

	out := row
	return &out, nil
}

func (s *MemoryStore) FindOwned(_ context.Context, id int64, phone string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Phone != phone || row.Status != model.StatusConfirmed {
		return nil, appointmentserrors.ErrNotFound
	}
	return &row, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, appointmentserrors.ErrNotFound
	}
	return &row, nil
}

func (s *MemoryStore) IsSlotTaken(_ context.Context, date, clock string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, taken := s.slotHolder(date, clock)
	return taken && id != excludeID, nil
}

func (s *MemoryStore) BookedTimes(_ context.Context, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := []string{}
	for _, row := range s.rows {
		if row.Status == model.StatusConfirmed && row.Date == date {
			times = append(times, row.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (s *MemoryStore) UpdateSlot(_ context.Context, id int64, phone string, change model.SlotChange) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Phone != phone || row.Status != model.StatusConfirmed {
		return nil, appointmentserrors.ErrNotFound
	}
	if holder, taken := s.slotHolder(change.Date, change.Time); taken && holder != id {
		return nil, appointmentserrors.ErrDuplicateSlot
	}

	row.Date = change.Date
	row.Time = change.Time
	row.ServiceCode = change.ServiceCode
	row.DurationMinutes = change.DurationMinutes
	row.Price = change.Price
	row.UpdatedAt = now()
	s.rows[id] = row

	out := row
	return &out, nil
}

func (s *MemoryStore) Cancel(_ context.Context, id int64, phone string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Phone != phone || row.Status != model.StatusConfirmed {
		return nil, appointmentserrors.ErrNotFound
	}

	ts := now()
	row.Status = model.StatusCancelled
	row.CancelledAt = &ts
	row.UpdatedAt = ts
	s.rows[id] = row

	out := row
	return &out, nil
}

func (s *MemoryStore) ListActive(_ context.Context, phone, today, clock string) ([]*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts := []*model.Appointment{}
	for _, row := range s.rows {
		if row.Phone != phone || row.Status != model.StatusConfirmed {
			continue
		}
		if row.Date > today || (row.Date == today && row.Time > clock) {
			r := row
			appts = append(appts, &r)
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
	return appts, nil
}

func (s *MemoryStore) CustomerProfile(_ context.Context, phone, today string) (*model.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest int64
	profile := &model.CustomerProfile{Phone: phone}
	for id, row := range s.rows {
		if row.Phone != phone {
			continue
		}
		if id > latest {
			latest = id
			profile.Name = row.CustomerName
		}
		if row.Status != model.StatusConfirmed {
			continue
		}
		profile.Bookings++
		if row.Date <= today && row.Date > profile.LastVisit {
			profile.LastVisit = row.Date
		}
	}
	if latest == 0 {
		return nil, appointmentserrors.ErrNotFound
	}
	return profile, nil
}

func (s *MemoryStore) SetExternalEventID(_ context.Context, id int64, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return appointmentserrors.ErrNotFound
	}
	row.ExternalEventID = eventID
	s.rows[id] = row
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
