package service

import (
	"context"
	"errors"
	"time"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/internal/appointments/repository"
	"concierge/internal/appointments/validator"
	"concierge/internal/calendarsync"
	"concierge/internal/tenant"
	apperrors "concierge/pkg/errors"
	"concierge/pkg/logger"
	"concierge/pkg/model"
	"concierge/pkg/sanitizer"
)

type AppointmentService interface {
	Create(ctx context.Context, phone, name, serviceCode, date, clock string) (*model.Appointment, error)
	Modify(ctx context.Context, phone string, id int64, req ModifyRequest) (*ModifyResult, error)
	Cancel(ctx context.Context, phone string, id int64) (*model.Appointment, error)
	ListActive(ctx context.Context, phone string) ([]*model.Appointment, error)
	CheckAvailability(ctx context.Context, date, clock string) (*Availability, error)
	AvailableSlots(ctx context.Context, date string) (*DaySlots, error)
	// CustomerProfile returns nil without error for a phone that never booked.
	CustomerProfile(ctx context.Context, phone string) (*model.CustomerProfile, error)
}

// ModifyRequest holds the requested changes; empty fields keep the current value.
type ModifyRequest struct {
	Date    string
	Time    string
	Service string
}

type Change struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ModifyResult struct {
	Appointment *model.Appointment
	Changes     map[string]Change
}

type Availability struct {
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Available  bool              `json:"available"`
	ReasonCode string            `json:"reason,omitempty"`
	Messages   map[string]string `json:"messages,omitempty"`
}

type DaySlots struct {
	Date       string            `json:"date"`
	Slots      []string          `json:"available_slots"`
	Closed     bool              `json:"closed,omitempty"`
	ReasonCode string            `json:"reason,omitempty"`
	Messages   map[string]string `json:"messages,omitempty"`
}

type Option func(*appointmentService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *appointmentService) {
		s.now = now
	}
}

type appointmentService struct {
	store     repository.Store
	tenant    *tenant.Tenant
	validator *validator.CalendarValidator
	syncer    calendarsync.Syncer
	log       *logger.Logger
	now       func() time.Time
}

func NewAppointmentService(
	store repository.Store,
	t *tenant.Tenant,
	syncer calendarsync.Syncer,
	log *logger.Logger,
	opts ...Option,
) AppointmentService {
	if syncer == nil {
		syncer = calendarsync.Noop{}
	}
	s := &appointmentService{
		store:     store,
		tenant:    t,
		validator: validator.NewCalendarValidator(t.Calendar),
		syncer:    syncer,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *appointmentService) localNow() time.Time {
	return s.now().In(s.tenant.Location())
}

func (s *appointmentService) Create(ctx context.Context, phone, name, serviceCode, date, clock string) (*model.Appointment, error) {
	phone = sanitizer.NormalizePhone(phone)
	if phone == "" {
		return nil, validationError(appointmentserrors.CodeInvalidPhone, invalidPhoneMessages(), nil)
	}

	name = sanitizer.NormalizeName(name)
	if name == "" {
		return nil, validationError(appointmentserrors.CodeCustomerNameRequired, nameRequiredMessages(), nil)
	}

	svc, err := s.lookupService(serviceCode)
	if err != nil {
		return nil, err
	}

	res := s.validator.ValidateSlot(date, clock)
	if !res.Valid {
		return nil, res.Err()
	}
	if err := s.ensureNotPast(res.Date, res.Time); err != nil {
		return nil, err
	}

	taken, err := s.store.IsSlotTaken(ctx, res.Date, res.Time, 0)
	if err != nil {
		s.log.Error("Failed to check slot", "operation", "create", "date", res.Date, "time", res.Time, "error", err)
		return nil, apperrors.Internal("Failed to check slot availability", err)
	}
	if taken {
		return nil, slotAlreadyBookedError(res.Date, res.Time)
	}

	appt, err := s.store.Insert(ctx, &model.Appointment{
		Phone:           phone,
		CustomerName:    name,
		ServiceCode:     svc.Code,
		Date:            res.Date,
		Time:            res.Time,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Status:          model.StatusConfirmed,
	})
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrDuplicateSlot) {
			s.log.Warn("Slot taken between check and insert", "date", res.Date, "time", res.Time, "phone", sanitizer.MaskPhone(phone))
			return nil, slotJustBookedError(res.Date, res.Time)
		}
		s.log.Error("Failed to insert appointment", "error", err)
		return nil, apperrors.Internal("Failed to create appointment", err)
	}

	s.log.Info("Appointment created",
		"id", appt.ID,
		"phone", sanitizer.MaskPhone(phone),
		"service", appt.ServiceCode,
		"date", appt.Date,
		"time", appt.Time,
	)
	s.syncer.AppointmentCreated(ctx, appt)
	return appt, nil
}

func (s *appointmentService) Modify(ctx context.Context, phone string, id int64, req ModifyRequest) (*ModifyResult, error) {
	phone = sanitizer.NormalizePhone(phone)
	if phone == "" {
		return nil, validationError(appointmentserrors.CodeInvalidPhone, invalidPhoneMessages(), nil)
	}

	current, err := s.store.FindOwned(ctx, id, phone)
	if err != nil {
		return nil, s.translateLookupError(err, id, "modify")
	}

	change := model.SlotChange{
		Date:            current.Date,
		Time:            current.Time,
		ServiceCode:     current.ServiceCode,
		DurationMinutes: current.DurationMinutes,
		Price:           current.Price,
	}
	if req.Date != "" {
		change.Date = req.Date
	}
	if req.Time != "" {
		change.Time = req.Time
	}
	if req.Service != "" {
		svc, err := s.lookupService(req.Service)
		if err != nil {
			return nil, err
		}
		change.ServiceCode = svc.Code
		change.DurationMinutes = svc.DurationMinutes
		change.Price = svc.Price
	}

	res := s.validator.ValidateSlot(change.Date, change.Time)
	if !res.Valid {
		return nil, res.Err()
	}
	change.Date, change.Time = res.Date, res.Time

	if err := s.ensureNotPast(change.Date, change.Time); err != nil {
		return nil, err
	}

	if change.Date != current.Date || change.Time != current.Time {
		taken, err := s.store.IsSlotTaken(ctx, change.Date, change.Time, id)
		if err != nil {
			s.log.Error("Failed to check slot", "operation", "modify", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to check slot availability", err)
		}
		if taken {
			return nil, slotAlreadyBookedError(change.Date, change.Time)
		}
	}

	updated, err := s.store.UpdateSlot(ctx, id, phone, change)
	if err != nil {
		switch {
		case errors.Is(err, appointmentserrors.ErrDuplicateSlot):
			s.log.Warn("Slot taken during modify", "id", id, "date", change.Date, "time", change.Time)
			return nil, slotJustBookedError(change.Date, change.Time)
		case errors.Is(err, appointmentserrors.ErrNotFound):
			return nil, notFoundError(id)
		default:
			s.log.Error("Failed to update appointment", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to modify appointment", err)
		}
	}

	changes := map[string]Change{}
	if current.Date != updated.Date {
		changes["date"] = Change{From: current.Date, To: updated.Date}
	}
	if current.Time != updated.Time {
		changes["time"] = Change{From: current.Time, To: updated.Time}
	}
	if current.ServiceCode != updated.ServiceCode {
		changes["service"] = Change{From: current.ServiceCode, To: updated.ServiceCode}
	}

	s.log.Info("Appointment modified",
		"id", id,
		"phone", sanitizer.MaskPhone(phone),
		"changed_fields", len(changes),
	)
	s.syncer.AppointmentModified(ctx, updated)
	return &ModifyResult{Appointment: updated, Changes: changes}, nil
}

func (s *appointmentService) Cancel(ctx context.Context, phone string, id int64) (*model.Appointment, error) {
	phone = sanitizer.NormalizePhone(phone)
	if phone == "" {
		return nil, validationError(appointmentserrors.CodeInvalidPhone, invalidPhoneMessages(), nil)
	}

	cancelled, err := s.store.Cancel(ctx, id, phone)
	if err != nil {
		return nil, s.translateLookupError(err, id, "cancel")
	}

	s.log.Info("Appointment cancelled", "id", id, "phone", sanitizer.MaskPhone(phone))
	s.syncer.AppointmentCancelled(ctx, cancelled)
	return cancelled, nil
}

func (s *appointmentService) ListActive(ctx context.Context, phone string) ([]*model.Appointment, error) {
	phone = sanitizer.NormalizePhone(phone)
	if phone == "" {
		return nil, validationError(appointmentserrors.CodeInvalidPhone, invalidPhoneMessages(), nil)
	}

	now := s.localNow()
	appts, err := s.store.ListActive(ctx, phone, now.Format(validator.DateLayout), now.Format(validator.TimeLayout))
	if err != nil {
		s.log.Error("Failed to list appointments", "phone", sanitizer.MaskPhone(phone), "error", err)
		return nil, apperrors.Internal("Failed to list appointments", err)
	}
	return appts, nil
}

func (s *appointmentService) CustomerProfile(ctx context.Context, phone string) (*model.CustomerProfile, error) {
	phone = sanitizer.NormalizePhone(phone)
	if phone == "" {
		return nil, validationError(appointmentserrors.CodeInvalidPhone, invalidPhoneMessages(), nil)
	}

	profile, err := s.store.CustomerProfile(ctx, phone, s.localNow().Format(validator.DateLayout))
	if err != nil {
		if errors.Is(err, appointmentserrors.ErrNotFound) {
			return nil, nil
		}
		s.log.Error("Failed to load customer profile", "phone", sanitizer.MaskPhone(phone), "error", err)
		return nil, apperrors.Internal("Failed to load customer profile", err)
	}
	return profile, nil
}

func (s *appointmentService) CheckAvailability(ctx context.Context, date, clock string) (*Availability, error) {
	res := s.validator.ValidateSlot(date, clock)
	if !res.Valid {
		if res.IsClosure() {
			return &Availability{
				Date:       date,
				Time:       clock,
				Available:  false,
				ReasonCode: res.ReasonCode,
				Messages:   res.Messages,
			}, nil
		}
		return nil, res.Err()
	}
	if err := s.ensureNotPast(res.Date, res.Time); err != nil {
		return nil, err
	}

	taken, err := s.store.IsSlotTaken(ctx, res.Date, res.Time, 0)
	if err != nil {
		s.log.Error("Failed to check slot", "operation", "check_availability", "error", err)
		return nil, apperrors.Internal("Failed to check slot availability", err)
	}

	out := &Availability{Date: res.Date, Time: res.Time, Available: !taken}
	if taken {
		out.ReasonCode = appointmentserrors.CodeSlotAlreadyBooked
		out.Messages = slotAlreadyBookedMessages(res.Date, res.Time)
	}
	return out, nil
}

func (s *appointmentService) AvailableSlots(ctx context.Context, date string) (*DaySlots, error) {
	res := s.validator.Validate(date, "")
	if !res.Valid && !res.IsClosure() {
		return nil, res.Err()
	}

	now := s.localNow()
	today := now.Format(validator.DateLayout)
	day := date
	if res.Valid {
		day = res.Date
	}
	if day < today {
		return nil, validationError(appointmentserrors.CodePastDateNotAllowed, pastDateMessages(), map[string]any{"date": day})
	}

	if !res.Valid {
		return &DaySlots{
			Date:       day,
			Slots:      []string{},
			Closed:     true,
			ReasonCode: res.ReasonCode,
			Messages:   res.Messages,
		}, nil
	}

	booked, err := s.store.BookedTimes(ctx, res.Date)
	if err != nil {
		s.log.Error("Failed to load booked times", "date", res.Date, "error", err)
		return nil, apperrors.Internal("Failed to load available slots", err)
	}

	cutoff := -1
	if res.Date == today {
		limit := now.Add(s.tenant.Calendar.SameDayBuffer)
		if limit.Format(validator.DateLayout) != today {
			cutoff = 24 * 60
		} else {
			cutoff = limit.Hour()*60 + limit.Minute()
		}
	}

	return &DaySlots{
		Date:  res.Date,
		Slots: freeSlots(s.tenant.Calendar, res.Day.Weekday(), booked, cutoff),
	}, nil
}

// freeSlots walks the day's opening window in SlotInterval steps and drops
// booked starts and starts before cutoff (minutes from midnight, -1 for none).
func freeSlots(cal *tenant.Calendar, weekday time.Weekday, booked []string, cutoff int) []string {
	slots := []string{}
	window, ok := cal.HoursOn(weekday)
	if !ok {
		return slots
	}

	step := int(cal.SlotInterval / time.Minute)
	if step <= 0 {
		step = 30
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	for m := window.Open; m < window.Close; m += step {
		if m < cutoff {
			continue
		}
		slot := tenant.FormatMinute(m)
		if _, busy := taken[slot]; busy {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

func (s *appointmentService) lookupService(code string) (tenant.Service, error) {
	svc, ok := s.tenant.Service(code)
	if !ok {
		valid := s.tenant.ServiceCodes()
		return tenant.Service{}, validationError(appointmentserrors.CodeInvalidService, invalidServiceMessages(code, valid), map[string]any{
			"provided":       code,
			"valid_services": valid,
		})
	}
	return svc, nil
}

func (s *appointmentService) ensureNotPast(date, clock string) error {
	start, err := time.ParseInLocation(validator.DateLayout+" "+validator.TimeLayout, date+" "+clock, s.tenant.Location())
	if err != nil {
		return apperrors.Internal("Failed to resolve appointment time", err)
	}
	if start.Before(s.now()) {
		return validationError(appointmentserrors.CodePastDateNotAllowed, pastDateMessages(), map[string]any{
			"date": date,
			"time": clock,
		})
	}
	return nil
}

func (s *appointmentService) translateLookupError(err error, id int64, operation string) error {
	if errors.Is(err, appointmentserrors.ErrNotFound) {
		return notFoundError(id)
	}
	s.log.Error("Failed to load appointment", "operation", operation, "id", id, "error", err)
	return apperrors.Internal("Failed to load appointment", err)
}

func validationError(code string, messages map[string]string, details map[string]any) error {
	err := apperrors.Validation(code, messages[apperrors.LangEN]).WithMessages(messages)
	if details != nil {
		err.WithDetails(details)
	}
	return err
}

func slotAlreadyBookedError(date, clock string) error {
	return apperrors.Conflict(appointmentserrors.CodeSlotAlreadyBooked, "").
		WithMessages(slotAlreadyBookedMessages(date, clock)).
		WithDetails(map[string]any{"date": date, "time": clock})
}

func slotJustBookedError(date, clock string) error {
	return apperrors.Conflict(appointmentserrors.CodeSlotJustBooked, "").
		WithMessages(slotJustBookedMessages(date, clock)).
		WithDetails(map[string]any{"date": date, "time": clock})
}

func notFoundError(id int64) error {
	return apperrors.NotFound(appointmentserrors.CodeAppointmentNotFound, "").
		WithMessages(notFoundMessages(id)).
		WithDetails(map[string]any{"appointment_id": id})
}
