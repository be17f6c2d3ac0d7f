package validator

import (
	"regexp"
	"strings"
	"time"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/internal/tenant"
	apperrors "concierge/pkg/errors"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// Result is the outcome of a calendar check. When Valid, Date and Time hold
// the canonical forms to persist.
type Result struct {
	Valid      bool
	ReasonCode string
	Messages   map[string]string
	Details    map[string]any

	Day  time.Time // midnight of the date in the tenant timezone
	Date string    // YYYY-MM-DD
	Time string    // HH:MM, empty when no time was checked
}

// Err converts an invalid result into a validation AppError; nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperrors.Validation(r.ReasonCode, r.Messages[apperrors.LangEN]).
		WithMessages(r.Messages).
		WithDetails(r.Details)
}

// IsClosure reports whether the rejection came from the business calendar
// rather than from malformed input.
func (r Result) IsClosure() bool {
	return !r.Valid && r.ReasonCode != appointmentserrors.CodeInvalidDateFormat && r.ReasonCode != appointmentserrors.CodeInvalidTimeFormat
}

// CalendarValidator evaluates the tenant's calendar rules. It holds no clock
// and does no I/O; "past" checks belong to the caller.
type CalendarValidator struct {
	cal *tenant.Calendar
}

func NewCalendarValidator(cal *tenant.Calendar) *CalendarValidator {
	return &CalendarValidator{cal: cal}
}

// Validate checks date and, when clock is non-empty, time. Rules run in a
// fixed order: format, holidays, closed weekdays, then the hour window when
// enforcement is enabled.
func (v *CalendarValidator) Validate(date, clock string) Result {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if !dateRegex.MatchString(date) {
		return invalid(appointmentserrors.CodeInvalidDateFormat, invalidDateMessages(date), map[string]any{"date": date})
	}
	day, err := time.ParseInLocation(DateLayout, date, v.cal.Location)
	if err != nil {
		return invalid(appointmentserrors.CodeInvalidDateFormat, invalidDateMessages(date), map[string]any{"date": date})
	}

	res := Result{Valid: true, Day: day, Date: day.Format(DateLayout)}

	minute := -1
	if clock != "" {
		if !timeRegex.MatchString(clock) {
			return invalid(appointmentserrors.CodeInvalidTimeFormat, invalidTimeMessages(clock), map[string]any{"time": clock})
		}
		t, err := time.Parse(TimeLayout, zeroPad(clock))
		if err != nil {
			return invalid(appointmentserrors.CodeInvalidTimeFormat, invalidTimeMessages(clock), map[string]any{"time": clock})
		}
		minute = t.Hour()*60 + t.Minute()
		res.Time = t.Format(TimeLayout)
	}

	if h, ok := v.cal.HolidayOn(day); ok {
		return invalid(appointmentserrors.CodeClosedHoliday, holidayMessages(h, res.Date), map[string]any{
			"date":       res.Date,
			"holiday":    h.Name(tenant.LangEN),
			"holiday_it": h.Name(tenant.LangIT),
		})
	}

	weekday := day.Weekday()
	if v.cal.IsClosedWeekday(weekday) {
		return invalid(ClosedDayCode(weekday), closedDayMessages(weekday), map[string]any{
			"date":    res.Date,
			"weekday": strings.ToLower(weekday.String()),
		})
	}

	if v.cal.EnforceHours && minute >= 0 {
		w, ok := v.cal.HoursOn(weekday)
		if !ok || !w.Contains(minute) {
			return invalid(appointmentserrors.CodeOutsideBusinessHours, outsideHoursMessages(weekday, w), map[string]any{
				"date":  res.Date,
				"time":  res.Time,
				"open":  tenant.FormatMinute(w.Open),
				"close": tenant.FormatMinute(w.Close),
			})
		}
	}

	return res
}

// ValidateSlot is Validate for operations that need a concrete start time;
// an empty time is a format error.
func (v *CalendarValidator) ValidateSlot(date, clock string) Result {
	if strings.TrimSpace(clock) == "" {
		return invalid(appointmentserrors.CodeInvalidTimeFormat, invalidTimeMessages(clock), map[string]any{"time": clock})
	}
	return v.Validate(date, clock)
}

// ClosedDayCode returns the reason code for a closed weekday, e.g. CLOSED_MONDAY.
func ClosedDayCode(d time.Weekday) string {
	return appointmentserrors.CodeClosedPrefix + strings.ToUpper(d.String())
}

func invalid(code string, messages map[string]string, details map[string]any) Result {
	return Result{
		Valid:      false,
		ReasonCode: code,
		Messages:   messages,
		Details:    details,
	}
}

func zeroPad(clock string) string {
	if len(clock) == 4 {
		return "0" + clock
	}
	return clock
}
