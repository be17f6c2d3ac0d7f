package tenant

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"concierge/pkg/sanitizer"
)

const (
	LangIT = "it"
	LangEN = "en"
)

// Tenant is the single configuration value of one deployed assistant:
// who the business is, what it sells, when it is open and how it talks.
type Tenant struct {
	Business Business
	Services []Service
	Calendar *Calendar
	Prompts  Prompts
}

type Business struct {
	Name          string
	AssistantName string
	Address       string
	Phone         string
	Currency      string
	Languages     []string
}

type Service struct {
	Code            string
	Names           map[string]string
	Price           float64
	DurationMinutes int
}

func (s Service) Name(lang string) string {
	if name, ok := s.Names[lang]; ok && name != "" {
		return name
	}
	if name, ok := s.Names[LangEN]; ok && name != "" {
		return name
	}
	return s.Code
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Prompts struct {
	Persona            string
	Fallback           string
	UnsupportedMessage string
	RateLimited        string
}

// Window is an open interval of the day in minutes from midnight: Open <= t < Close.
type Window struct {
	Open  int
	Close int
}

func (w Window) Contains(minute int) bool {
	return minute >= w.Open && minute < w.Close
}

// Holiday matches either every year (Year == 0) or one specific date.
type Holiday struct {
	Year  int
	Month time.Month
	Day   int
	Names map[string]string
}

func (h Holiday) Matches(d time.Time) bool {
	if h.Year != 0 && d.Year() != h.Year {
		return false
	}
	return d.Month() == h.Month && d.Day() == h.Day
}

func (h Holiday) Name(lang string) string {
	if name, ok := h.Names[lang]; ok && name != "" {
		return name
	}
	if h.Year != 0 {
		return fmt.Sprintf("%04d-%02d-%02d", h.Year, h.Month, h.Day)
	}
	return fmt.Sprintf("%02d-%02d", h.Month, h.Day)
}

// Calendar is the parsed weekly table the booking validator consults. It is
// never mutated after Load.
type Calendar struct {
	Location      *time.Location
	Closed        map[time.Weekday]bool
	Hours         map[time.Weekday]Window
	Holidays      []Holiday
	EnforceHours  bool
	SlotInterval  time.Duration
	SameDayBuffer time.Duration
}

func (c *Calendar) IsClosedWeekday(d time.Weekday) bool {
	return c.Closed[d]
}

func (c *Calendar) HolidayOn(d time.Time) (Holiday, bool) {
	for _, h := range c.Holidays {
		if h.Matches(d) {
			return h, true
		}
	}
	return Holiday{}, false
}

func (c *Calendar) HoursOn(d time.Weekday) (Window, bool) {
	w, ok := c.Hours[d]
	return w, ok
}

// Service looks up a catalog entry; the code is matched case-insensitively.
func (t *Tenant) Service(code string) (Service, bool) {
	code = sanitizer.NormalizeCode(code)
	for _, s := range t.Services {
		if s.Code == code {
			return s, true
		}
	}
	return Service{}, false
}

func (t *Tenant) ServiceCodes() []string {
	codes := make([]string, 0, len(t.Services))
	for _, s := range t.Services {
		codes = append(codes, s.Code)
	}
	return codes
}

// ServiceName returns the display name of code, or code itself when the
// catalog no longer carries it.
func (t *Tenant) ServiceName(code, lang string) string {
	if s, ok := t.Service(code); ok {
		return s.Name(lang)
	}
	return code
}

func (t *Tenant) PrimaryLanguage() string {
	if len(t.Business.Languages) > 0 {
		return t.Business.Languages[0]
	}
	return LangEN
}

func (t *Tenant) Location() *time.Location {
	return t.Calendar.Location
}

func (t *Tenant) PriceLabel(price float64) string {
	symbol := t.Business.Currency
	if symbol == "" || strings.EqualFold(symbol, "EUR") {
		symbol = "€"
	}
	if price == float64(int64(price)) {
		return fmt.Sprintf("%s%d", symbol, int64(price))
	}
	return fmt.Sprintf("%s%.2f", symbol, price)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// OpenWeekdays lists the days that are not closed, Monday first.
func (c *Calendar) OpenWeekdays() []time.Weekday {
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	return slices.DeleteFunc(order, func(d time.Weekday) bool { return c.Closed[d] })
}

func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
