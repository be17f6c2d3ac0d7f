package tenant

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"concierge/pkg/sanitizer"
)

//go:embed default.yaml
var defaultProfile []byte

const EnvPrefix = "TENANT"

var (
	reClock       = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	reRecurring   = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)
	reServiceCode = regexp.MustCompile(`^[a-z0-9_]+$`)
)

type profileFile struct {
	Business struct {
		Name          string   `mapstructure:"name"`
		AssistantName string   `mapstructure:"assistant_name"`
		Address       string   `mapstructure:"address"`
		Phone         string   `mapstructure:"phone"`
		Currency      string   `mapstructure:"currency"`
		Languages     []string `mapstructure:"languages"`
	} `mapstructure:"business"`

	Services []struct {
		Code            string            `mapstructure:"code"`
		Names           map[string]string `mapstructure:"names"`
		Price           float64           `mapstructure:"price"`
		DurationMinutes int               `mapstructure:"duration_minutes"`
	} `mapstructure:"services"`

	Calendar struct {
		Timezone       string        `mapstructure:"timezone"`
		ClosedWeekdays []string      `mapstructure:"closed_weekdays"`
		EnforceHours   bool          `mapstructure:"enforce_hours"`
		SlotInterval   time.Duration `mapstructure:"slot_interval"`
		SameDayBuffer  time.Duration `mapstructure:"same_day_buffer"`
		Hours          map[string]struct {
			Open  string `mapstructure:"open"`
			Close string `mapstructure:"close"`
		} `mapstructure:"hours"`
		Holidays []struct {
			Date  string            `mapstructure:"date"`
			Names map[string]string `mapstructure:"names"`
		} `mapstructure:"holidays"`
	} `mapstructure:"calendar"`

	Prompts struct {
		Persona            string `mapstructure:"persona"`
		Fallback           string `mapstructure:"fallback"`
		UnsupportedMessage string `mapstructure:"unsupported_message"`
		RateLimited        string `mapstructure:"rate_limited"`
	} `mapstructure:"prompts"`
}

// Load reads the embedded default profile, merges path on top of it when
// given, then applies TENANT_* environment overrides (TENANT_BUSINESS_NAME,
// TENANT_CALENDAR_ENFORCE_HOURS, ...).
func Load(path string) (*Tenant, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultProfile)); err != nil {
		return nil, fmt.Errorf("failed to read default tenant profile: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read tenant profile %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var raw profileFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode tenant profile: %w", err)
	}

	return build(&raw)
}

// Default returns the embedded profile. It panics only if the embedded file
// itself is broken.
func Default() *Tenant {
	t, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded tenant profile is invalid: %v", err))
	}
	return t
}

func build(raw *profileFile) (*Tenant, error) {
	var errors []string

	t := &Tenant{
		Business: Business{
			Name:          strings.TrimSpace(raw.Business.Name),
			AssistantName: strings.TrimSpace(raw.Business.AssistantName),
			Address:       raw.Business.Address,
			Phone:         raw.Business.Phone,
			Currency:      raw.Business.Currency,
			Languages:     raw.Business.Languages,
		},
		Prompts: Prompts{
			Persona:            raw.Prompts.Persona,
			Fallback:           raw.Prompts.Fallback,
			UnsupportedMessage: raw.Prompts.UnsupportedMessage,
			RateLimited:        raw.Prompts.RateLimited,
		},
	}

	if t.Business.Name == "" {
		errors = append(errors, "business.name cannot be empty")
	}
	if t.Prompts.Fallback == "" {
		errors = append(errors, "prompts.fallback cannot be empty")
	}
	if t.Prompts.Persona == "" {
		errors = append(errors, "prompts.persona cannot be empty")
	}

	seen := make(map[string]bool)
	for i, s := range raw.Services {
		code := sanitizer.NormalizeCode(s.Code)
		switch {
		case !reServiceCode.MatchString(code):
			errors = append(errors, fmt.Sprintf("services[%d].code must match [a-z0-9_]+, got: %q", i, s.Code))
		case seen[code]:
			errors = append(errors, fmt.Sprintf("services[%d].code %q is duplicated", i, code))
		}
		if s.DurationMinutes <= 0 {
			errors = append(errors, fmt.Sprintf("services[%d].duration_minutes must be positive, got: %d", i, s.DurationMinutes))
		}
		if s.Price < 0 {
			errors = append(errors, fmt.Sprintf("services[%d].price cannot be negative, got: %v", i, s.Price))
		}
		seen[code] = true
		t.Services = append(t.Services, Service{
			Code:            code,
			Names:           s.Names,
			Price:           s.Price,
			DurationMinutes: s.DurationMinutes,
		})
	}
	if len(t.Services) == 0 {
		errors = append(errors, "services cannot be empty")
	}

	cal, calErrors := buildCalendar(raw)
	errors = append(errors, calErrors...)
	t.Calendar = cal

	if len(errors) > 0 {
		errMsg := "Tenant profile validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return nil, fmt.Errorf("%s", errMsg)
	}

	return t, nil
}

func buildCalendar(raw *profileFile) (*Calendar, []string) {
	var errors []string

	cal := &Calendar{
		Closed:        make(map[time.Weekday]bool),
		Hours:         make(map[time.Weekday]Window),
		EnforceHours:  raw.Calendar.EnforceHours,
		SlotInterval:  raw.Calendar.SlotInterval,
		SameDayBuffer: raw.Calendar.SameDayBuffer,
	}

	loc, err := time.LoadLocation(raw.Calendar.Timezone)
	if err != nil || raw.Calendar.Timezone == "" {
		errors = append(errors, fmt.Sprintf("calendar.timezone is not a valid IANA zone, got: %q", raw.Calendar.Timezone))
		loc = time.UTC
	}
	cal.Location = loc

	if cal.SlotInterval <= 0 {
		errors = append(errors, fmt.Sprintf("calendar.slot_interval must be positive, got: %s", cal.SlotInterval))
	}
	if cal.SameDayBuffer < 0 {
		errors = append(errors, fmt.Sprintf("calendar.same_day_buffer cannot be negative, got: %s", cal.SameDayBuffer))
	}

	for _, name := range raw.Calendar.ClosedWeekdays {
		d, ok := parseWeekday(name)
		if !ok {
			errors = append(errors, fmt.Sprintf("calendar.closed_weekdays has unknown weekday %q", name))
			continue
		}
		cal.Closed[d] = true
	}

	for name, h := range raw.Calendar.Hours {
		d, ok := parseWeekday(name)
		if !ok {
			errors = append(errors, fmt.Sprintf("calendar.hours has unknown weekday %q", name))
			continue
		}
		if !reClock.MatchString(h.Open) || !reClock.MatchString(h.Close) {
			errors = append(errors, fmt.Sprintf("calendar.hours.%s must use HH:MM, got: %q-%q", name, h.Open, h.Close))
			continue
		}
		w := Window{Open: clockMinutes(h.Open), Close: clockMinutes(h.Close)}
		if w.Open >= w.Close {
			errors = append(errors, fmt.Sprintf("calendar.hours.%s open (%s) must be before close (%s)", name, h.Open, h.Close))
			continue
		}
		cal.Hours[d] = w
	}

	for d := range weekdaySet() {
		if !cal.Closed[d] {
			if _, ok := cal.Hours[d]; !ok {
				errors = append(errors, fmt.Sprintf("calendar.hours missing for open day %s", strings.ToLower(d.String())))
			}
		}
	}

	for i, h := range raw.Calendar.Holidays {
		holiday, ok := parseHoliday(h.Date)
		if !ok {
			errors = append(errors, fmt.Sprintf("calendar.holidays[%d].date must be MM-DD or YYYY-MM-DD, got: %q", i, h.Date))
			continue
		}
		holiday.Names = h.Names
		cal.Holidays = append(cal.Holidays, holiday)
	}

	return cal, errors
}

func parseHoliday(s string) (Holiday, bool) {
	s = strings.TrimSpace(s)
	if reRecurring.MatchString(s) {
		// Parse against a leap year so 02-29 is accepted.
		d, err := time.Parse("2006-01-02", "2024-"+s)
		if err != nil {
			return Holiday{}, false
		}
		return Holiday{Month: d.Month(), Day: d.Day()}, true
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Holiday{}, false
	}
	return Holiday{Year: d.Year(), Month: d.Month(), Day: d.Day()}, true
}

func clockMinutes(hhmm string) int {
	t, _ := time.Parse("15:04", hhmm)
	return t.Hour()*60 + t.Minute()
}

func weekdaySet() map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(weekdayNames))
	for _, d := range weekdayNames {
		set[d] = struct{}{}
	}
	return set
}
