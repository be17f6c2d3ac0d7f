package service

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"concierge/internal/tenant"
	"concierge/pkg/model"
)

type promptService struct {
	Code     string
	Name     string
	Price    string
	Duration int
}

type promptData struct {
	AssistantName   string
	BusinessName    string
	Address         string
	Phone           string
	Today           string
	TodayWeekday    string
	Tomorrow        string
	TomorrowWeekday string
	Timezone        string
	OpeningHours    string
	ClosedDays      string
	Services        []promptService
}

// promptRenderer renders the tenant persona for one turn.
type promptRenderer struct {
	tmpl   *template.Template
	tenant *tenant.Tenant
	static promptData
}

func newPromptRenderer(t *tenant.Tenant) (*promptRenderer, error) {
	tmpl, err := template.New("persona").Option("missingkey=error").Parse(t.Prompts.Persona)
	if err != nil {
		return nil, fmt.Errorf("failed to parse persona prompt: %w", err)
	}

	lang := t.PrimaryLanguage()
	services := make([]promptService, 0, len(t.Services))
	for _, s := range t.Services {
		services = append(services, promptService{
			Code:     s.Code,
			Name:     s.Name(lang),
			Price:    t.PriceLabel(s.Price),
			Duration: s.DurationMinutes,
		})
	}

	return &promptRenderer{
		tmpl:   tmpl,
		tenant: t,
		static: promptData{
			AssistantName: t.Business.AssistantName,
			BusinessName:  t.Business.Name,
			Address:       t.Business.Address,
			Phone:         t.Business.Phone,
			Timezone:      t.Location().String(),
			OpeningHours:  openingHours(t.Calendar),
			ClosedDays:    closedDays(t.Calendar),
			Services:      services,
		},
	}, nil
}

func (r *promptRenderer) render(now time.Time) (string, error) {
	local := now.In(r.tenant.Location())
	tomorrow := local.AddDate(0, 0, 1)

	data := r.static
	data.Today = local.Format("2006-01-02")
	data.TodayWeekday = local.Weekday().String()
	data.Tomorrow = tomorrow.Format("2006-01-02")
	data.TomorrowWeekday = tomorrow.Weekday().String()

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render persona prompt: %w", err)
	}
	return b.String(), nil
}

// customerContext is appended to the persona for returning customers.
func customerContext(p *model.CustomerProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Returning customer: %s, %d confirmed booking", p.Name, p.Bookings)
	if p.Bookings != 1 {
		b.WriteString("s")
	}
	if p.LastVisit != "" {
		fmt.Fprintf(&b, ", last visit on %s", p.LastVisit)
	}
	b.WriteString(". Greet them by name and reuse it for new bookings unless they book for someone else.")
	return b.String()
}

func openingHours(cal *tenant.Calendar) string {
	days := cal.OpenWeekdays()
	parts := make([]string, 0, len(days))
	for _, d := range days {
		w, ok := cal.HoursOn(d)
		if !ok {
			parts = append(parts, d.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s-%s", d, tenant.FormatMinute(w.Open), tenant.FormatMinute(w.Close)))
	}
	return strings.Join(parts, ", ")
}

func closedDays(cal *tenant.Calendar) string {
	var parts []string
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		if cal.IsClosedWeekday(d) {
			parts = append(parts, d.String())
		}
	}
	for _, h := range cal.Holidays {
		parts = append(parts, fmt.Sprintf("%s (%s)", h.Name(tenant.LangEN), holidayDate(h)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func holidayDate(h tenant.Holiday) string {
	if h.Year != 0 {
		return fmt.Sprintf("%04d-%02d-%02d", h.Year, h.Month, h.Day)
	}
	return fmt.Sprintf("%02d-%02d", h.Month, h.Day)
}
