package validator

import (
	"fmt"
	"strings"
	"time"

	"concierge/internal/tenant"
	apperrors "concierge/pkg/errors"
)

var italianWeekdays = map[time.Weekday]string{
	time.Sunday:    "domenica",
	time.Monday:    "lunedì",
	time.Tuesday:   "martedì",
	time.Wednesday: "mercoledì",
	time.Thursday:  "giovedì",
	time.Friday:    "venerdì",
	time.Saturday:  "sabato",
}

// WeekdayName returns the weekday in the given language, lowercase for
// Italian and capitalized for English.
func WeekdayName(d time.Weekday, lang string) string {
	if lang == tenant.LangIT {
		return italianWeekdays[d]
	}
	return d.String()
}

// italianArticle picks "il" or "la" for weekday names ("la domenica").
func italianArticle(d time.Weekday) string {
	if d == time.Sunday {
		return "la"
	}
	return "il"
}

func bilingual(en, it string) map[string]string {
	return map[string]string{
		apperrors.LangEN: en,
		apperrors.LangIT: it,
	}
}

func invalidDateMessages(date string) map[string]string {
	return bilingual(
		fmt.Sprintf("Invalid date %q. Please use the format YYYY-MM-DD.", date),
		fmt.Sprintf("Data %q non valida. Usa il formato AAAA-MM-GG.", date),
	)
}

func invalidTimeMessages(clock string) map[string]string {
	return bilingual(
		fmt.Sprintf("Invalid time %q. Please use the 24h format HH:MM.", clock),
		fmt.Sprintf("Orario %q non valido. Usa il formato 24h HH:MM.", clock),
	)
}

func holidayMessages(h tenant.Holiday, date string) map[string]string {
	return bilingual(
		fmt.Sprintf("We are closed on %s for %s.", date, h.Name(tenant.LangEN)),
		fmt.Sprintf("Il %s siamo chiusi per %s.", date, h.Name(tenant.LangIT)),
	)
}

func closedDayMessages(d time.Weekday) map[string]string {
	return bilingual(
		fmt.Sprintf("We are closed on %ss.", WeekdayName(d, tenant.LangEN)),
		fmt.Sprintf("Siamo chiusi %s %s.", italianArticle(d), WeekdayName(d, tenant.LangIT)),
	)
}

func outsideHoursMessages(d time.Weekday, w tenant.Window) map[string]string {
	open, closing := tenant.FormatMinute(w.Open), tenant.FormatMinute(w.Close)
	article := italianArticle(d)
	return bilingual(
		fmt.Sprintf("On %ss we are open from %s to %s.", WeekdayName(d, tenant.LangEN), open, closing),
		fmt.Sprintf("%s %s siamo aperti dalle %s alle %s.", strings.ToUpper(article[:1])+article[1:], WeekdayName(d, tenant.LangIT), open, closing),
	)
}
