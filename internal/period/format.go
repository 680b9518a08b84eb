package period

import (
	"fmt"
	"strings"
)

var monthNames = map[string][12]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"pt": {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
}

// Formatter renders display labels for periods in one locale.
type Formatter struct {
	locale string
	months [12]string
}

// NewFormatter falls back to English for unknown locales.
func NewFormatter(locale string) *Formatter {
	lang := strings.ToLower(strings.SplitN(strings.ReplaceAll(locale, "-", "_"), "_", 2)[0])
	months, ok := monthNames[lang]
	if !ok {
		lang = "en"
		months = monthNames[lang]
	}
	return &Formatter{locale: lang, months: months}
}

// Locale returns the resolved language code.
func (f *Formatter) Locale() string {
	return f.locale
}

// FormatPeriod returns a human readable label, e.g. "January 2026".
func (f *Formatter) FormatPeriod(p Period) string {
	switch p.Type {
	case Daily:
		return p.StartDate.Format("2006-01-02")
	case Weekly:
		return fmt.Sprintf("%s %s - %s", p.ID, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	case Monthly:
		return fmt.Sprintf("%s %d", f.months[p.StartDate.Month()-1], p.StartDate.Year())
	case Quarterly:
		return fmt.Sprintf("%s - %s %d", f.months[p.StartDate.Month()-1], f.months[p.EndDate.Month()-1], p.EndDate.Year())
	case Yearly:
		return fmt.Sprintf("%d", p.StartDate.Year())
	}
	return p.ID
}
