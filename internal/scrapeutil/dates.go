package scrapeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Review sites present dates in at least four formats with no reliable
// markup, so parsing is a regex cascade tried in a fixed order. First
// match wins; no match returns ok=false, never an error.

var (
	ordinalRe = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)`)
	isoRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	monthPat = `(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

	monthDayYearRe = regexp.MustCompile(`(?i)` + monthPat + `\s+(\d{1,2}),?\s+(\d{4})`)
	monthYearRe    = regexp.MustCompile(`(?i)` + monthPat + `\s+(\d{4})`)
	slashRe        = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDateFlexible extracts a calendar date from loosely formatted
// text: embedded ISO, "Month Day, Year", "Month Year" (day 1), then
// "M/D/Y". Ordinal suffixes (1st, 2nd, ...) are stripped first.
func ParseDateFlexible(text string) (time.Time, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return time.Time{}, false
	}
	t = ordinalRe.ReplaceAllString(t, "$1")

	if m := isoRe.FindString(t); m != "" {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			return d, true
		}
	}

	if m := monthDayYearRe.FindStringSubmatch(t); m != nil {
		mon, ok := monthByName(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if ok && validDay(year, mon, day) {
			return time.Date(year, mon, day, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := monthYearRe.FindStringSubmatch(t); m != nil {
		mon, ok := monthByName(m[1])
		year, _ := strconv.Atoi(m[2])
		if ok {
			return time.Date(year, mon, 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	if m := slashRe.FindStringSubmatch(t); m != nil {
		mon, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if mon >= 1 && mon <= 12 && validDay(year, time.Month(mon), day) {
			return time.Date(year, time.Month(mon), day, 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

func monthByName(name string) (time.Month, bool) {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	m, ok := months[key]
	return m, ok
}

func validDay(year int, mon time.Month, day int) bool {
	if day < 1 || day > 31 {
		return false
	}
	d := time.Date(year, mon, day, 0, 0, 0, 0, time.UTC)
	return d.Month() == mon && d.Day() == day
}

// FormatDate renders the canonical YYYY-MM-DD form used in Review.Date.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }

// InRange reports start <= d <= end, inclusive both ends.
func InRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
