// Package dates turns the free-form date cells found in statements and
// ledgers into a canonical year/month/day triple.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// futureShiftDays is how far ahead a year-less date may land before it is
// assumed to belong to the previous year.
const futureShiftDays = 60

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// fallbackLayouts are tried last, in order.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"Mon Jan 2 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2006.01.02",
	"01-02-2006",
	"20060102",
}

// New builds a Date, reporting false when the triple is not a real day.
func New(year int, month time.Month, day int) (Date, bool) {
	d := Date{Year: year, Month: month, Day: day}
	return d, d.Valid()
}

// FromTime takes the calendar day of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Valid reports whether the triple names an existing calendar day.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 9999 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return d.Day <= daysIn(d.Year, d.Month)
}

// ISO renders YYYY-MM-DD for storage and sorting.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Display renders MM/DD/YYYY for write-back and the UI.
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, d.Year)
}

func (d Date) String() string { return d.ISO() }

// Time returns midnight of d in loc. A nil loc means UTC.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.ISO() < o.ISO()
}

// Normalize parses input in priority order: slash triples, ISO, month-name
// forms and finally a fixed set of calendar layouts. now anchors year
// inference for month-name dates without a year. The second result is
// false when nothing matched.
func Normalize(input string, now time.Time) (Date, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Date{}, false
	}
	if strings.Count(s, "/") == 2 {
		return parseSlash(s)
	}
	if d, ok := parseISO(s); ok {
		return d, true
	}
	if d, ok, matched := parseMonthName(s, now); matched {
		return d, ok
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), true
		}
	}
	return Date{}, false
}

func parseSlash(s string) (Date, bool) {
	parts := strings.Split(s, "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if !digits(parts[i]) {
			return Date{}, false
		}
	}
	if len(parts[0]) == 4 {
		return New(atoi(parts[0]), time.Month(atoi(parts[1])), atoi(parts[2]))
	}
	year, ok := expandYear(parts[2])
	if !ok {
		return Date{}, false
	}
	return New(year, time.Month(atoi(parts[0])), atoi(parts[1]))
}

func parseISO(s string) (Date, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 {
		return Date{}, false
	}
	for _, p := range parts {
		if !digits(p) || len(p) > 4 {
			return Date{}, false
		}
	}
	return New(atoi(parts[0]), time.Month(atoi(parts[1])), atoi(parts[2]))
}

// parseMonthName handles "Jan 5", "Jan 5, 2026", "5 Jan" and "5 Jan 2026".
// matched is false when the input is not a month-name form at all, so the
// caller may still try the fallback layouts.
func parseMonthName(s string, now time.Time) (d Date, ok, matched bool) {
	fields := strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(s))
	if len(fields) < 2 || len(fields) > 3 {
		return Date{}, false, false
	}

	var (
		month  time.Month
		dayTok string
	)
	if m, found := lookupMonth(fields[0]); found {
		month, dayTok = m, fields[1]
	} else if m, found := lookupMonth(fields[1]); found {
		month, dayTok = m, fields[0]
	} else {
		return Date{}, false, false
	}

	dayTok = trimOrdinal(dayTok)
	if !digits(dayTok) || len(dayTok) > 2 {
		return Date{}, false, false
	}
	day := atoi(dayTok)

	if len(fields) == 3 {
		if !digits(fields[2]) {
			return Date{}, false, false
		}
		year, valid := expandYear(fields[2])
		if !valid {
			return Date{}, false, true
		}
		d, ok = New(year, month, day)
		return d, ok, true
	}

	d, ok = inferYear(month, day, now)
	return d, ok, true
}

// inferYear places a year-less date in now's year, moving it back one year
// when that lands more than futureShiftDays after today.
func inferYear(month time.Month, day int, now time.Time) (Date, bool) {
	d, ok := New(now.Year(), month, day)
	if !ok {
		return Date{}, false
	}
	today := FromTime(now).Time(time.UTC)
	if d.Time(time.UTC).Sub(today) > futureShiftDays*24*time.Hour {
		return New(now.Year()-1, month, day)
	}
	return d, true
}

func lookupMonth(tok string) (time.Month, bool) {
	if len(tok) < 3 {
		return 0, false
	}
	for _, r := range tok {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return 0, false
		}
	}
	m, ok := months[strings.ToLower(tok[:3])]
	return m, ok
}

func trimOrdinal(tok string) string {
	lower := strings.ToLower(tok)
	for _, suf := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(lower, suf) && len(tok) > len(suf) {
			return tok[:len(tok)-len(suf)]
		}
	}
	return tok
}

// expandYear maps YY to 2000+YY and accepts four-digit years as is.
func expandYear(tok string) (int, bool) {
	switch len(tok) {
	case 2:
		return 2000 + atoi(tok), true
	case 4:
		return atoi(tok), true
	}
	return 0, false
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
