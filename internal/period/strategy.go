package period

import (
	"fmt"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
)

// Windower is the strategy interface for one cadence. Each implementation
// knows how to find the window that contains a given day and how to label it.
type Windower interface {
	// Bounds returns the inclusive first and last midnight of the window
	// containing day. day is already truncated to midnight.
	Bounds(day time.Time, anchor dates.Date) (start, end time.Time)
	Label(start, end time.Time) string
}

// WeeklyWindower produces Sunday through Saturday windows.
type WeeklyWindower struct{}

func (WeeklyWindower) Bounds(day time.Time, _ dates.Date) (time.Time, time.Time) {
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return start, start.AddDate(0, 0, 6)
}

func (WeeklyWindower) Label(start, end time.Time) string { return rangeLabel(start, end) }

// BiweeklyWindower produces 14-day windows starting on the Saturday after
// the anchor payday.
type BiweeklyWindower struct{}

func (BiweeklyWindower) Bounds(day time.Time, anchor dates.Date) (time.Time, time.Time) {
	first := FirstSaturday(anchor).Time(day.Location())
	k := floorDiv(daysBetween(first, day), 14)
	start := first.AddDate(0, 0, k*14)
	return start, start.AddDate(0, 0, 13)
}

func (BiweeklyWindower) Label(start, end time.Time) string { return rangeLabel(start, end) }

// MonthlyWindower produces calendar months.
type MonthlyWindower struct{}

func (MonthlyWindower) Bounds(day time.Time, _ dates.Date) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 1, -1)
}

func (MonthlyWindower) Label(start, _ time.Time) string { return start.Format("Jan 2006") }

// YearlyWindower produces calendar years.
type YearlyWindower struct{}

func (YearlyWindower) Bounds(day time.Time, _ dates.Date) (time.Time, time.Time) {
	start := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	return start, time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, day.Location())
}

func (YearlyWindower) Label(start, _ time.Time) string { return start.Format("2006") }

var windowers = map[core.Cadence]Windower{
	core.Weekly:   WeeklyWindower{},
	core.Biweekly: BiweeklyWindower{},
	core.Monthly:  MonthlyWindower{},
	core.Yearly:   YearlyWindower{},
}

// WindowerFor returns the strategy for a cadence.
func WindowerFor(c core.Cadence) (Windower, error) {
	w, ok := windowers[c]
	if !ok {
		return nil, core.Errorf(core.ErrInput, "period", "unknown cadence %q", c)
	}
	return w, nil
}

// FirstSaturday is the Saturday that opens the first biweekly window after
// a payday: the next day for a Friday payday, otherwise the next Saturday
// on or after the anchor.
func FirstSaturday(anchor dates.Date) dates.Date {
	t := anchor.Time(time.UTC)
	add := (int(time.Saturday) - int(t.Weekday()) + 7) % 7
	return dates.FromTime(t.AddDate(0, 0, add))
}

// rangeLabel renders "Jan 5 – 11" within a month and "Jan 31 – Feb 13" across months.
func rangeLabel(start, end time.Time) string {
	if start.Year() == end.Year() && start.Month() == end.Month() {
		return fmt.Sprintf("%s %d – %d", start.Format("Jan"), start.Day(), end.Day())
	}
	return fmt.Sprintf("%s %d – %s %d", start.Format("Jan"), start.Day(), end.Format("Jan"), end.Day())
}

// daysBetween counts calendar days from a to b using their wall dates, so a
// DST transition in between does not shift the result.
func daysBetween(a, b time.Time) int {
	da := dates.FromTime(a).Time(time.UTC)
	db := dates.FromTime(b).Time(time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
