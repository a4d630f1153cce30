// Package period computes weekly, biweekly, monthly and yearly windows.
//
// Every function is pure: the cadence, the biweekly anchor and "now" are
// always passed in, and all bounds are midnight in now's location.
package period

import (
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
)

// DefaultAnchor is the reference payday for biweekly windows.
var DefaultAnchor = dates.Date{Year: 2026, Month: time.January, Day: 30}

// MaxRecent caps how many windows Recent will generate.
const MaxRecent = 120

// Current returns the window containing now.
func Current(c core.Cadence, anchor dates.Date, now time.Time) (core.Period, error) {
	return At(c, anchor, now, now)
}

// At returns the window containing day. IsCurrent is set relative to now.
func At(c core.Cadence, anchor dates.Date, day, now time.Time) (core.Period, error) {
	w, err := WindowerFor(c)
	if err != nil {
		return core.Period{}, err
	}
	return build(c, w, anchor, Midnight(day.In(now.Location())), now), nil
}

// Recent returns count consecutive windows, oldest first, ending with the
// window containing now.
func Recent(c core.Cadence, anchor dates.Date, now time.Time, count int) ([]core.Period, error) {
	return Ending(c, anchor, now, now, count)
}

// Ending is Recent with the last window chosen by day instead of now.
func Ending(c core.Cadence, anchor dates.Date, day, now time.Time, count int) ([]core.Period, error) {
	if count < 1 || count > MaxRecent {
		return nil, core.Errorf(core.ErrInput, "recent periods", "count must be between 1 and %d, got %d", MaxRecent, count)
	}
	w, err := WindowerFor(c)
	if err != nil {
		return nil, err
	}

	out := make([]core.Period, count)
	cursor := Midnight(day.In(now.Location()))
	for i := count - 1; i >= 0; i-- {
		p := build(c, w, anchor, cursor, now)
		out[i] = p
		cursor = p.Start.AddDate(0, 0, -1)
	}
	return out, nil
}

// Previous returns the window of equal length immediately before p:
// [start-length, end-length]. For monthly and yearly windows this is a
// day-count shift, not the previous calendar month or year.
func Previous(p core.Period) core.Period {
	n := p.Days()
	prev := core.Period{
		Cadence: p.Cadence,
		Start:   p.Start.AddDate(0, 0, -n),
		End:     p.End.AddDate(0, 0, -n),
	}
	prev.Label = rangeLabel(prev.Start, prev.End)
	if w, err := WindowerFor(p.Cadence); err == nil {
		if s, e := w.Bounds(prev.Start, dates.Date{}); s.Equal(prev.Start) && e.Equal(prev.End) {
			prev.Label = w.Label(s, e)
		}
	}
	return prev
}

// Contains reports whether t, truncated to midnight in the period's
// location, falls inside p. Both bounds are inclusive.
func Contains(p core.Period, t time.Time) bool {
	d := Midnight(t.In(p.Start.Location()))
	return !d.Before(p.Start) && !d.After(p.End)
}

// Midnight truncates t to the start of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func build(c core.Cadence, w Windower, anchor dates.Date, day, now time.Time) core.Period {
	start, end := w.Bounds(day, anchor)
	p := core.Period{
		Cadence: c,
		Start:   start,
		End:     end,
		Label:   w.Label(start, end),
	}
	p.IsCurrent = Contains(p, now)
	return p
}
