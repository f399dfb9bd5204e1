package slots

import (
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/model"
)

const minutesPerDay = 24 * 60

// HourRange is the local-hour range [Start, End). End may be 24.
type HourRange struct {
	Start int
	End   int
}

func (h HourRange) containsMinute(m int) bool {
	return m >= h.Start*60 && m < h.End*60
}

// Window is the set of local hours a preference allows, plus the
// minute-of-day that scoring pulls candidates towards.
type Window struct {
	Ranges []HourRange
	Center int
}

var windows = map[model.Preference]Window{
	model.PreferMorning: {Ranges: []HourRange{{5, 11}}, Center: 8 * 60},
	model.PreferMidday:  {Ranges: []HourRange{{11, 20}}, Center: 15*60 + 30},
	// Night wraps midnight; its midpoint is 00:30.
	model.PreferNight: {Ranges: []HourRange{{0, 5}, {20, 24}}, Center: 30},
}

// WindowFor returns the hour window for p. Unknown values fall back to midday.
func WindowFor(p model.Preference) Window {
	if w, ok := windows[p]; ok {
		return w
	}
	return windows[model.PreferMidday]
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Allows reports whether slot sits entirely inside one hour range on a single
// local day. The end is exclusive, so a block ending exactly at the range
// boundary is allowed.
func (w Window) Allows(slot interval.Interval, loc *time.Location) bool {
	if slot.Empty() {
		return false
	}
	start := slot.Start.In(loc)
	last := slot.End.Add(-time.Nanosecond).In(loc)
	if start.YearDay() != last.YearDay() || start.Year() != last.Year() {
		return false
	}
	for _, r := range w.Ranges {
		if r.containsMinute(minuteOfDay(start)) && r.containsMinute(minuteOfDay(last)) {
			return true
		}
	}
	return false
}

// SubWindows returns, for every local calendar day touching rng, the part of
// each hour range that falls inside rng. The night preference yields two
// sub-windows per day. Results are ordered by start.
func (w Window) SubWindows(rng interval.Interval, loc *time.Location) []interval.Interval {
	if rng.Empty() {
		return nil
	}

	first := rng.Start.In(loc)
	last := rng.End.Add(-time.Nanosecond).In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	var out []interval.Interval
	for !day.After(lastDay) {
		for _, r := range w.Ranges {
			sub := interval.New(
				time.Date(day.Year(), day.Month(), day.Day(), r.Start, 0, 0, 0, loc),
				time.Date(day.Year(), day.Month(), day.Day(), r.End, 0, 0, 0, loc),
			)
			if clipped, ok := interval.Clip(sub, rng); ok {
				out = append(out, clipped)
			}
		}
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc)
	}
	interval.Sort(out)
	return out
}

// circularDistance is the distance in minutes between two minutes-of-day on
// the 24h clock.
func circularDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= minutesPerDay
	if minutesPerDay-d < d {
		return minutesPerDay - d
	}
	return d
}
