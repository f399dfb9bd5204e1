// Package interval implements half-open time interval arithmetic used to turn
// busy calendar time into free time.
package interval

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, end).
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start, or zero for an empty or inverted interval.
func (iv Interval) Duration() time.Duration {
	if !iv.End.After(iv.Start) {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

// Empty reports whether the interval contains no instant.
func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps reports whether the two intervals share at least one instant.
// Touching intervals ([a,b) and [b,c)) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies fully inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Key returns a stable string form of the boundaries, used for exact-match
// deduplication and as a deterministic tiebreak.
func (iv Interval) Key() string {
	return iv.Start.UTC().Format(time.RFC3339) + "/" + iv.End.UTC().Format(time.RFC3339)
}

// Sort orders intervals in place by start, then end.
func Sort(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].Start.Equal(ivs[j].Start) {
			return ivs[i].End.Before(ivs[j].End)
		}
		return ivs[i].Start.Before(ivs[j].Start)
	})
}

// Merge returns the sorted, non-overlapping, minimal cover of ivs. Intervals
// that touch are joined. Empty intervals are dropped. The input is not modified.
func Merge(ivs []Interval) []Interval {
	sorted := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	Sort(sorted)

	var merged []Interval
	for _, iv := range sorted {
		if n := len(merged); n > 0 && !iv.Start.After(merged[n-1].End) {
			if iv.End.After(merged[n-1].End) {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Clip returns iv restricted to window, and false when nothing remains.
func Clip(iv, window Interval) (Interval, bool) {
	if iv.Start.Before(window.Start) {
		iv.Start = window.Start
	}
	if iv.End.After(window.End) {
		iv.End = window.End
	}
	return iv, !iv.Empty()
}

// Free subtracts the union of busy from window and returns the remaining
// free intervals in order. Busy time outside the window is ignored.
func Free(window Interval, busy []Interval) []Interval {
	if window.Empty() {
		return nil
	}

	var free []Interval
	cursor := window.Start
	for _, b := range Merge(busy) {
		b, ok := Clip(b, window)
		if !ok {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// Total returns the summed duration of ivs after merging, so overlapping
// time is counted once.
func Total(ivs []Interval) time.Duration {
	var d time.Duration
	for _, iv := range Merge(ivs) {
		d += iv.Duration()
	}
	return d
}
