// Package slots turns free time into ranked candidate blocks for a task.
package slots

import (
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
)

// Carve packs window with back-to-back blocks of length d that avoid busy.
// When a busy interval gets in the way the cursor jumps to its end, so the
// result is ordered, disjoint and never overlaps busy time.
func Carve(window interval.Interval, d time.Duration, busy []interval.Interval) []interval.Interval {
	if d <= 0 || window.Empty() {
		return nil
	}

	sorted := make([]interval.Interval, len(busy))
	copy(sorted, busy)
	interval.Sort(sorted)

	var out []interval.Interval
	t := window.Start
	bi := 0
	for {
		end := t.Add(d)
		if end.After(window.End) {
			break
		}
		for bi < len(sorted) && !sorted[bi].End.After(t) {
			bi++
		}
		if bi < len(sorted) && sorted[bi].Start.Before(end) {
			// sorted[bi].End > t here, so the cursor always moves forward.
			t = sorted[bi].End
			bi++
			continue
		}
		out = append(out, interval.New(t, end))
		t = end
	}
	return out
}
