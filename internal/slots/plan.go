package slots

import (
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
)

// Request describes one candidate generation run.
type Request struct {
	// Range is the overall query window; scoring measures earliness from
	// Range.Start.
	Range    interval.Interval
	Duration time.Duration
	Window   Window
	Location *time.Location
	// Busy holds every obstacle: provider busy time and existing slots.
	Busy  []interval.Interval
	Limit int
}

// Candidates carves each preference sub-window of the request separately,
// drops blocks that fail the window re-check and removes exact duplicates.
// The result is in carve order.
func Candidates(req Request) []interval.Interval {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[string]bool)
	var out []interval.Interval
	for _, sub := range req.Window.SubWindows(req.Range, loc) {
		for _, s := range Carve(sub, req.Duration, req.Busy) {
			if !req.Range.Contains(s) || !req.Window.Allows(s, loc) {
				continue
			}
			key := s.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// Plan runs the full pipeline: carve, rank, then spread across days.
func Plan(req Request) []Candidate {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	ranked := Rank(Candidates(req), req.Range.Start, req.Window.Center, loc)
	return Spread(ranked, req.Limit, loc)
}
