package slots

import (
	"sort"
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
)

// centerWeight scales the time-of-day term so that earliness dominates.
const centerWeight = 0.1

// Candidate is a carved block with its ranking score. Higher is better.
type Candidate struct {
	interval.Interval
	Score float64
}

// Score prefers early blocks first and, among similarly early ones, blocks
// closer to center (minutes since local midnight).
func Score(slotStart, windowStart time.Time, center int, loc *time.Location) float64 {
	wait := slotStart.Sub(windowStart).Minutes()
	dist := circularDistance(minuteOfDay(slotStart.In(loc)), center)
	return -wait - centerWeight*float64(dist)
}

// Rank scores every slot and orders the result by score descending, breaking
// ties with the start time string ascending.
func Rank(slots []interval.Interval, windowStart time.Time, center int, loc *time.Location) []Candidate {
	out := make([]Candidate, 0, len(slots))
	for _, s := range slots {
		out = append(out, Candidate{Interval: s, Score: Score(s.Start, windowStart, center, loc)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return startKey(out[i].Start) < startKey(out[j].Start)
	})
	return out
}

func startKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
