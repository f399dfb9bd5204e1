package slots

import (
	"sort"
	"time"
)

// Spread picks up to limit candidates from a ranked list, taking the best
// remaining candidate of each local day in turn (days in ascending order)
// rather than the global top-N. This keeps a single day from using up the
// whole allowance when other days have room.
func Spread(ranked []Candidate, limit int, loc *time.Location) []Candidate {
	if limit <= 0 || len(ranked) == 0 {
		return nil
	}

	byDay := make(map[string][]Candidate)
	var days []string
	for _, c := range ranked {
		day := c.Start.In(loc).Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], c)
	}
	sort.Strings(days)

	var out []Candidate
	for len(out) < limit {
		picked := false
		for _, day := range days {
			if len(out) >= limit {
				break
			}
			queue := byDay[day]
			if len(queue) == 0 {
				continue
			}
			out = append(out, queue[0])
			byDay[day] = queue[1:]
			picked = true
		}
		if !picked {
			break
		}
	}
	return out
}
