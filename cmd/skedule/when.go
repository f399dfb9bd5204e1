package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

var absoluteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWhen accepts RFC 3339, a few absolute layouts in loc, or natural
// language like "tomorrow 9am" relative to ref.
func parseWhen(s string, ref time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := naturaldate.Parse(s, ref.In(loc), naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

// parseRange resolves --from/--to. Empty from means now; empty to means
// from plus def.
func parseRange(from, to string, now time.Time, loc *time.Location, def time.Duration) (time.Time, time.Time, error) {
	start := now
	if from != "" {
		t, err := parseWhen(from, now, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		start = t
	}
	end := start.Add(def)
	if to != "" {
		t, err := parseWhen(to, start, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		end = t
	}
	return start, end, nil
}
