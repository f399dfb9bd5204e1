package calendar

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
)

var (
	// ErrNotConnected means the user has not authorised the provider yet.
	ErrNotConnected = errors.New("calendar not connected")
	// ErrTokenInvalid means stored credentials were rejected or could not be refreshed.
	ErrTokenInvalid = errors.New("calendar token invalid")
)

// Event represents a parsed calendar event.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// Interval returns the event's busy range.
func (e Event) Interval() interval.Interval {
	return interval.New(e.StartTime, e.EndTime)
}

// NewEvent is an event to be written to a user's calendar.
type NewEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// BusySource returns the time ranges in which a user is unavailable.
type BusySource interface {
	FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error)
}

// EventSource lists a user's timed events. The ICS feed ignores the user.
type EventSource interface {
	FetchEvents(ctx context.Context, userID string, start, end time.Time) ([]Event, error)
}

// EventCreator writes an event to the user's calendar and returns its provider id.
type EventCreator interface {
	CreateEvent(ctx context.Context, userID string, ev NewEvent) (string, error)
}

// BusyFunc adapts a function to BusySource.
type BusyFunc func(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error)

func (f BusyFunc) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	return f(ctx, userID, start, end)
}

// EventsToBusy converts events to intervals, dropping empty ones.
func EventsToBusy(events []Event) []interval.Interval {
	out := make([]interval.Interval, 0, len(events))
	for _, e := range events {
		iv := e.Interval()
		if iv.Empty() {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// GroupByDay groups events by date string (YYYY-MM-DD in loc).
func GroupByDay(events []Event, loc *time.Location) map[string][]Event {
	if loc == nil {
		loc = time.Local
	}
	grouped := make(map[string][]Event)
	for _, e := range events {
		key := e.StartTime.In(loc).Format("2006-01-02")
		grouped[key] = append(grouped[key], e)
	}
	for _, day := range grouped {
		sort.Slice(day, func(i, j int) bool { return day[i].StartTime.Before(day[j].StartTime) })
	}
	return grouped
}

// FormatSummaries joins event summaries with "; ".
func FormatSummaries(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	summaries := make([]string, len(events))
	for i, e := range events {
		summaries[i] = e.Summary
	}
	return strings.Join(summaries, "; ")
}

// StateStore is the key-value persistence providers use for OAuth tokens.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
	DeleteState(key string) error
}
