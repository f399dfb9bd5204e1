package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/skedule/internal/interval"
)

// ICSSource serves busy time from a single iCalendar feed, either an
// http(s) URL or a local file. The feed is shared, so the user id is ignored.
type ICSSource struct {
	source     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewICSSource(source string, logger *slog.Logger) *ICSSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ICSSource{
		source:     source,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (s *ICSSource) remote() bool {
	return strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://")
}

func (s *ICSSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !s.remote() {
		f, err := os.Open(s.source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}
	return resp.Body, nil
}

// FetchEvents returns the feed's events overlapping [start, end).
func (s *ICSSource) FetchEvents(ctx context.Context, _ string, start, end time.Time) ([]Event, error) {
	if s.source == "" {
		return nil, ErrNotConnected
	}
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	events, err := parseEvents(body, interval.New(start, end))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ics events fetched", "remote", s.remote(), "count", len(events))
	return events, nil
}

func (s *ICSSource) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	events, err := s.FetchEvents(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return EventsToBusy(events), nil
}

// parseEvents decodes every calendar in r and keeps the VEVENTs that occupy
// time inside window. Free (TRANSPARENT) and cancelled events are dropped,
// as are events whose start or end cannot be read.
func parseEvents(r io.Reader, window interval.Interval) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var out []Event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if ev, ok := blockingEvent(ical.Event{Component: comp}); ok && ev.Interval().Overlaps(window) {
				out = append(out, ev)
			}
		}
	}
}

func blockingEvent(ve ical.Event) (Event, bool) {
	if v, _ := ve.Props.Text(ical.PropTransparency); strings.EqualFold(v, "TRANSPARENT") {
		return Event{}, false
	}
	if v, _ := ve.Props.Text(ical.PropStatus); strings.EqualFold(v, "CANCELLED") {
		return Event{}, false
	}
	start, err := ve.DateTimeStart(nil)
	if err != nil {
		return Event{}, false
	}
	end, err := ve.DateTimeEnd(nil)
	if err != nil {
		return Event{}, false
	}
	summary, _ := ve.Props.Text(ical.PropSummary)
	return Event{Summary: summary, StartTime: start, EndTime: end}, true
}
