package gcal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/interval"
)

const defaultEventTitle = "Skedule block"

// Client reads free/busy from and writes events to a user's Google calendar.
type Client struct {
	conf       *oauth2.Config
	tokens     *TokenStore
	calendarID string
	opts       []option.ClientOption
	logger     *slog.Logger
}

// NewClient creates a Google Calendar client. Extra options are passed to
// every service constructed, e.g. option.WithEndpoint in tests.
func NewClient(conf *oauth2.Config, tokens *TokenStore, calendarID string, logger *slog.Logger, opts ...option.ClientOption) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{
		conf:       conf,
		tokens:     tokens,
		calendarID: calendarID,
		opts:       opts,
		logger:     logger,
	}
}

func (c *Client) service(ctx context.Context, userID string) (*calendarapi.Service, error) {
	tok, err := c.tokens.Load(userID)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, fmt.Errorf("google: %w", calendar.ErrNotConnected)
	}

	ts := &savingTokenSource{
		base:   c.conf.TokenSource(ctx, tok),
		store:  c.tokens,
		userID: userID,
		last:   tok.AccessToken,
	}
	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts))
	httpClient.Timeout = 30 * time.Second

	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
	srv, err := calendarapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return srv, nil
}

// FetchBusy queries the free/busy endpoint for the configured calendar.
func (c *Client) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	srv, err := c.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Freebusy.Query(&calendarapi.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []*calendarapi.FreeBusyRequestItem{{Id: c.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify("querying free/busy", err)
	}

	cal, ok := resp.Calendars[c.calendarID]
	if !ok {
		return nil, fmt.Errorf("free/busy response missing calendar %q", c.calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("free/busy for %q: %s", c.calendarID, cal.Errors[0].Reason)
	}

	busy := make([]interval.Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		s, err1 := time.Parse(time.RFC3339, b.Start)
		e, err2 := time.Parse(time.RFC3339, b.End)
		if err1 != nil || err2 != nil {
			c.logger.Debug("skipping unparseable busy period", "start", b.Start, "end", b.End)
			continue
		}
		busy = append(busy, interval.New(s, e))
	}

	c.logger.Debug("google busy fetched", "count", len(busy))
	return busy, nil
}

// FetchEvents lists single (expanded) events in [start, end).
func (c *Client) FetchEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.Event, error) {
	srv, err := c.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	var events []calendar.Event
	err = srv.Events.List(c.calendarID).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *calendarapi.Events) error {
			for _, item := range page.Items {
				if item.Status == "cancelled" || item.Start == nil || item.Start.DateTime == "" {
					continue // all-day events carry only Date
				}
				s, err1 := time.Parse(time.RFC3339, item.Start.DateTime)
				e, err2 := time.Parse(time.RFC3339, item.End.DateTime)
				if err1 != nil || err2 != nil {
					continue
				}
				events = append(events, calendar.Event{Summary: item.Summary, StartTime: s, EndTime: e})
			}
			return nil
		})
	if err != nil {
		return nil, classify("listing events", err)
	}
	return events, nil
}

// CreateEvent inserts ev and returns the new event id.
func (c *Client) CreateEvent(ctx context.Context, userID string, ev calendar.NewEvent) (string, error) {
	srv, err := c.service(ctx, userID)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = defaultEventTitle
	}
	created, err := srv.Events.Insert(c.calendarID, &calendarapi.Event{
		Summary:     title,
		Description: ev.Description,
		Start:       &calendarapi.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendarapi.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}).Context(ctx).Do()
	if err != nil {
		return "", classify("creating event", err)
	}

	c.logger.Debug("google event created", "id", created.Id)
	return created.Id, nil
}

func classify(op string, err error) error {
	if errors.Is(err, calendar.ErrTokenInvalid) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w: %v", op, calendar.ErrTokenInvalid, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
