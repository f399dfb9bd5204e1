package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/interval"
)

const (
	graphBaseURL      = "https://graph.microsoft.com/v1.0"
	graphTimeLayout   = "2006-01-02T15:04:05"
	defaultEventTitle = "Skedule block"
)

// Client reads and writes the signed-in user's default Outlook calendar.
type Client struct {
	auth       *Auth
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewClient(auth *Auth, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		auth:       auth,
		baseURL:    graphBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		maxRetries: 3,
		backoff:    func(attempt int) time.Duration { return time.Second << attempt },
	}
}

// apiError is a non-2xx answer from Graph.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("graph API returned %d: %s", e.Status, e.Body)
}

func (e *apiError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

func utcDateTime(t time.Time) graphDateTime {
	return graphDateTime{DateTime: t.UTC().Format(graphTimeLayout), TimeZone: "UTC"}
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphEvent struct {
	ID          string        `json:"id,omitempty"`
	Subject     string        `json:"subject"`
	Body        *graphBody    `json:"body,omitempty"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	IsCancelled bool          `json:"isCancelled,omitempty"`
	IsAllDay    bool          `json:"isAllDay,omitempty"`
	ShowAs      string        `json:"showAs,omitempty"`
}

// blocks reports whether the event occupies the user's time.
func (g graphEvent) blocks() bool {
	return !g.IsCancelled && !g.IsAllDay && g.ShowAs != "free"
}

func (g graphEvent) toEvent() (calendar.Event, error) {
	start, err := parseGraphDateTime(g.Start)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseGraphDateTime(g.End)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("end: %w", err)
	}
	return calendar.Event{Summary: g.Subject, StartTime: start, EndTime: end}, nil
}

type eventPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// FetchEvents returns the blocking events of the user's calendar view for
// [start, end), following @odata.nextLink across pages.
func (c *Client) FetchEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.Event, error) {
	token, err := c.auth.EnsureValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("startDateTime", start.UTC().Format(graphTimeLayout))
	q.Set("endDateTime", end.UTC().Format(graphTimeLayout))
	q.Set("$select", "subject,start,end,isCancelled,isAllDay,showAs")
	q.Set("$orderby", "start/dateTime")
	q.Set("$top", "100")

	var events []calendar.Event
	next := c.baseURL + "/me/calendarView?" + q.Encode()
	for next != "" {
		var page eventPage
		if err := c.call(ctx, http.MethodGet, next, token, nil, &page); err != nil {
			return nil, err
		}
		for _, g := range page.Value {
			if !g.blocks() {
				continue
			}
			ev, err := g.toEvent()
			if err != nil {
				c.logger.Debug("skipping graph event", "subject", g.Subject, "error", err)
				continue
			}
			events = append(events, ev)
		}
		next = page.NextLink
	}

	c.logger.Debug("graph calendar events fetched", "user", userID, "count", len(events))
	return events, nil
}

func (c *Client) FetchBusy(ctx context.Context, userID string, start, end time.Time) ([]interval.Interval, error) {
	events, err := c.FetchEvents(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return calendar.EventsToBusy(events), nil
}

// CreateEvent adds an event to the user's default calendar and returns its id.
func (c *Client) CreateEvent(ctx context.Context, userID string, ev calendar.NewEvent) (string, error) {
	token, err := c.auth.EnsureValidToken(ctx, userID)
	if err != nil {
		return "", err
	}

	in := graphEvent{
		Subject: strings.TrimSpace(ev.Title),
		Start:   utcDateTime(ev.Start),
		End:     utcDateTime(ev.End),
	}
	if in.Subject == "" {
		in.Subject = defaultEventTitle
	}
	if ev.Description != "" {
		in.Body = &graphBody{ContentType: "text", Content: ev.Description}
	}

	var out graphEvent
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/me/events", token, in, &out); err != nil {
		return "", err
	}
	c.logger.Debug("graph event created", "user", userID, "id", out.ID)
	return out.ID, nil
}

// call sends in as JSON (when non-nil) and decodes the response into out.
// Throttling, server errors and transport failures are retried.
func (c *Client) call(ctx context.Context, method, target, token string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encoding graph request: %w", err)
		}
	}

	var (
		body []byte
		err  error
	)
	for attempt := 0; ; attempt++ {
		body, err = c.send(ctx, method, target, token, payload)
		if err == nil || attempt >= c.maxRetries || !shouldRetry(err) {
			break
		}
		c.logger.Debug("retrying graph request", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("graph API: %w", calendar.ErrTokenInvalid)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, target, token string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graph response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, &apiError{Status: resp.StatusCode, Body: msg}
	}
	return body, nil
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	return true
}

// parseGraphDateTime reads Graph's zone-less timestamps. With the UTC
// Prefer header they arrive as "2006-01-02T15:04:05.0000000".
func parseGraphDateTime(gdt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if gdt.TimeZone != "" && gdt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(gdt.TimeZone); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{graphTimeLayout + ".0000000", graphTimeLayout} {
		if t, err := time.ParseInLocation(layout, gdt.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse datetime %q", gdt.DateTime)
}
