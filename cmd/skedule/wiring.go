package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/config"
	"github.com/christopherklint97/skedule/internal/gcal"
	"github.com/christopherklint97/skedule/internal/msgraph"
	"github.com/christopherklint97/skedule/internal/notify"
	"github.com/christopherklint97/skedule/internal/planner"
	"github.com/christopherklint97/skedule/internal/store"
	"github.com/christopherklint97/skedule/internal/suggest"
)

const busyCacheSize = 128

// env holds everything a command needs, opened once per invocation.
type env struct {
	cfg    *config.Config
	db     *store.DB
	logger *slog.Logger
	now    func() time.Time
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	e := &env{cfg: cfg, db: db, logger: newLogger(), now: time.Now}
	if err := e.seedProfile(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// seedProfile stores the [user] settings as the profile the first time the
// database is used, so generation sees the configured timezone.
func (e *env) seedProfile(ctx context.Context) error {
	p, err := e.db.GetProfile(ctx, e.userID())
	if err != nil {
		return err
	}
	if !p.UpdatedAt.IsZero() {
		return nil
	}
	p.DisplayName = e.cfg.User.DisplayName
	p.Timezone = e.cfg.User.Timezone
	if err := e.db.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("seeding profile from config: %w", err)
	}
	return nil
}

// withEnv adapts a command body that needs an env to cobra's RunE.
func withEnv(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.db.Close()
		return run(cmd, args, e)
	}
}

func (e *env) userID() string {
	return e.cfg.User.ID
}

// location returns the user's profile timezone.
func (e *env) location(ctx context.Context) *time.Location {
	p, err := e.db.GetProfile(ctx, e.userID())
	if err != nil {
		return time.UTC
	}
	return p.Location()
}

func (e *env) googleClient() (*gcal.Client, error) {
	conf, err := gcal.ConfigFromFile(e.cfg.Calendar.Google.CredentialsFile)
	if err != nil {
		return nil, err
	}
	if e.cfg.Calendar.Google.RedirectURL != "" {
		conf.RedirectURL = e.cfg.Calendar.Google.RedirectURL
	}
	return gcal.NewClient(conf, gcal.NewTokenStore(e.db), e.cfg.Calendar.Google.CalendarID, e.logger), nil
}

func (e *env) graphAuth() *msgraph.Auth {
	g := e.cfg.Calendar.Graph
	return msgraph.NewAuth(g.ClientID, g.TenantID, msgraph.NewTokenStore(e.db), e.logger)
}

func (e *env) graphClient() (*msgraph.Client, error) {
	auth := e.graphAuth()
	if !auth.Configured() {
		return nil, fmt.Errorf("graph client_id not configured: %w", calendar.ErrNotConnected)
	}
	return msgraph.NewClient(auth, e.logger), nil
}

// sources builds the configured busy providers. A provider that cannot be
// constructed is logged and left out.
func (e *env) sources() ([]calendar.NamedSource, error) {
	var out []calendar.NamedSource
	for _, name := range e.cfg.Calendar.Sources {
		var (
			src calendar.BusySource
			err error
		)
		switch name {
		case "google":
			src, err = e.googleClient()
		case "graph":
			src, err = e.graphClient()
		case "ics":
			src = calendar.NewICSSource(e.cfg.Calendar.ICS.Source, e.logger)
		default:
			return nil, fmt.Errorf("unknown calendar source %q (want google, graph or ics)", name)
		}
		if err != nil {
			e.logger.Warn("calendar source unavailable", "source", name, "error", err)
			continue
		}
		out = append(out, calendar.NamedSource{Name: name, Source: src})
	}
	return out, nil
}

func (e *env) aggregator() (*calendar.Aggregator, error) {
	srcs, err := e.sources()
	if err != nil {
		return nil, err
	}
	return calendar.NewAggregator(srcs, e.logger), nil
}

func (e *env) busySource() (calendar.BusySource, error) {
	agg, err := e.aggregator()
	if err != nil {
		return nil, err
	}
	return calendar.NewCachedSource(agg, busyCacheSize, e.cfg.Calendar.CacheTTL()), nil
}

// eventCreator returns the configured event target, or nil when none is set.
func (e *env) eventCreator() (calendar.EventCreator, error) {
	switch e.cfg.Calendar.EventTarget {
	case "":
		return nil, nil
	case "google":
		return e.googleClient()
	case "graph":
		return e.graphClient()
	}
	return nil, fmt.Errorf("unknown event target %q (want google or graph)", e.cfg.Calendar.EventTarget)
}

func (e *env) suggestConfig() suggest.Config {
	s := e.cfg.Suggest
	return suggest.Config{
		Quota:        s.Quota,
		MinCount:     s.MinCount,
		MaxCount:     s.MaxCount,
		DefaultCount: s.DefaultCount,
		MaxWindow:    time.Duration(s.MaxWindowDays) * 24 * time.Hour,
		MaxLookback:  time.Duration(s.MaxLookbackHours) * time.Hour,
	}
}

func (e *env) service() (*suggest.Service, error) {
	busy, err := e.busySource()
	if err != nil {
		return nil, err
	}
	events, err := e.eventCreator()
	if err != nil {
		e.logger.Warn("calendar event target unavailable", "error", err)
		events = nil
	}
	events = calendar.InvalidateOnCreate(busy, events)
	return suggest.New(e.db, suggest.Options{
		Busy:     busy,
		Events:   events,
		Notifier: notify.New(e.cfg.Notifications.Enabled, e.logger),
		Config:   e.suggestConfig(),
		Logger:   e.logger,
		Now:      e.now,
	}), nil
}

func (e *env) planner() (*planner.Planner, error) {
	busy, err := e.busySource()
	if err != nil {
		return nil, err
	}
	p := e.cfg.Planner
	return planner.New(planner.Config{APIKey: p.APIKey, BaseURL: p.BaseURL, Model: p.Model}, busy, e.logger)
}
