package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/calendar"
	"github.com/christopherklint97/skedule/internal/gcal"
	"github.com/christopherklint97/skedule/internal/interval"
	"github.com/christopherklint97/skedule/internal/msgraph"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Connect and inspect calendars",
}

var calendarAuthCmd = &cobra.Command{
	Use:       "auth <google|graph>",
	Short:     "Authorize access to a calendar provider",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"google", "graph"},
	RunE:      withEnv(runCalendarAuth),
}

var calendarLogoutCmd = &cobra.Command{
	Use:       "logout <google|graph>",
	Short:     "Forget stored credentials for a provider",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"google", "graph"},
	RunE:      withEnv(runCalendarLogout),
}

var calendarBusyCmd = &cobra.Command{
	Use:   "busy",
	Short: "Show merged busy time from every configured source",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runCalendarBusy),
}

var calendarEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events from every configured source, by day",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runCalendarEvents),
}

var calendarExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write approved blocks as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runCalendarExport),
}

func init() {
	calendarBusyCmd.Flags().String("from", "", "Range start (default now)")
	calendarBusyCmd.Flags().String("to", "", "Range end (default one week later)")

	calendarEventsCmd.Flags().String("from", "", "Range start (default now)")
	calendarEventsCmd.Flags().String("to", "", "Range end (default one week later)")

	calendarExportCmd.Flags().String("from", "", "Only blocks ending after this time")
	calendarExportCmd.Flags().String("to", "", "Only blocks starting before this time")
	calendarExportCmd.Flags().StringP("output", "o", "", "File to write (default stdout)")

	calendarCmd.AddCommand(calendarAuthCmd, calendarLogoutCmd, calendarBusyCmd, calendarEventsCmd, calendarExportCmd)
	rootCmd.AddCommand(calendarCmd)
}

func runCalendarAuth(cmd *cobra.Command, args []string, e *env) error {
	ctx := cmd.Context()
	switch args[0] {
	case "google":
		conf, err := gcal.ConfigFromFile(e.cfg.Calendar.Google.CredentialsFile)
		if err != nil {
			return fmt.Errorf("set calendar.google.credentials_file first: %w", err)
		}
		if e.cfg.Calendar.Google.RedirectURL != "" {
			conf.RedirectURL = e.cfg.Calendar.Google.RedirectURL
		}
		err = gcal.Authorize(ctx, conf, gcal.NewTokenStore(e.db), e.userID(), func(url string) {
			printf(cmd, "Open this URL in your browser to authorize skedule:\n\n  %s\n\n", url)
		})
		if err != nil {
			return err
		}
	case "graph":
		auth := e.graphAuth()
		if !auth.Configured() {
			return fmt.Errorf("set calendar.graph.client_id first: %w", calendar.ErrNotConnected)
		}
		err := auth.Login(ctx, e.userID(), func(msg string) {
			printf(cmd, "%s\n", msg)
		})
		if err != nil {
			return err
		}
	}
	printf(cmd, "Connected %s calendar.\n", args[0])
	return nil
}

func runCalendarLogout(cmd *cobra.Command, args []string, e *env) error {
	var err error
	switch args[0] {
	case "google":
		err = gcal.NewTokenStore(e.db).Delete(e.userID())
	case "graph":
		err = msgraph.NewTokenStore(e.db).Delete(e.userID())
	}
	if err != nil {
		return err
	}
	printf(cmd, "Removed %s credentials.\n", args[0])
	return nil
}

func runCalendarBusy(cmd *cobra.Command, args []string, e *env) error {
	loc := e.location(cmd.Context())
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	start, end, err := parseRange(from, to, e.now(), loc, 7*24*time.Hour)
	if err != nil {
		return err
	}

	agg, err := e.aggregator()
	if err != nil {
		return err
	}
	if agg.Len() == 0 {
		printf(cmd, "No calendar sources configured (calendar.sources).\n")
		return nil
	}

	var busy []interval.Interval
	for _, r := range agg.FetchAll(cmd.Context(), e.userID(), start, end) {
		if r.Skipped() {
			printf(cmd, "%s: skipped (%v)\n", r.Name, r.Err)
			continue
		}
		printf(cmd, "%s: %d busy interval(s)\n", r.Name, len(r.Intervals))
		busy = append(busy, r.Intervals...)
	}

	merged := interval.Merge(busy)
	if len(merged) == 0 {
		printf(cmd, "\nFree the whole range.\n")
		return nil
	}

	printf(cmd, "\n")
	byDay := make(map[string][]interval.Interval)
	for _, iv := range merged {
		day := iv.Start.In(loc).Format("Mon 2006-01-02")
		byDay[day] = append(byDay[day], iv)
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return byDay[days[i]][0].Start.Before(byDay[days[j]][0].Start)
	})
	for _, d := range days {
		printf(cmd, "%s\n", d)
		for _, iv := range byDay[d] {
			printf(cmd, "  %s-%s\n", iv.Start.In(loc).Format("15:04"), iv.End.In(loc).Format("15:04"))
		}
	}
	printf(cmd, "\nTotal busy: %s\n", interval.Total(merged))
	return nil
}

func runCalendarEvents(cmd *cobra.Command, args []string, e *env) error {
	loc := e.location(cmd.Context())
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	start, end, err := parseRange(from, to, e.now(), loc, 7*24*time.Hour)
	if err != nil {
		return err
	}

	srcs, err := e.sources()
	if err != nil {
		return err
	}

	var events []calendar.Event
	for _, src := range srcs {
		lister, ok := src.Source.(calendar.EventSource)
		if !ok {
			continue
		}
		evs, err := lister.FetchEvents(cmd.Context(), e.userID(), start, end)
		if err != nil {
			printf(cmd, "%s: skipped (%v)\n", src.Name, err)
			continue
		}
		events = append(events, evs...)
	}
	if len(events) == 0 {
		printf(cmd, "No events.\n")
		return nil
	}

	byDay := calendar.GroupByDay(events, loc)
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		printf(cmd, "%s  %s\n", d, calendar.FormatSummaries(byDay[d]))
		for _, ev := range byDay[d] {
			printf(cmd, "  %s-%s  %s\n", ev.StartTime.In(loc).Format("15:04"), ev.EndTime.In(loc).Format("15:04"), ev.Summary)
		}
	}
	return nil
}

func runCalendarExport(cmd *cobra.Command, args []string, e *env) error {
	loc := e.location(cmd.Context())
	var from, to time.Time
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := parseWhen(s, e.now(), loc)
		if err != nil {
			return err
		}
		from = t
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := parseWhen(s, e.now(), loc)
		if err != nil {
			return err
		}
		to = t
	}

	svc, err := e.service()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	path, _ := cmd.Flags().GetString("output")
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	n, err := svc.ExportApproved(cmd.Context(), out, e.userID(), from, to)
	if err != nil {
		return err
	}
	if path != "" {
		printf(cmd, "Wrote %d block(s) to %s\n", n, path)
	}
	return nil
}
