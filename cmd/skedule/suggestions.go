package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/model"
	"github.com/christopherklint97/skedule/internal/store"
	"github.com/christopherklint97/skedule/internal/suggest"
	"github.com/christopherklint97/skedule/internal/tui"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <task-id>",
	Short: "Propose time blocks for a task",
	Long: "suggest replaces the task's pending suggestions with a fresh set of blocks that avoid " +
		"calendar busy time and every other outstanding suggestion.",
	Args: cobra.ExactArgs(1),
	RunE: withEnv(runSuggest),
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List suggestions",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runSuggestions),
}

var approveCmd = &cobra.Command{
	Use:   "approve <suggestion-id>",
	Short: "Approve a pending suggestion",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runApprove),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <suggestion-id>",
	Short: "Reject a pending suggestion",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runReject),
}

var rejectAllCmd = &cobra.Command{
	Use:   "reject-all",
	Short: "Reject every pending suggestion, optionally proposing new ones",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runRejectAll),
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review pending suggestions interactively",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runReview),
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", `Range start, e.g. "2025-03-03 09:00" or "tomorrow" (default now)`)
	cmd.Flags().String("to", "", "Range end (default from plus the maximum window)")
	cmd.Flags().Int("count", 0, "Blocks to propose for tasks without an estimate")
}

func init() {
	addRangeFlags(suggestCmd)

	suggestionsCmd.Flags().String("task", "", "Only this task")
	suggestionsCmd.Flags().Bool("all", false, "Include approved and rejected suggestions")

	approveCmd.Flags().Bool("no-calendar", false, "Do not add the block to the calendar")

	rejectAllCmd.Flags().String("task", "", "Only this task")
	rejectAllCmd.Flags().Bool("resuggest", false, "Propose new blocks for tasks that are not complete")
	addRangeFlags(rejectAllCmd)

	reviewCmd.Flags().String("task", "", "Only this task")
	reviewCmd.Flags().Bool("no-calendar", false, "Start with adding to the calendar turned off")

	rootCmd.AddCommand(suggestCmd, suggestionsCmd, approveCmd, rejectCmd, rejectAllCmd, reviewCmd)
}

func (e *env) rangeFlags(cmd *cobra.Command, loc *time.Location) (time.Time, time.Time, int, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	count, _ := cmd.Flags().GetInt("count")
	window := time.Duration(e.cfg.Suggest.MaxWindowDays) * 24 * time.Hour
	start, end, err := parseRange(from, to, e.now(), loc, window)
	return start, end, count, err
}

func runSuggest(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	loc := e.location(cmd.Context())
	start, end, count, err := e.rangeFlags(cmd, loc)
	if err != nil {
		return err
	}

	created, err := svc.Generate(cmd.Context(), suggest.GenerateRequest{
		UserID: e.userID(),
		TaskID: args[0],
		Start:  start,
		End:    end,
		Count:  count,
	})
	var quota *suggest.QuotaExceededError
	if errors.As(err, &quota) {
		return fmt.Errorf("you already have %d outstanding suggestions (limit %d); approve or reject some first", quota.Count, quota.Cap)
	}
	if err != nil {
		return err
	}

	if len(created) == 0 {
		printf(cmd, "No new suggestions: the task is fully scheduled or no free time fits.\n")
		return nil
	}
	printf(cmd, "%d suggestion(s):\n", len(created))
	for _, s := range created {
		printf(cmd, "  %s  %s\n", s.ID, formatSlotTime(s, loc))
	}
	return nil
}

func runSuggestions(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	taskID, _ := cmd.Flags().GetString("task")
	all, _ := cmd.Flags().GetBool("all")

	var views []store.SlotView
	if all {
		views, err = svc.List(cmd.Context(), e.userID(), taskID)
	} else {
		views, err = svc.ListPending(cmd.Context(), e.userID(), taskID)
	}
	if err != nil {
		return err
	}
	if len(views) == 0 {
		printf(cmd, "No suggestions.\n")
		return nil
	}

	loc := e.location(cmd.Context())
	for _, v := range views {
		printf(cmd, "  %s  %s  %-8s  %s\n", v.ID, formatSlotTime(v.Slot, loc), v.Status, v.TaskName)
	}
	return nil
}

func runApprove(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	noCalendar, _ := cmd.Flags().GetBool("no-calendar")

	res, err := svc.Approve(cmd.Context(), e.userID(), args[0], !noCalendar)
	if res == nil {
		return err
	}

	printf(cmd, "Approved %s.\n", args[0])
	if res.AddedToCalendar {
		printf(cmd, "Added to calendar (event %s).\n", res.CalendarEventID)
	}
	printf(cmd, "Progress: %s\n", formatProgress(model.Progress{
		ApprovedMinutes:  res.ApprovedMinutes,
		EstimatedMinutes: res.EstimatedMinutes,
	}))
	if res.TaskComplete {
		printf(cmd, "Task fully scheduled; remaining suggestions were cleared.\n")
	}
	if err != nil {
		return fmt.Errorf("approval saved, but the calendar event failed: %w", err)
	}
	return nil
}

func runReject(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	if err := svc.Reject(cmd.Context(), e.userID(), args[0]); err != nil {
		return err
	}
	printf(cmd, "Rejected %s.\n", args[0])
	return nil
}

func runRejectAll(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	taskID, _ := cmd.Flags().GetString("task")
	resuggest, _ := cmd.Flags().GetBool("resuggest")

	req := suggest.RejectAllRequest{UserID: e.userID(), TaskID: taskID, Resuggest: resuggest}
	if resuggest && (cmd.Flags().Changed("from") || cmd.Flags().Changed("to")) {
		req.Start, req.End, req.Count, err = e.rangeFlags(cmd, e.location(cmd.Context()))
		if err != nil {
			return err
		}
	} else {
		req.Count, _ = cmd.Flags().GetInt("count")
	}

	res, err := svc.RejectAll(cmd.Context(), req)
	if err != nil {
		return err
	}
	printf(cmd, "Rejected %d suggestion(s).\n", res.Rejected)
	if resuggest {
		printf(cmd, "Created %d new suggestion(s).\n", res.Resuggested)
	}
	ids := make([]string, 0, len(res.Skipped))
	for id := range res.Skipped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printf(cmd, "  skipped %s: %v\n", id, res.Skipped[id])
	}
	return nil
}

func runReview(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	taskID, _ := cmd.Flags().GetString("task")
	noCalendar, _ := cmd.Flags().GetBool("no-calendar")

	app := tui.NewApp(svc, e.userID(), taskID, e.location(cmd.Context()), !noCalendar)
	p := tea.NewProgram(app, tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	res := app.GetResult()
	printf(cmd, "Approved %d, rejected %d.\n", res.Approved, res.Rejected)
	for _, name := range res.CompletedTasks {
		printf(cmd, "  %s is fully scheduled\n", name)
	}
	return nil
}

func formatSlotTime(s model.Slot, loc *time.Location) string {
	start := s.Start.In(loc)
	end := s.End.In(loc)
	return fmt.Sprintf("%s %s-%s (%dmin)",
		start.Format("Mon 2006-01-02"),
		start.Format("15:04"),
		end.Format("15:04"),
		s.Minutes(),
	)
}
