package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan <description>",
	Short: "Ask the language model for an advisory time-block plan",
	Long: "plan sends the description, your preferences and your free time to the configured " +
		"model and prints the plan it returns. Plans are not stored as suggestions.",
	Args: cobra.MinimumNArgs(1),
	RunE: withEnv(runPlan),
}

func init() {
	planCmd.Flags().String("from", "", "Range start (default now)")
	planCmd.Flags().String("to", "", "Range end (default and maximum one week later)")
	planCmd.Flags().StringToString("pref", nil, "Preferences passed to the model, e.g. --pref focus=mornings")
	planCmd.Flags().Bool("json", false, "Print the raw plan as JSON")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string, e *env) error {
	p, err := e.planner()
	if err != nil {
		return err
	}
	loc := e.location(cmd.Context())
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	start, end, err := parseRange(from, to, e.now(), loc, planner.MaxWindow)
	if err != nil {
		return err
	}
	prefs, _ := cmd.Flags().GetStringToString("pref")
	asJSON, _ := cmd.Flags().GetBool("json")

	profile, err := e.db.GetProfile(cmd.Context(), e.userID())
	if err != nil {
		return err
	}

	res, err := p.Plan(cmd.Context(), planner.Request{
		UserID:      e.userID(),
		Task:        strings.Join(args, " "),
		Preferences: prefs,
		Start:       start,
		End:         end,
	}, *profile)
	if err != nil {
		return err
	}

	if res.Plan == nil {
		printf(cmd, "The model did not return a structured plan:\n\n%s\n", res.Raw)
		return nil
	}
	if asJSON {
		out, err := json.MarshalIndent(res.Plan, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding plan: %w", err)
		}
		printf(cmd, "%s\n", out)
		return nil
	}

	printf(cmd, "Estimated total: %d min across %d free block(s)\n\n", res.Plan.TotalEstimatedMinutes, len(res.FreeBlocks))
	for _, b := range res.Plan.Blocks {
		printf(cmd, "  %s  %3dmin  %s\n", formatPlanRange(b, loc), b.DurationMinutes, b.Reason)
	}
	if res.Plan.Notes != "" {
		printf(cmd, "\n%s\n", res.Plan.Notes)
	}
	return nil
}

// formatPlanRange renders a block's times in loc when the model returned
// RFC 3339, and verbatim otherwise.
func formatPlanRange(b planner.Block, loc *time.Location) string {
	start, err1 := time.Parse(time.RFC3339, b.Start)
	end, err2 := time.Parse(time.RFC3339, b.End)
	if err1 != nil || err2 != nil {
		return b.Start + " - " + b.End
	}
	start, end = start.In(loc), end.In(loc)
	return fmt.Sprintf("%s %s-%s", start.Format("Mon 2006-01-02"), start.Format("15:04"), end.Format("15:04"))
}
