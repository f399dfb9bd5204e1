package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/christopherklint97/skedule/internal/model"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withEnv(runTaskAdd),
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runTaskList),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task and its progress",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTaskShow),
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Change fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTaskUpdate),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its suggestions",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTaskDelete),
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show approved minutes against the estimate",
	Args:  cobra.ExactArgs(1),
	RunE:  withEnv(runTaskStatus),
}

func addTaskFlags(fs *pflag.FlagSet) {
	fs.String("description", "", "Longer description, copied into calendar events")
	fs.String("difficulty", "medium", "easy, medium or hard")
	fs.String("focus", "medium", "Block length: short, medium, long or a number of minutes")
	fs.String("preference", "", "Time of day: morning, midday or night")
	fs.Int("estimate", 0, "Estimated total minutes; 0 means none")
}

func init() {
	addTaskFlags(taskAddCmd.Flags())
	addTaskFlags(taskUpdateCmd.Flags())
	taskUpdateCmd.Flags().String("name", "", "New task name")
	taskUpdateCmd.Flags().Bool("clear-estimate", false, "Remove the estimate")
	taskUpdateCmd.Flags().Bool("clear-preference", false, "Remove the time preference")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskUpdateCmd, taskDeleteCmd, taskStatusCmd)
	rootCmd.AddCommand(taskCmd)
}

// applyTaskFlags copies the flags that were set (or all, when all is true)
// onto t.
func applyTaskFlags(fs *pflag.FlagSet, t *model.Task, all bool) error {
	set := func(name string) bool { return all || fs.Changed(name) }

	if set("description") {
		t.Description, _ = fs.GetString("description")
	}
	if set("difficulty") {
		v, _ := fs.GetString("difficulty")
		d, err := model.ParseDifficulty(v)
		if err != nil {
			return err
		}
		t.Difficulty = d
	}
	if set("focus") {
		v, _ := fs.GetString("focus")
		if err := applyFocus(t, v); err != nil {
			return err
		}
	}
	if fs.Changed("preference") {
		v, _ := fs.GetString("preference")
		p, err := model.ParsePreference(v)
		if err != nil {
			return err
		}
		t.Preference = &p
	}
	if fs.Changed("estimate") {
		v, _ := fs.GetInt("estimate")
		if v < 0 {
			return fmt.Errorf("estimate must not be negative")
		}
		if v == 0 {
			t.EstimatedMinutes = nil
		} else {
			t.EstimatedMinutes = &v
		}
	}
	return nil
}

func applyFocus(t *model.Task, v string) error {
	if m, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		t.SetFocusMinutes(m)
		return nil
	}
	l, err := model.ParseFocusLevel(v)
	if err != nil {
		return err
	}
	t.SetFocusLevel(l)
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string, e *env) error {
	t := model.Task{
		ID:        uuid.NewString(),
		UserID:    e.userID(),
		Name:      strings.Join(args, " "),
		CreatedAt: e.now(),
	}
	if err := applyTaskFlags(cmd.Flags(), &t, true); err != nil {
		return err
	}
	if err := e.db.InsertTask(cmd.Context(), &t); err != nil {
		return err
	}
	printf(cmd, "Created task %s: %s\n", t.ID, t.Name)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string, e *env) error {
	tasks, err := e.db.ListTasks(cmd.Context(), e.userID())
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		printf(cmd, "No tasks. Add one with 'skedule task add <name>'.\n")
		return nil
	}
	for _, t := range tasks {
		printf(cmd, "  %s  %-30s  %s\n", t.ID, t.Name, describeTask(t))
	}
	return nil
}

func describeTask(t model.Task) string {
	parts := []string{fmt.Sprintf("%dmin blocks", t.FocusMinutes)}
	parts = append(parts, string(t.EffectivePreference()))
	if t.EstimatedMinutes != nil {
		parts = append(parts, fmt.Sprintf("est %dmin", *t.EstimatedMinutes))
	}
	if t.Difficulty != "" {
		parts = append(parts, string(t.Difficulty))
	}
	return strings.Join(parts, ", ")
}

func runTaskShow(cmd *cobra.Command, args []string, e *env) error {
	t, err := e.db.GetTask(cmd.Context(), e.userID(), args[0])
	if err != nil {
		return err
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	p, err := svc.TaskStatus(cmd.Context(), e.userID(), t.ID)
	if err != nil {
		return err
	}

	printf(cmd, "%s\n", t.Name)
	if t.Description != "" {
		printf(cmd, "  %s\n", t.Description)
	}
	printf(cmd, "  id:         %s\n", t.ID)
	printf(cmd, "  difficulty: %s\n", t.Difficulty)
	printf(cmd, "  focus:      %s (%d min)\n", t.FocusLevel, t.FocusMinutes)
	printf(cmd, "  preference: %s\n", t.EffectivePreference())
	printf(cmd, "  created:    %s\n", t.CreatedAt.In(e.location(cmd.Context())).Format(time.DateTime))
	printf(cmd, "  progress:   %s\n", formatProgress(*p))
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string, e *env) error {
	t, err := e.db.GetTask(cmd.Context(), e.userID(), args[0])
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("name") {
		t.Name, _ = fs.GetString("name")
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("name must not be empty")
		}
	}
	if err := applyTaskFlags(fs, t, false); err != nil {
		return err
	}
	if v, _ := fs.GetBool("clear-estimate"); v {
		t.EstimatedMinutes = nil
	}
	if v, _ := fs.GetBool("clear-preference"); v {
		t.Preference = nil
	}
	if err := e.db.UpdateTask(cmd.Context(), t); err != nil {
		return err
	}
	printf(cmd, "Updated task %s\n", t.ID)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string, e *env) error {
	if err := e.db.DeleteTask(cmd.Context(), e.userID(), args[0]); err != nil {
		return err
	}
	printf(cmd, "Deleted task %s\n", args[0])
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string, e *env) error {
	svc, err := e.service()
	if err != nil {
		return err
	}
	p, err := svc.TaskStatus(cmd.Context(), e.userID(), args[0])
	if err != nil {
		return err
	}
	printf(cmd, "%s\n", formatProgress(*p))
	return nil
}

func formatProgress(p model.Progress) string {
	if p.EstimatedMinutes == nil {
		return fmt.Sprintf("%d min approved (no estimate)", p.ApprovedMinutes)
	}
	s := fmt.Sprintf("%d of %d min approved", p.ApprovedMinutes, *p.EstimatedMinutes)
	if p.Complete() {
		s += ", complete"
	}
	return s
}
