package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runProfileShow),
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update display name or timezone",
	Args:  cobra.NoArgs,
	RunE:  withEnv(runProfileSet),
}

func init() {
	profileSetCmd.Flags().String("name", "", "Display name")
	profileSetCmd.Flags().String("timezone", "", `IANA timezone, e.g. "Europe/Stockholm"`)

	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileShow(cmd *cobra.Command, args []string, e *env) error {
	p, err := e.db.GetProfile(cmd.Context(), e.userID())
	if err != nil {
		return err
	}
	printf(cmd, "user:     %s\n", p.UserID)
	printf(cmd, "name:     %s\n", p.DisplayName)
	printf(cmd, "timezone: %s\n", p.Timezone)
	if !p.UpdatedAt.IsZero() {
		printf(cmd, "updated:  %s\n", p.UpdatedAt.In(p.Location()).Format(time.DateTime))
	}
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string, e *env) error {
	fs := cmd.Flags()
	if !fs.Changed("name") && !fs.Changed("timezone") {
		return fmt.Errorf("nothing to change; pass --name or --timezone")
	}

	p, err := e.db.GetProfile(cmd.Context(), e.userID())
	if err != nil {
		return err
	}
	if fs.Changed("name") {
		p.DisplayName, _ = fs.GetString("name")
	}
	if fs.Changed("timezone") {
		p.Timezone, _ = fs.GetString("timezone")
	}
	p.UpdatedAt = e.now()
	if err := e.db.UpsertProfile(cmd.Context(), p); err != nil {
		return err
	}

	// Keep the config file in step so a fresh database is seeded the same way.
	if err := config.SaveUser(config.UserConfig{DisplayName: p.DisplayName, Timezone: p.Timezone}); err != nil {
		e.logger.Warn("failed to save profile to config", "error", err)
	}
	printf(cmd, "Profile updated.\n")
	return nil
}
