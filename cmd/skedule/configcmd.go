package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/skedule/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the config file, creating it with defaults if missing",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().Bool("path", false, "Print the config file path and exit")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if onlyPath, _ := cmd.Flags().GetBool("path"); onlyPath {
		printf(cmd, "%s\n", configPath)
		return nil
	}

	wrote, err := config.WriteDefault(configPath)
	if err != nil {
		return err
	}
	if wrote {
		printf(cmd, "Created %s with default settings.\n", configPath)
	}

	editor := editorCommand()
	printf(cmd, "Opening %s with %s...\n", configPath, editor[0])

	c := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], configPath)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		printf(cmd, "Editor exited with %v; the file is at %s\n", err, configPath)
	}
	return nil
}

// editorCommand splits $VISUAL or $EDITOR (e.g. "code --wait") into argv.
func editorCommand() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
