package cli

import (
	"github.com/spf13/cobra"

	"ss-anim/internal/runner"
)

// newConfigCmd builds the `config show`/`config validate` subcommands,
// adapted from the teacher's nested config command shape.
func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or validate configuration settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			cmd.Printf("Default Workspace: %s\n", cfg.Paths.DefaultWorkspace)
			cmd.Printf("Database Path: %s\n", cfg.Paths.DatabasePath)
			cmd.Printf("Aseprite Executable: %s\n", cfg.Tools.AsepriteExe)
			cmd.Printf("Script Directory: %s\n", cfg.Tools.ScriptDir)
			cmd.Printf("FFmpeg Executable: %s\n", cfg.Tools.FFmpegExe)
			cmd.Printf("GIF Optimizer Executable: %s\n", cfg.Tools.GifOptimizerExe)
			cmd.Printf("Default Profile: %s\n", cfg.Profiles.Default)
			cmd.Printf("Log Level: %s\n", cfg.Logging.Level)
			cmd.Printf("Log Format: %s\n", cfg.Logging.Format)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, available := runner.CheckTool(root.cfg)
			if available {
				cmd.Println("configuration valid, external tool: ok")
			} else {
				cmd.Println("configuration valid, external tool: missing")
			}
			return nil
		},
	}

	cmd.AddCommand(showCmd, validateCmd)
	return cmd
}
