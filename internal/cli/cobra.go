package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ss-anim/internal/detect"
	"ss-anim/internal/dispatch"
	"ss-anim/internal/job"
	"ss-anim/internal/queue"
	"ss-anim/internal/runner"
	"ss-anim/internal/server"
	"ss-anim/internal/workspace"
)

// NewRootCmd creates the root Cobra command.
func NewRootCmd(root *Root) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ss-anim",
		Short: "ss-anim converts spritesheets into game-ready animations",
		Long: `ss-anim drives an external sprite-editing tool to slice spritesheets into
frame grids, re-export them as packed sheets and animation strips, and
optionally watch a folder for new sheets to convert automatically.`,
	}

	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newConvertCmd(root))
	rootCmd.AddCommand(newConvertInboxCmd(root))
	rootCmd.AddCommand(newDoctorCmd(root))
	rootCmd.AddCommand(newDetectCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))

	return rootCmd
}

func newServeCmd(root *Root) *cobra.Command {
	var (
		addr          string
		workspaceRoot string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP dispatcher over stdio plus an HTTP health/status companion",
		Long: `Start ss-anim in long-running server mode: the MCP tool dispatcher reads
requests from stdin/stdout, while a small HTTP companion exposes
/healthz and /status for process supervisors and operators.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)

			if workspaceRoot == "" {
				workspaceRoot = root.cfg.Paths.DefaultWorkspace
			}

			httpSrv := server.NewServer(addr, root.cfg, workspaceRoot, root.store, root.log)
			mcpSrv := dispatch.New(root.cfg, root.store, root.hqProcessor(), root.log)

			errCh := make(chan error, 2)
			go func() {
				root.log.Info("starting http companion", "addr", addr, "workspace_root", workspaceRoot)
				errCh <- httpSrv.Start(ctx)
			}()
			go func() {
				root.log.Info("starting mcp dispatcher over stdio")
				errCh <- mcpSrv.Start(ctx)
			}()

			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP companion address (host:port)")
	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "workspace root (default: configured default workspace)")

	return cmd
}

func newConvertCmd(root *Root) *cobra.Command {
	var (
		workspaceRoot string
		outDir        string
		profile       string
		gridRows      int
		gridCols      int
		fps           int
	)

	cmd := &cobra.Command{
		Use:   "convert <input_path>",
		Short: "Synchronously convert a single sprite sheet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wc, err := workspace.GetOrCreate(root.cfg, workspaceRoot, root.hqProcessor(), root.store, root.log)
			if err != nil {
				return err
			}

			resolvedOut := outDir
			if resolvedOut == "" {
				resolvedOut = wc.Settings.OutDir
			}
			resolvedProfile := profile
			if resolvedProfile == "" {
				resolvedProfile = wc.Settings.DefaultProfile
			}

			results := queue.ProcessBatch(cmdContext(cmd), wc.Queue, []string{args[0]}, resolvedOut, resolvedProfile, toolOverrides(gridRows, gridCols, fps), true, queue.BatchOverrides{})
			if len(results) != 1 {
				return fmt.Errorf("expected one conversion result, got %d", len(results))
			}
			printResult(cmd, results[0])
			if !results[0].Success {
				return fmt.Errorf("conversion failed: %s", results[0].Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "workspace root (default: configured default workspace)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "override the output directory")
	cmd.Flags().StringVar(&profile, "profile", "", "conversion profile name")
	cmd.Flags().IntVar(&gridRows, "grid-rows", 0, "override grid row count (0 = auto-detect)")
	cmd.Flags().IntVar(&gridCols, "grid-cols", 0, "override grid column count (0 = auto-detect)")
	cmd.Flags().IntVar(&fps, "fps", 0, "override playback frames per second (0 = profile default)")

	return cmd
}

func newConvertInboxCmd(root *Root) *cobra.Command {
	var (
		workspaceRoot string
		limit         int
		profile       string
	)

	cmd := &cobra.Command{
		Use:   "convert-inbox",
		Short: "Batch-process the oldest files in a workspace's inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wc, err := workspace.GetOrCreate(root.cfg, workspaceRoot, root.hqProcessor(), root.store, root.log)
			if err != nil {
				return err
			}

			entries, err := listInbox(wc, limit)
			if err != nil {
				return err
			}

			resolvedProfile := profile
			if resolvedProfile == "" {
				resolvedProfile = wc.Settings.DefaultProfile
			}

			results := queue.ProcessBatch(cmdContext(cmd), wc.Queue, entries, wc.Settings.OutDir, resolvedProfile, job.ToolOverrides{}, true, queue.BatchOverrides{})
			for _, r := range results {
				printResult(cmd, r)
			}
			cmd.Printf("processed %d file(s)\n", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&workspaceRoot, "workspace", "", "workspace root (default: configured default workspace)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of files to process")
	cmd.Flags().StringVar(&profile, "profile", "", "conversion profile name")

	return cmd
}

func newDoctorCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool availability and workspace directory health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toolPath, available := runner.CheckTool(root.cfg)
			if available {
				cmd.Printf("external tool: ok (%s)\n", toolPath)
			} else {
				cmd.Printf("external tool: missing (%s)\n", toolPath)
			}
			return nil
		},
	}
	return cmd
}

func newDetectCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <sheet_path>",
		Short: "Detect a sprite sheet's grid layout without converting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := detect.NewCache()
			result, err := cache.DetectCached(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("rows=%d cols=%d frame=%dx%d confidence=%.2f\n",
				result.Grid.Rows, result.Grid.Cols, result.FrameWidth, result.FrameHeight, result.Confidence)
			return nil
		},
	}
	return cmd
}

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("ss-anim v0.1.0")
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func toolOverrides(gridRows, gridCols, fps int) job.ToolOverrides {
	tov := job.ToolOverrides{}
	if gridRows > 0 {
		tov.GridRows = &gridRows
	}
	if gridCols > 0 {
		tov.GridCols = &gridCols
	}
	if fps > 0 {
		tov.FPS = &fps
	}
	return tov
}

func printResult(cmd *cobra.Command, r runner.ConvertResult) {
	status := "ok"
	if !r.Success {
		status = "FAILED " + string(r.ErrorCode)
	}
	cmd.Printf("%s: %s (%dms)\n", r.InputPath, status, r.DurationMS)
}
