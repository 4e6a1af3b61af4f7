package dispatch

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/queue"
	"ss-anim/internal/runner"
	"ss-anim/internal/watch"
)

var statusTool = &mcp.Tool{
	Name:        "status",
	Title:       "Workspace Status",
	Description: "Report tool availability, workspace paths, queue stats, and watcher health.",
	Annotations: &mcp.ToolAnnotations{
		Title:          "Workspace Status",
		ReadOnlyHint:   true,
		IdempotentHint: true,
	},
}

// StatusInput is status's argument set.
type StatusInput struct {
	WorkspaceRoot *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
}

// StatusOutput is status's result envelope.
type StatusOutput struct {
	WorkspaceRoot  string       `json:"workspace_root"`
	InboxDir       string       `json:"inbox_dir"`
	OutDir         string       `json:"out_dir"`
	ProcessedDir   string       `json:"processed_dir"`
	FailedDir      string       `json:"failed_dir"`
	DefaultProfile string       `json:"default_profile"`
	ToolPath       string       `json:"tool_path"`
	ToolAvailable  bool         `json:"tool_available"`
	Queue          queue.Stats  `json:"queue"`
	Watcher        watch.Health `json:"watcher"`
	ErrorCode      string       `json:"error_code,omitempty"`
	Message        string       `json:"message,omitempty"`
}

func (s *Server) statusHandler(ctx context.Context, r *mcp.CallToolRequest, input StatusInput) (result *mcp.CallToolResult, output StatusOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)

	s.logged(ctx, statusTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		toolPath, available := runner.CheckTool(s.cfg)

		output.WorkspaceRoot = wc.Settings.WorkspaceRoot
		output.InboxDir = wc.Settings.InboxDir
		output.OutDir = wc.Settings.OutDir
		output.ProcessedDir = wc.Settings.ProcessedDir
		output.FailedDir = wc.Settings.FailedDir
		output.DefaultProfile = wc.Settings.DefaultProfile
		output.ToolPath = toolPath
		output.ToolAvailable = available
		output.Queue = wc.Queue.StatsSnapshot()
		output.Watcher = wc.WatchHealth()
		return nil
	})

	return nil, output, nil
}
