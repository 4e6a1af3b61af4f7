package dispatch

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/workspace"
)

var watchStartTool = &mcp.Tool{
	Name:        "watch_start",
	Title:       "Start Watcher",
	Description: "Idempotently (re)start the folder watcher and its job queue for a workspace.",
	Annotations: &mcp.ToolAnnotations{
		Title:           "Start Watcher",
		ReadOnlyHint:    false,
		DestructiveHint: ptr(false),
		IdempotentHint:  true,
	},
}

// WatchStartInput is watch_start's argument set (spec.md §6).
type WatchStartInput struct {
	WorkspaceRoot       *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
	InboxDir            *string `json:"inbox_dir,omitempty" jsonschema:"Override the inbox directory to watch"`
	OutDir              *string `json:"out_dir,omitempty" jsonschema:"Override the output directory for watched jobs"`
	ProcessedDir        *string `json:"processed_dir,omitempty" jsonschema:"Override the processed directory"`
	FailedDir           *string `json:"failed_dir,omitempty" jsonschema:"Override the failed directory"`
	Profile             *string `json:"profile,omitempty" jsonschema:"Conversion profile name"`
	AllowExternalPaths  *bool   `json:"allow_external_paths,omitempty" jsonschema:"Allow directory overrides outside the workspace root"`
}

// WatchStartOutput is watch_start's result envelope.
type WatchStartOutput struct {
	Status        string `json:"status"`
	WorkspaceRoot string `json:"workspace_root,omitempty"`
	InboxDir      string `json:"inbox_dir,omitempty"`
	Profile       string `json:"profile,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) watchStartHandler(ctx context.Context, r *mcp.CallToolRequest, input WatchStartInput) (result *mcp.CallToolResult, output WatchStartOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)
	allowExternal := boolOr(input.AllowExternalPaths, false)

	s.logged(ctx, watchStartTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		overrides, overrideErr := resolveWatchOverrides(wc, input, allowExternal)
		if overrideErr != nil {
			return overrideErr
		}

		profileName := stringOrEmpty(input.Profile)
		if err := wc.StartWatch(profileName, overrides); err != nil {
			return fmt.Errorf("start watch: %w", err)
		}

		output.Status = "started"
		output.WorkspaceRoot = wc.Settings.WorkspaceRoot
		output.InboxDir = overrides.InboxDir
		if output.InboxDir == "" {
			output.InboxDir = wc.Settings.InboxDir
		}
		output.Profile = profileName
		return nil
	})

	return nil, output, nil
}

// resolveWatchOverrides resolves each optional directory argument against
// the workspace root, honouring allow_external_paths the same way every
// other path-taking tool does.
func resolveWatchOverrides(wc *workspace.WorkspaceContext, input WatchStartInput, allowExternal bool) (workspace.WatchOverrides, error) {
	var overrides workspace.WatchOverrides
	var err error

	if overrides.InboxDir, err = resolveOptionalDir(input.InboxDir, wc.Settings.WorkspaceRoot, allowExternal, "inbox_dir"); err != nil {
		return overrides, err
	}
	if overrides.OutDir, err = resolveOptionalDir(input.OutDir, wc.Settings.WorkspaceRoot, allowExternal, "out_dir"); err != nil {
		return overrides, err
	}
	if overrides.ProcessedDir, err = resolveOptionalDir(input.ProcessedDir, wc.Settings.WorkspaceRoot, allowExternal, "processed_dir"); err != nil {
		return overrides, err
	}
	if overrides.FailedDir, err = resolveOptionalDir(input.FailedDir, wc.Settings.WorkspaceRoot, allowExternal, "failed_dir"); err != nil {
		return overrides, err
	}
	return overrides, nil
}

func resolveOptionalDir(value *string, workspaceRoot string, allowExternal bool, field string) (string, error) {
	if value == nil || *value == "" {
		return "", nil
	}
	return pathpolicy.Resolve(*value, workspaceRoot, allowExternal, field, "")
}

var watchStopTool = &mcp.Tool{
	Name:        "watch_stop",
	Title:       "Stop Watcher",
	Description: "Stop the folder watcher for a workspace and report how many files it processed.",
	Annotations: &mcp.ToolAnnotations{
		Title:           "Stop Watcher",
		ReadOnlyHint:    false,
		DestructiveHint: ptr(false),
		IdempotentHint:  true,
	},
}

// WatchStopInput is watch_stop's argument set.
type WatchStopInput struct {
	WorkspaceRoot *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
}

// WatchStopOutput is watch_stop's result envelope.
type WatchStopOutput struct {
	Status         string `json:"status"`
	FilesProcessed int    `json:"files_processed"`
	ErrorCode      string `json:"error_code,omitempty"`
	Message        string `json:"message,omitempty"`
}

func (s *Server) watchStopHandler(ctx context.Context, r *mcp.CallToolRequest, input WatchStopInput) (result *mcp.CallToolResult, output WatchStopOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)

	s.logged(ctx, watchStopTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}
		health := wc.WatchHealth()
		wc.StopWatch()
		output.Status = "stopped"
		output.FilesProcessed = health.FilesProcessed
		return nil
	})

	return nil, output, nil
}
