package dispatch

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/fsutil"
	"ss-anim/internal/job"
	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/queue"
	"ss-anim/internal/runner"
)

const defaultConvertInboxLimit = 50

var convertInboxTool = &mcp.Tool{
	Name:        "convert_inbox",
	Title:       "Convert Inbox",
	Description: "Batch-process the oldest files in a workspace's inbox, up to a limit.",
	Annotations: &mcp.ToolAnnotations{
		Title:           "Convert Inbox",
		ReadOnlyHint:    false,
		DestructiveHint: ptr(false),
	},
}

// ConvertInboxInput is convert_inbox's argument set (spec.md §6).
type ConvertInboxInput struct {
	WorkspaceRoot      *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
	Limit              *int    `json:"limit,omitempty" jsonschema:"Maximum number of files to process, default 50"`
	Profile            *string `json:"profile,omitempty" jsonschema:"Conversion profile name"`
	GridRows           *int    `json:"grid_rows,omitempty" jsonschema:"Override grid row count"`
	GridCols           *int    `json:"grid_cols,omitempty" jsonschema:"Override grid column count"`
	FPS                *int    `json:"fps,omitempty" jsonschema:"Override playback frames per second"`
	ProcessedDir       *string `json:"processed_dir,omitempty" jsonschema:"Override the processed directory"`
	FailedDir          *string `json:"failed_dir,omitempty" jsonschema:"Override the failed directory"`
	AllowExternalPaths *bool   `json:"allow_external_paths,omitempty" jsonschema:"Allow directory overrides outside the workspace root"`
}

// JobResultOut is one ConvertResult flattened for JSON output.
type JobResultOut struct {
	InputPath  string `json:"input_path"`
	JobName    string `json:"job_name"`
	Success    bool   `json:"success"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
	OutDir     string `json:"out_dir,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func flattenResult(r runner.ConvertResult) JobResultOut {
	return JobResultOut{
		InputPath:  r.InputPath,
		JobName:    r.JobName,
		Success:    r.Success,
		ErrorCode:  string(r.ErrorCode),
		Message:    r.Message,
		OutDir:     r.OutDir,
		DurationMS: r.DurationMS,
	}
}

// ConvertInboxOutput is convert_inbox's result envelope.
type ConvertInboxOutput struct {
	Processed int            `json:"processed"`
	Results   []JobResultOut `json:"results"`
	ErrorCode string         `json:"error_code,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func (s *Server) convertInboxHandler(ctx context.Context, r *mcp.CallToolRequest, input ConvertInboxInput) (result *mcp.CallToolResult, output ConvertInboxOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)
	allowExternal := boolOr(input.AllowExternalPaths, false)

	s.logged(ctx, convertInboxTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		limit := intOr(input.Limit, defaultConvertInboxLimit)
		entries, listErr := fsutil.ListDir(wc.Settings.InboxDir, wc.Settings.ValidExtensions)
		if listErr != nil {
			return fmt.Errorf("list inbox: %w", listErr)
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}
		inputs := make([]string, len(entries))
		for i, e := range entries {
			inputs[i] = e.Path
		}

		processedDir, overrideErr := resolveOptionalDir(input.ProcessedDir, wc.Settings.WorkspaceRoot, allowExternal, "processed_dir")
		if overrideErr != nil {
			return overrideErr
		}
		failedDir, overrideErr := resolveOptionalDir(input.FailedDir, wc.Settings.WorkspaceRoot, allowExternal, "failed_dir")
		if overrideErr != nil {
			return overrideErr
		}

		profileName := stringOrEmpty(input.Profile)
		if profileName == "" {
			profileName = wc.Settings.DefaultProfile
		}
		tov := job.ToolOverrides{GridRows: input.GridRows, GridCols: input.GridCols, FPS: input.FPS}

		results := queue.ProcessBatch(ctx, wc.Queue, inputs, wc.Settings.OutDir, profileName, tov, true, queue.BatchOverrides{ProcessedDir: processedDir, FailedDir: failedDir})

		output.Processed = len(results)
		output.Results = make([]JobResultOut, len(results))
		for i, res := range results {
			output.Results[i] = flattenResult(res)
		}
		return nil
	})

	return nil, output, nil
}

var convertFileTool = &mcp.Tool{
	Name:        "convert_file",
	Title:       "Convert File",
	Description: "Synchronously convert a single sprite sheet file.",
	Annotations: &mcp.ToolAnnotations{
		Title:           "Convert File",
		ReadOnlyHint:    false,
		DestructiveHint: ptr(false),
	},
}

// ConvertFileInput is convert_file's argument set (spec.md §6).
type ConvertFileInput struct {
	InputPath          string  `json:"input_path" jsonschema:"required,Path to the sprite sheet file to convert"`
	WorkspaceRoot      *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
	OutDir             *string `json:"out_dir,omitempty" jsonschema:"Override the output directory"`
	Profile            *string `json:"profile,omitempty" jsonschema:"Conversion profile name"`
	GridRows           *int    `json:"grid_rows,omitempty" jsonschema:"Override grid row count"`
	GridCols           *int    `json:"grid_cols,omitempty" jsonschema:"Override grid column count"`
	FPS                *int    `json:"fps,omitempty" jsonschema:"Override playback frames per second"`
	AllowExternalPaths *bool   `json:"allow_external_paths,omitempty" jsonschema:"Allow input_path/out_dir outside the workspace root"`
}

// ConvertFileOutput is convert_file's result envelope.
type ConvertFileOutput struct {
	Result    JobResultOut `json:"result"`
	ErrorCode string       `json:"error_code,omitempty"`
	Message   string       `json:"message,omitempty"`
}

func (s *Server) convertFileHandler(ctx context.Context, r *mcp.CallToolRequest, input ConvertFileInput) (result *mcp.CallToolResult, output ConvertFileOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)
	allowExternal := boolOr(input.AllowExternalPaths, false)

	s.logged(ctx, convertFileTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		resolvedInput, resolveErr := pathpolicy.Resolve(input.InputPath, wc.Settings.WorkspaceRoot, allowExternal, "input_path", "")
		if resolveErr != nil {
			return resolveErr
		}

		outDir, overrideErr := resolveOptionalDir(input.OutDir, wc.Settings.WorkspaceRoot, allowExternal, "out_dir")
		if overrideErr != nil {
			return overrideErr
		}
		if outDir == "" {
			outDir = wc.Settings.OutDir
		}

		profileName := stringOrEmpty(input.Profile)
		if profileName == "" {
			profileName = wc.Settings.DefaultProfile
		}
		tov := job.ToolOverrides{GridRows: input.GridRows, GridCols: input.GridCols, FPS: input.FPS}

		results := queue.ProcessBatch(ctx, wc.Queue, []string{resolvedInput}, outDir, profileName, tov, true, queue.BatchOverrides{})
		if len(results) != 1 {
			return fmt.Errorf("expected exactly one conversion result, got %d", len(results))
		}

		output.Result = flattenResult(results[0])
		if !results[0].Success {
			output.ErrorCode = string(results[0].ErrorCode)
			output.Message = results[0].Message
		}
		return nil
	})

	return nil, output, nil
}
