package dispatch

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/config"
	"ss-anim/internal/detect"
	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/runner"
)

const (
	defaultOutlineThreshold = 30
	defaultFillTolerance    = 50
)

var cleanupBackgroundTool = &mcp.Tool{
	Name:        "cleanup_background",
	Title:       "Cleanup Background",
	Description: "Proxy a flood-fill background cleanup pass through the external tool.",
	Annotations: &mcp.ToolAnnotations{
		Title:           "Cleanup Background",
		ReadOnlyHint:    false,
		DestructiveHint: ptr(false),
	},
}

// CleanupBackgroundInput is cleanup_background's argument set (spec.md §6).
type CleanupBackgroundInput struct {
	InputPath          string  `json:"input_path" jsonschema:"required,Path to the sprite sheet file to clean up"`
	WorkspaceRoot      *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
	OutputPath         *string `json:"output_path,omitempty" jsonschema:"Destination path for the cleaned-up file"`
	OutlineThreshold   *int    `json:"outline_threshold,omitempty" jsonschema:"Outline detection threshold, default 30"`
	FillTolerance      *int    `json:"fill_tolerance,omitempty" jsonschema:"Flood-fill colour tolerance, default 50"`
	PreviewMode        *bool   `json:"preview_mode,omitempty" jsonschema:"Preview only, do not write the output file, default false"`
	AllowExternalPaths *bool   `json:"allow_external_paths,omitempty" jsonschema:"Allow input_path/output_path outside the workspace root"`
}

// CleanupBackgroundOutput is cleanup_background's result envelope.
type CleanupBackgroundOutput struct {
	Success     bool   `json:"success"`
	OutputPath  string `json:"output_path,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	ErrorCode   string `json:"error_code,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (s *Server) cleanupBackgroundHandler(ctx context.Context, r *mcp.CallToolRequest, input CleanupBackgroundInput) (result *mcp.CallToolResult, output CleanupBackgroundOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)
	allowExternal := boolOr(input.AllowExternalPaths, false)

	s.logged(ctx, cleanupBackgroundTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		resolvedInput, resolveErr := pathpolicy.Resolve(input.InputPath, wc.Settings.WorkspaceRoot, allowExternal, "input_path", "")
		if resolveErr != nil {
			return resolveErr
		}

		defaultOutput := defaultCleanupOutputPath(resolvedInput)
		outputPath, resolveErr := pathpolicy.Resolve(stringOrEmpty(input.OutputPath), wc.Settings.WorkspaceRoot, allowExternal, "output_path", defaultOutput)
		if resolveErr != nil {
			return resolveErr
		}

		req := runner.CleanupRequest{
			InputPath:        resolvedInput,
			OutputPath:       outputPath,
			OutlineThreshold: intOr(input.OutlineThreshold, defaultOutlineThreshold),
			FillTolerance:    intOr(input.FillTolerance, defaultFillTolerance),
			PreviewMode:      boolOr(input.PreviewMode, false),
		}

		r := cleanupRunner(s.cfg, s.logger)
		res := r.RunCleanup(ctx, wc.Settings.WorkspaceRoot, req)

		output.Success = res.Success
		output.OutputPath = res.OutputPath
		output.DurationMS = res.DurationMS
		if !res.Success {
			output.ErrorCode = string(res.ErrorCode)
			output.Message = res.Message
		}
		return nil
	})

	return nil, output, nil
}

// cleanupRunner builds a bare Runner for the cleanup proxy path; it needs
// none of the grid-detection cache or HQ post-processor a conversion job
// uses.
func cleanupRunner(cfg *config.Config, logger *slog.Logger) *runner.Runner {
	return runner.New(cfg, detect.NewCache(), nil, logger)
}

func defaultCleanupOutputPath(inputPath string) string {
	ext := extOf(inputPath)
	stem := inputPath[:len(inputPath)-len(ext)]
	return stem + "_cleaned" + ext
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
