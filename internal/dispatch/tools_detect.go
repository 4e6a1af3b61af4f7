package dispatch

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/profile"
)

var dryRunDetectTool = &mcp.Tool{
	Name:        "dry_run_detect",
	Title:       "Dry-Run Grid Detection",
	Description: "Detect a sprite sheet's grid layout without converting it.",
	Annotations: &mcp.ToolAnnotations{
		Title:          "Dry-Run Grid Detection",
		ReadOnlyHint:   true,
		IdempotentHint: true,
	},
}

// DryRunDetectInput is dry_run_detect's argument set (spec.md §6).
type DryRunDetectInput struct {
	InputPath          string  `json:"input_path" jsonschema:"required,Path to the sprite sheet file to inspect"`
	WorkspaceRoot      *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
	AllowExternalPaths *bool   `json:"allow_external_paths,omitempty" jsonschema:"Allow input_path outside the workspace root"`
}

// DryRunDetectOutput mirrors detect.Result for JSON output.
type DryRunDetectOutput struct {
	Detected    bool          `json:"detected"`
	Grid        profile.Grid  `json:"grid"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	FrameWidth  int           `json:"frame_width"`
	FrameHeight int           `json:"frame_height"`
	Confidence  float64       `json:"confidence"`
	Method      string        `json:"method,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Message     string        `json:"message,omitempty"`
}

func (s *Server) dryRunDetectHandler(ctx context.Context, r *mcp.CallToolRequest, input DryRunDetectInput) (result *mcp.CallToolResult, output DryRunDetectOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)
	allowExternal := boolOr(input.AllowExternalPaths, false)

	s.logged(ctx, dryRunDetectTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		resolvedInput, resolveErr := pathpolicy.Resolve(input.InputPath, wc.Settings.WorkspaceRoot, allowExternal, "input_path", "")
		if resolveErr != nil {
			return resolveErr
		}

		det, detErr := wc.Cache.DetectCached(resolvedInput)
		if detErr != nil {
			return detErr
		}

		output = DryRunDetectOutput{
			Detected:    det.Detected,
			Grid:        det.Grid,
			Width:       det.Width,
			Height:      det.Height,
			FrameWidth:  det.FrameWidth,
			FrameHeight: det.FrameHeight,
			Confidence:  det.Confidence,
			Method:      det.Method,
			Notes:       det.Notes,
		}
		return nil
	})

	return nil, output, nil
}
