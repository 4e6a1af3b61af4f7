package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/logging"
	"ss-anim/internal/runner"
)

var doctorTool = &mcp.Tool{
	Name:        "doctor",
	Title:       "Doctor",
	Description: "Diagnose tool availability, script presence, and workspace health.",
	Annotations: &mcp.ToolAnnotations{
		Title:          "Doctor",
		ReadOnlyHint:   true,
		IdempotentHint: true,
	},
}

// DoctorInput is doctor's argument set.
type DoctorInput struct {
	WorkspaceRoot *string `json:"workspace_root,omitempty" jsonschema:"Workspace root directory"`
}

// DoctorOutput reports every diagnostic doctor collects (spec.md §6).
type DoctorOutput struct {
	ToolPath          string   `json:"tool_path"`
	ToolAvailable     bool     `json:"tool_available"`
	ConvertScriptPath string   `json:"convert_script_path"`
	ConvertScriptOK   bool     `json:"convert_script_ok"`
	CleanupScriptPath string   `json:"cleanup_script_path"`
	CleanupScriptOK   bool     `json:"cleanup_script_ok"`
	FFmpegAvailable   bool     `json:"ffmpeg_available"`
	OptimizerAvailable bool    `json:"gif_optimizer_available"`
	WorkspaceDirsOK   bool     `json:"workspace_dirs_ok"`
	RecentFailures    int      `json:"recent_failures"`
	Findings          []string `json:"findings"`
	ErrorCode         string   `json:"error_code,omitempty"`
	Message           string   `json:"message,omitempty"`
}

func (s *Server) doctorHandler(ctx context.Context, r *mcp.CallToolRequest, input DoctorInput) (result *mcp.CallToolResult, output DoctorOutput, err error) {
	workspaceRoot := stringOrEmpty(input.WorkspaceRoot)

	s.logged(ctx, doctorTool.Name, workspaceRoot, &output.ErrorCode, func() error {
		wc, resolveErr := s.resolveContext(workspaceRoot)
		if resolveErr != nil {
			return resolveErr
		}

		var findings []string

		toolPath, available := runner.CheckTool(s.cfg)
		output.ToolPath = toolPath
		output.ToolAvailable = available
		if !available {
			findings = append(findings, "external tool not found: "+toolPath)
			logging.LogToolStatus(s.logger, "aseprite", false, "", toolPath, fmt.Errorf("not found: %s", toolPath))
		} else {
			logging.LogToolStatus(s.logger, "aseprite", true, "", toolPath, nil)
		}

		output.ConvertScriptPath = filepath.Join(s.cfg.Tools.ScriptDir, "convert.lua")
		if _, statErr := os.Stat(output.ConvertScriptPath); statErr == nil {
			output.ConvertScriptOK = true
		} else {
			findings = append(findings, "convert script missing: "+output.ConvertScriptPath)
		}

		output.CleanupScriptPath = filepath.Join(s.cfg.Tools.ScriptDir, "cleanup.lua")
		if _, statErr := os.Stat(output.CleanupScriptPath); statErr == nil {
			output.CleanupScriptOK = true
		} else {
			findings = append(findings, "cleanup script missing: "+output.CleanupScriptPath)
		}

		if ffmpegPath, lookErr := exec.LookPath(s.cfg.Tools.FFmpegExe); lookErr == nil {
			output.FFmpegAvailable = true
			logging.LogToolStatus(s.logger, "ffmpeg", true, "", ffmpegPath, nil)
		} else {
			findings = append(findings, "optional dependency not found: "+s.cfg.Tools.FFmpegExe)
			logging.LogToolStatus(s.logger, "ffmpeg", false, "", s.cfg.Tools.FFmpegExe, lookErr)
		}

		if optPath, lookErr := exec.LookPath(s.cfg.Tools.GifOptimizerExe); lookErr == nil {
			output.OptimizerAvailable = true
			logging.LogToolStatus(s.logger, "gif_optimizer", true, "", optPath, nil)
		} else {
			findings = append(findings, "optional dependency not found: "+s.cfg.Tools.GifOptimizerExe)
			logging.LogToolStatus(s.logger, "gif_optimizer", false, "", s.cfg.Tools.GifOptimizerExe, lookErr)
		}

		output.WorkspaceDirsOK = true
		for _, d := range []string{wc.Settings.InboxDir, wc.Settings.OutDir, wc.Settings.ProcessedDir, wc.Settings.FailedDir} {
			info, statErr := os.Stat(d)
			if statErr != nil || !info.IsDir() {
				output.WorkspaceDirsOK = false
				findings = append(findings, "workspace directory missing: "+d)
				continue
			}
			if probeErr := probeWritable(d); probeErr != nil {
				output.WorkspaceDirsOK = false
				findings = append(findings, "workspace directory not writable: "+d)
			}
		}

		if pending, size := inboxBacklog(wc.Settings.InboxDir); pending > 0 {
			findings = append(findings, fmt.Sprintf("inbox has %d pending file(s) totaling %s", pending, humanize.Bytes(uint64(size))))
		}

		if s.store != nil {
			if n, countErr := s.store.FailureCount(wc.Settings.WorkspaceRoot, 20); countErr == nil {
				output.RecentFailures = n
				if n >= 10 {
					findings = append(findings, "high recent failure rate in the last 20 jobs")
				}
			}
		}

		output.Findings = findings
		return nil
	})

	return nil, output, nil
}

// inboxBacklog counts files sitting in dir and sums their size, for the
// doctor tool's human-readable pending-work finding. A dir that can't be
// read yields (0, 0) rather than an error: doctor already reports a missing
// or unwritable inbox directory separately.
func inboxBacklog(dir string) (count int, size int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}
	return count, size
}

// probeWritable creates and immediately removes a throwaway file to verify
// a directory accepts writes, since os.Stat alone can't tell.
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".doctor-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
