// Package runner implements the external-tool runner (C7) and its output
// validator (C8): grid auto-detect, parameter assembly, process spawn, log
// capture, and outcome classification into the closed error-code set.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ss-anim/internal/config"
	"ss-anim/internal/detect"
	"ss-anim/internal/errs"
	"ss-anim/internal/job"
	"ss-anim/internal/profile"
)

// QualityMetrics mirrors meta.json's quality sub-document.
type QualityMetrics struct {
	AnchorJitterRMSPx float64 `json:"anchor_jitter_rms_px"`
	BaselineVarPx     float64 `json:"baseline_var_px"`
	BBoxVar           float64 `json:"bbox_var"`
}

// AnchorMeta mirrors meta.json's anchor sub-document.
type AnchorMeta struct {
	Mode            string          `json:"mode"`
	TargetX         int             `json:"target_x"`
	TargetY         int             `json:"target_y"`
	PerFrameOffsets json.RawMessage `json:"per_frame_offsets,omitempty"`
}

// HQPreviewStatus records whether HQ post-processing ran and succeeded.
type HQPreviewStatus struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// ConvertResult is the outcome of one job through the runner (spec.md §3,
// "ConvertResult").
type ConvertResult struct {
	Success   bool
	InputPath string
	JobName   string
	OutDir    string

	AsepritePath   string
	SheetPNGPath   string
	SheetJSONPath  string
	PreviewGIFPath string
	MetaPath       string
	FrameCount     int
	GridRows       int
	GridCols       int
	FPS            int
	Quality        *QualityMetrics
	Anchor         *AnchorMeta

	ErrorCode    errs.Code
	Message      string
	ErrorLogPath string

	StdoutLogPath string
	StderrLogPath string
	CommandLine   []string
	ExitCode      int

	HQPreview *HQPreviewStatus

	StartedAt   time.Time
	CompletedAt time.Time
	DurationMS  int64
}

// HQProcessor is the narrow interface the runner needs from the HQ-preview
// post-processor (C11); kept here rather than imported so the dependency
// points the other way and the two packages don't cycle.
type HQProcessor interface {
	Process(ctx context.Context, sheetPNG, sheetJSON string, fps int) error
}

// Runner drives one external-tool invocation per job.
type Runner struct {
	cfg    *config.Config
	cache  *detect.Cache
	hq     HQProcessor
	logger *slog.Logger
}

// New constructs a Runner. hq may be nil, in which case hq_gif export is
// not attempted and the result's HQPreview status records "no HQ
// post-processor configured".
func New(cfg *config.Config, cache *detect.Cache, hq HQProcessor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, cache: cache, hq: hq, logger: logger}
}

// Run executes one job end to end and always returns a populated
// ConvertResult; a non-nil error indicates a condition the caller (the
// queue) must classify as ASEPRITE_ERROR or UNEXPECTED_EXCEPTION rather
// than one this package already mapped onto the closed error-code set —
// reserved for things like the output directory itself being uncreatable.
func (r *Runner) Run(ctx context.Context, workspaceRoot string, spec job.Spec, prof profile.ConversionProfile) (ConvertResult, error) {
	started := time.Now()
	jobName := spec.NameOrDefault()
	outDir := filepath.Join(spec.OutDir, jobName)

	result := ConvertResult{
		InputPath: spec.InputPath,
		JobName:   jobName,
		OutDir:    outDir,
		StartedAt: started,
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		result.CompletedAt = time.Now()
		result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()
		return result, errs.New(errs.UnexpectedException, "create output dir: "+err.Error())
	}

	if spec.AutoDetectGrid && prof.Grid.Rows == 1 && prof.Grid.Cols == 1 {
		if det, err := r.cache.DetectCached(spec.InputPath); err != nil {
			r.logger.Warn("grid auto-detect failed, continuing with configured grid", "input", spec.InputPath, "error", err)
		} else if det.Detected {
			prof.Grid = det.Grid
		}
	}

	execPath, err := resolveExecutable(r.cfg)
	if err != nil {
		return r.fail(result, outDir, errs.AsepriteNotFound, err.Error(), nil, 0)
	}

	scriptPath := filepath.Join(r.cfg.Tools.ScriptDir, "convert.lua")
	args := buildArgs(spec.InputPath, outDir, jobName, scriptPath, prof)
	result.CommandLine = append([]string{execPath}, args...)

	cmd := exec.CommandContext(ctx, execPath, args...)
	cmd.Dir = workspaceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if stdout.Len() > 0 {
		result.StdoutLogPath = filepath.Join(outDir, "aseprite_stdout.txt")
		_ = os.WriteFile(result.StdoutLogPath, stdout.Bytes(), 0o644)
	}
	if stderr.Len() > 0 {
		result.StderrLogPath = filepath.Join(outDir, "aseprite_stderr.txt")
		_ = os.WriteFile(result.StderrLogPath, stderr.Bytes(), 0o644)
	}

	var exitErr *exec.ExitError
	if runErr != nil {
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			msg := fmt.Sprintf("%s exited %d", execPath, result.ExitCode)
			return r.fail(result, outDir, errs.AsepriteExitNonzero, msg, errorTxtLines("command", strings.Join(result.CommandLine, " "), "exit_code", fmt.Sprint(result.ExitCode)), result.ExitCode)
		}
		return result, errs.New(errs.AsepriteError, fmt.Sprintf("spawn %s: %s", execPath, runErr.Error()))
	}

	metaPath := filepath.Join(outDir, "meta.json")
	metaBytes, readErr := os.ReadFile(metaPath)
	if readErr == nil {
		if meta, parseErr := parseMeta(metaBytes); parseErr == nil && meta.failed() {
			code := errs.LuaReportedFailure
			if meta.ErrorCode != "" {
				code = errs.Code(meta.ErrorCode)
			}
			msg := "Lua conversion failed"
			if meta.ErrorMessage != "" {
				msg = meta.ErrorMessage
			}
			return r.fail(result, outDir, code, msg, errorTxtLines("message", msg), 0)
		}
	}

	missing, jsonErr := validateOutput(outDir, prof.Export, metaPath)
	if len(missing) > 0 || jsonErr != "" {
		lines := []string{}
		if len(missing) > 0 {
			lines = append(lines, "missing: "+strings.Join(missing, ", "))
		}
		if jsonErr != "" {
			lines = append(lines, "meta.json parse error: "+jsonErr)
		}
		return r.fail(result, outDir, errs.OutputValidationFail, "output validation failed", lines, 0)
	}

	result.Success = true
	result.MetaPath = metaPath
	if meta, err := parseMeta(metaBytes); err == nil {
		result.FrameCount = meta.FrameCount
		result.FPS = meta.FPS
		result.GridRows = meta.Grid.Rows
		result.GridCols = meta.Grid.Cols
		result.Quality = &QualityMetrics{
			AnchorJitterRMSPx: meta.Quality.AnchorJitterRMSPx,
			BaselineVarPx:     meta.Quality.BaselineVarPx,
			BBoxVar:           meta.Quality.BBoxVar,
		}
		result.Anchor = &AnchorMeta{
			Mode:            meta.Anchor.Mode,
			TargetX:         meta.Anchor.TargetX,
			TargetY:         meta.Anchor.TargetY,
			PerFrameOffsets: meta.Anchor.PerFrameOffsets,
		}
	}
	if prof.Export.Aseprite {
		result.AsepritePath = filepath.Join(outDir, "anim.aseprite")
	}
	if prof.Export.SheetPNGJSON {
		result.SheetPNGPath = filepath.Join(outDir, "anim_sheet.png")
		result.SheetJSONPath = filepath.Join(outDir, "anim_sheet.json")
	}
	if prof.Export.GIFPreview {
		result.PreviewGIFPath = filepath.Join(outDir, "anim_preview.gif")
	}

	if prof.Export.HQPreview && result.SheetPNGPath != "" && result.SheetJSONPath != "" {
		result.HQPreview = &HQPreviewStatus{Attempted: true}
		if r.hq == nil {
			result.HQPreview.Attempted = false
			result.HQPreview.Error = "no HQ post-processor configured"
		} else if err := r.hq.Process(ctx, result.SheetPNGPath, result.SheetJSONPath, prof.Timing.FPS); err != nil {
			result.HQPreview.Succeeded = false
			result.HQPreview.Error = err.Error()
			r.logger.Warn("HQ preview post-processing failed, keeping default preview", "job", jobName, "error", err)
		} else {
			result.HQPreview.Succeeded = true
		}
	}

	result.CompletedAt = time.Now()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()
	r.writeJobLog(outDir, result)
	return result, nil
}

// fail finalises a failure ConvertResult: writes error.txt in the output
// directory and job.log, and returns (result, nil) since this is a
// classified outcome, not an exception the caller must further classify.
func (r *Runner) fail(result ConvertResult, outDir string, code errs.Code, message string, errTxtLines []string, exitCode int) (ConvertResult, error) {
	result.Success = false
	result.ErrorCode = code
	result.Message = message
	result.ExitCode = exitCode
	result.CompletedAt = time.Now()
	result.DurationMS = result.CompletedAt.Sub(result.StartedAt).Milliseconds()

	errTxtPath := filepath.Join(outDir, "error.txt")
	body := message
	if len(errTxtLines) > 0 {
		body = body + "\n" + strings.Join(errTxtLines, "\n")
	}
	_ = os.WriteFile(errTxtPath, []byte(body+"\n"), 0o644)
	result.ErrorLogPath = errTxtPath

	r.writeJobLog(outDir, result)
	return result, nil
}

func errorTxtLines(kv ...string) []string {
	var lines []string
	for i := 0; i+1 < len(kv); i += 2 {
		lines = append(lines, kv[i]+": "+kv[i+1])
	}
	return lines
}

type jobLogDoc struct {
	Status      string           `json:"status"`
	ErrorCode   string           `json:"error_code,omitempty"`
	Message     string           `json:"message,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	DurationMS  int64            `json:"duration_ms"`
	CommandLine []string         `json:"command_line,omitempty"`
	ExitCode    int              `json:"exit_code"`
	StdoutLog   string           `json:"stdout_log,omitempty"`
	StderrLog   string           `json:"stderr_log,omitempty"`
	HQPreview   *HQPreviewStatus `json:"hq_preview,omitempty"`
}

// writeJobLog writes <out>/job.log as JSON (spec.md §4.7 step 8). Failures
// to write it are logged, not propagated: job.log is a diagnostic artifact,
// and a write failure here must not override the job's real outcome.
func (r *Runner) writeJobLog(outDir string, result ConvertResult) {
	status := "success"
	if !result.Success {
		status = "failure"
	}
	doc := jobLogDoc{
		Status:      status,
		ErrorCode:   string(result.ErrorCode),
		Message:     result.Message,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		DurationMS:  result.DurationMS,
		CommandLine: result.CommandLine,
		ExitCode:    result.ExitCode,
		StdoutLog:   result.StdoutLogPath,
		StderrLog:   result.StderrLogPath,
		HQPreview:   result.HQPreview,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		r.logger.Error("marshal job.log", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(outDir, "job.log"), append(data, '\n'), 0o644); err != nil {
		r.logger.Error("write job.log", "error", err)
	}
}

// CheckTool reports whether the configured external tool can be resolved,
// without running it — the doctor/status tools' availability probe.
func CheckTool(cfg *config.Config) (path string, available bool) {
	path, err := resolveExecutable(cfg)
	return path, err == nil
}

// resolveExecutable finds the configured external-tool executable, trying
// the configured path / search paths, then falling back to PATH lookup
// (grounded on the teacher's ToolManager.CheckTool search-then-PATH idiom).
func resolveExecutable(cfg *config.Config) (string, error) {
	candidate := config.FindExecutable(cfg.Tools.AsepriteExe, cfg.Tools.AsepriteSearchPaths, "aseprite")
	if filepath.IsAbs(candidate) {
		if _, err := os.Stat(candidate); err != nil {
			return "", fmt.Errorf("executable not found: %s", candidate)
		}
		return candidate, nil
	}
	resolved, err := exec.LookPath(candidate)
	if err != nil {
		return "", fmt.Errorf("executable not found on PATH: %s", candidate)
	}
	return resolved, nil
}
