package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"ss-anim/internal/errs"
)

// CleanupRequest is the cleanup_background tool's proxied arguments
// (spec.md §6): the flood-fill outline/fill tolerances and preview-only
// switch the external tool's cleanup script expects verbatim.
type CleanupRequest struct {
	InputPath       string
	OutputPath      string
	OutlineThreshold int
	FillTolerance    int
	PreviewMode      bool
}

// CleanupResult is the outcome of one cleanup_background invocation.
type CleanupResult struct {
	Success       bool
	OutputPath    string
	ErrorCode     errs.Code
	Message       string
	CommandLine   []string
	ExitCode      int
	StartedAt     time.Time
	CompletedAt   time.Time
	DurationMS    int64
}

// RunCleanup drives the external tool's cleanup.lua script — a thin
// parameter-list builder, since the flood-fill/outline algorithm itself is
// the interactive editor's own internals and out of scope here.
func (r *Runner) RunCleanup(ctx context.Context, workspaceRoot string, req CleanupRequest) CleanupResult {
	started := time.Now()
	result := CleanupResult{OutputPath: req.OutputPath, StartedAt: started}

	scriptPath := filepath.Join(r.cfg.Tools.ScriptDir, "cleanup.lua")
	if _, err := os.Stat(scriptPath); err != nil {
		return r.failCleanup(result, errs.CleanupScriptMissing, fmt.Sprintf("cleanup script not found: %s", scriptPath))
	}

	execPath, err := resolveExecutable(r.cfg)
	if err != nil {
		return r.failCleanup(result, errs.AsepriteNotFound, err.Error())
	}

	args := []string{batchFlag}
	add := func(key, value string) { args = append(args, scriptParam(key, value)...) }
	add("input", req.InputPath)
	add("output", req.OutputPath)
	add("outline_threshold", fmt.Sprint(req.OutlineThreshold))
	add("fill_tolerance", fmt.Sprint(req.FillTolerance))
	add("preview_mode", boolStr(req.PreviewMode))
	args = append(args, "--script", scriptPath)

	result.CommandLine = append([]string{execPath}, args...)

	cmd := exec.CommandContext(ctx, execPath, args...)
	cmd.Dir = workspaceRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result.CompletedAt = time.Now()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()

	var exitErr *exec.ExitError
	if runErr != nil {
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.ErrorCode = errs.AsepriteCleanupFail
			result.Message = fmt.Sprintf("%s exited %d: %s", execPath, result.ExitCode, stderr.String())
			return result
		}
		result.ErrorCode = errs.CleanupError
		result.Message = runErr.Error()
		return result
	}

	if _, err := os.Stat(req.OutputPath); err != nil {
		result.ErrorCode = errs.CleanupError
		result.Message = fmt.Sprintf("expected output not found: %s", req.OutputPath)
		return result
	}

	result.Success = true
	return result
}

func (r *Runner) failCleanup(result CleanupResult, code errs.Code, message string) CleanupResult {
	result.Success = false
	result.ErrorCode = code
	result.Message = message
	result.CompletedAt = time.Now()
	result.DurationMS = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
	return result
}
