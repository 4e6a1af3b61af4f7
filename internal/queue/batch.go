package queue

import (
	"context"
	"time"

	"ss-anim/internal/errs"
	"ss-anim/internal/job"
	"ss-anim/internal/runner"
)

// BatchOverrides lets a convert_inbox tool call point a
// batch's dispositions at directories other than the queue's configured
// defaults (spec.md §6, `processed_dir`/`failed_dir` arguments).
type BatchOverrides struct {
	ProcessedDir string
	FailedDir    string
}

// ProcessBatch is the synchronous batch-mode entry point used by
// convert_inbox (spec.md §4.9 "Batch mode"): it processes inputs in order
// without touching q's async channel, applying a per-file sidecar override
// but the same tool-call overrides (profileName, tov) to every file — the
// asymmetry spec.md's Open Questions preserve deliberately.
func ProcessBatch(ctx context.Context, q *Queue, inputs []string, outDir, profileName string, tov job.ToolOverrides, autoDetectGrid bool, overrides BatchOverrides) []runner.ConvertResult {
	results := make([]runner.ConvertResult, 0, len(inputs))

	for _, input := range inputs {
		failSpec := func() job.Spec {
			return job.Spec{InputPath: input, ProcessedDir: overrides.ProcessedDir, FailedDir: overrides.FailedDir}
		}

		sidecar, err := job.LoadSidecarOverride(input)
		if err != nil {
			results = append(results, q.disposition(Item{Spec: failSpec()}, resolutionFailure(input, err)))
			continue
		}

		effectiveAutoDetect := autoDetectGrid
		if sidecar != nil && sidecar.AutoDetectGrid != nil {
			effectiveAutoDetect = *sidecar.AutoDetectGrid
		}

		prof, err := job.Resolve(profileName, sidecar, tov)
		if err != nil {
			results = append(results, q.disposition(Item{Spec: failSpec()}, resolutionFailure(input, err)))
			continue
		}
		spec := job.Spec{
			InputPath:      input,
			OutDir:         outDir,
			ProcessedDir:   overrides.ProcessedDir,
			FailedDir:      overrides.FailedDir,
			ProfileName:    profileName,
			AutoDetectGrid: effectiveAutoDetect,
		}
		item := Item{Spec: spec, Profile: prof, EnqueuedAt: time.Now()}
		results = append(results, q.process(ctx, item))
	}

	return results
}

// resolutionFailure builds the terminal ConvertResult for a job that never
// reaches the external tool: either its sidecar failed to load, or its
// resolved profile failed validation (spec.md §3's casing/range rules).
func resolutionFailure(input string, err error) runner.ConvertResult {
	now := time.Now()
	result := runner.ConvertResult{
		InputPath:   input,
		JobName:     (job.Spec{InputPath: input}).NameOrDefault(),
		Success:     false,
		StartedAt:   now,
		CompletedAt: now,
	}
	if jobErr, ok := err.(*errs.JobError); ok {
		result.ErrorCode = jobErr.Code
		result.Message = jobErr.Message
	} else {
		result.ErrorCode = errs.JobOverrideInvalid
		result.Message = err.Error()
	}
	return result
}
