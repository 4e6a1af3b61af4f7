// Package cli implements ss-anim's command-line surface: a thin layer
// over the same workspace/queue/runner machinery the MCP dispatcher
// drives, for scripting and operations work that doesn't want to speak
// MCP over stdio.
package cli

import (
	"fmt"
	"log/slog"

	"ss-anim/internal/config"
	"ss-anim/internal/fsutil"
	"ss-anim/internal/runner"
	"ss-anim/internal/storage"
	"ss-anim/internal/workspace"
)

// Root wires CLI commands to the shared config, logger, history store, and
// HQ-preview post-processor.
type Root struct {
	cfg   *config.Config
	log   *slog.Logger
	store *storage.Store
	hq    runner.HQProcessor
}

// NewRoot constructs the CLI root. hq may be nil when HQ-preview
// post-processing is not wired (spec.md §4.11's export.hq_preview is then
// never attempted: each job's HQ-preview status records "no HQ
// post-processor configured" and the job's own outcome is unaffected).
func NewRoot(cfg *config.Config, logger *slog.Logger, store *storage.Store, hq runner.HQProcessor) *Root {
	if logger == nil {
		logger = slog.Default()
	}
	return &Root{cfg: cfg, log: logger, store: store, hq: hq}
}

func (r *Root) hqProcessor() runner.HQProcessor {
	return r.hq
}

// listInbox lists the oldest files in a workspace's inbox, up to limit
// (no stable-write check is made), mirroring convert_inbox's selection (spec.md §6).
func listInbox(wc *workspace.WorkspaceContext, limit int) ([]string, error) {
	entries, err := fsutil.ListDir(wc.Settings.InboxDir, wc.Settings.ValidExtensions)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	inputs := make([]string, len(entries))
	for i, e := range entries {
		inputs[i] = e.Path
	}
	return inputs, nil
}
