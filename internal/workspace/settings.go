// Package workspace owns the process-wide workspace-path → WorkspaceContext
// map (spec.md §3, "Process-wide state") and the Settings type each context
// is built from.
package workspace

import (
	"os"
	"path/filepath"
	"time"

	"ss-anim/internal/config"
	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/watch"
)

// Settings is the per-workspace configuration spec.md §3 names: absolute
// paths for the workspace root and its four subdirectories, the external
// tool's executable and script-directory paths, and the default profile
// name. Constructed from environment overrides and a workspace override
// (spec.md §4.2).
type Settings struct {
	WorkspaceRoot  string
	InboxDir       string
	OutDir         string
	ProcessedDir   string
	FailedDir      string
	AsepriteExe    string
	ScriptDir      string
	DefaultProfile string

	ValidExtensions []string
	PollInterval    time.Duration
	Stable          watch.StableConfig
	PollStable      watch.StableConfig
}

// ResolveSettings builds Settings for workspaceRoot (falling back to
// SS_ANIM_WORKSPACE, then cfg.Paths.DefaultWorkspace, when empty). The
// external tool path honours ASEPRITE_EXE ahead of the configured
// search-path-then-PATH fallback (spec.md §6, "Environment variables").
func ResolveSettings(cfg *config.Config, workspaceRoot string) (Settings, error) {
	if workspaceRoot == "" {
		workspaceRoot = os.Getenv("SS_ANIM_WORKSPACE")
	}
	if workspaceRoot == "" {
		workspaceRoot = cfg.Paths.DefaultWorkspace
	}

	root, err := pathpolicy.ResolveRoot(workspaceRoot)
	if err != nil {
		return Settings{}, err
	}

	asepriteExe := os.Getenv("ASEPRITE_EXE")
	if asepriteExe == "" {
		asepriteExe = config.FindExecutable(cfg.Tools.AsepriteExe, cfg.Tools.AsepriteSearchPaths, "aseprite")
	}

	stableCfg := watch.StableConfig{
		Interval:   time.Duration(cfg.Watch.StableIntervalMS) * time.Millisecond,
		CheckCount: cfg.Watch.StableCheckCount,
		Timeout:    time.Duration(cfg.Watch.StableTimeoutS) * time.Second,
	}
	pollStableCfg := watch.StableConfig{
		Interval:   time.Duration(cfg.Watch.StableIntervalMS) * time.Millisecond,
		CheckCount: cfg.Watch.StableCheckCount,
		Timeout:    time.Duration(cfg.Watch.PollStableTimeout) * time.Second,
	}
	if stableCfg.Interval <= 0 {
		stableCfg = watch.DefaultStableConfig()
	}
	if pollStableCfg.Interval <= 0 {
		pollStableCfg = watch.DefaultStableConfig()
	}

	return Settings{
		WorkspaceRoot:   root,
		InboxDir:        filepath.Join(root, "inbox"),
		OutDir:          filepath.Join(root, "out"),
		ProcessedDir:    filepath.Join(root, "processed"),
		FailedDir:       filepath.Join(root, "failed"),
		AsepriteExe:     asepriteExe,
		ScriptDir:       cfg.Tools.ScriptDir,
		DefaultProfile:  cfg.Profiles.Default,
		ValidExtensions: cfg.Watch.ValidExtensions,
		PollInterval:    time.Duration(cfg.Watch.PollIntervalMS) * time.Millisecond,
		Stable:          stableCfg,
		PollStable:      pollStableCfg,
	}, nil
}
