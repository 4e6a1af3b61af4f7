package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ss-anim/internal/config"
	"ss-anim/internal/detect"
	"ss-anim/internal/errs"
	"ss-anim/internal/job"
	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/queue"
	"ss-anim/internal/runner"
	"ss-anim/internal/storage"
	"ss-anim/internal/watch"
)

// WorkspaceContext owns everything tied to one workspace root: its
// resolved Settings, its single-worker queue, and (once watch_start has
// been called) a folder watcher. Spec.md §3: "Process-wide state: a
// mapping from resolved workspace path to a WorkspaceContext... Contexts
// are lazily created on first use and never destroyed within a process."
type WorkspaceContext struct {
	Settings Settings
	Queue    *queue.Queue
	Cache    *detect.Cache
	Store    *storage.Store

	mu      sync.Mutex
	watcher *watch.Watcher
}

// recordToLedger builds a queue.CompletionCallback that writes every
// terminal disposition to store; a nil store (no history ledger
// configured) makes this a no-op, matching Store's own nil-receiver
// tolerance.
func recordToLedger(store *storage.Store, workspaceRoot string, logger *slog.Logger) queue.CompletionCallback {
	return func(result runner.ConvertResult) {
		err := store.RecordJob(storage.JobRecord{
			JobName:       result.JobName,
			WorkspaceRoot: workspaceRoot,
			InputPath:     result.InputPath,
			Success:       result.Success,
			ErrorCode:     string(result.ErrorCode),
			Message:       result.Message,
			Quality:       result.Quality,
			StartedAt:     result.StartedAt,
			CompletedAt:   result.CompletedAt,
			DurationMS:    result.DurationMS,
		})
		if err != nil {
			logger.Error("record job to history ledger", "job", result.JobName, "error", err)
		}
	}
}

var (
	registryMu sync.Mutex
	registry   = map[string]*WorkspaceContext{}
)

// Get returns the existing context for workspaceRoot, or nil if none has
// been created yet, after canonicalizing workspaceRoot the same way
// GetOrCreate does.
func Get(workspaceRoot string) (*WorkspaceContext, error) {
	key, err := pathpolicy.ResolveRoot(workspaceRoot)
	if err != nil {
		return nil, err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[key], nil
}

// GetOrCreate returns the cached WorkspaceContext for workspaceRoot,
// creating and starting one (ensuring the four subdirectories exist, and
// starting its queue worker) on first lookup.
func GetOrCreate(cfg *config.Config, workspaceRoot string, hq runner.HQProcessor, store *storage.Store, logger *slog.Logger) (*WorkspaceContext, error) {
	settings, err := ResolveSettings(cfg, workspaceRoot)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[settings.WorkspaceRoot]; ok {
		return existing, nil
	}

	if err := pathpolicy.EnsureWorkspaceDirs(settings.WorkspaceRoot); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	cache := detect.NewCache()

	runnerCfg := &config.Config{}
	*runnerCfg = *cfg
	runnerCfg.Tools.AsepriteExe = settings.AsepriteExe
	runnerCfg.Tools.ScriptDir = settings.ScriptDir
	r := runner.New(runnerCfg, cache, hq, logger)

	q := queue.New(queue.Config{
		ProcessedDir:  settings.ProcessedDir,
		FailedDir:     settings.FailedDir,
		Runner:        r,
		WorkspaceRoot: settings.WorkspaceRoot,
		Logger:        logger,
		OnComplete:    recordToLedger(store, settings.WorkspaceRoot, logger),
	})
	q.Start(context.Background())

	wc := &WorkspaceContext{Settings: settings, Queue: q, Cache: cache, Store: store}
	registry[settings.WorkspaceRoot] = wc
	return wc, nil
}

// WatchOverrides lets a watch_start call (spec.md §6) point the watcher
// and its downstream jobs at directories other than the context's
// defaults, without disturbing Settings itself.
type WatchOverrides struct {
	InboxDir     string
	OutDir       string
	ProcessedDir string
	FailedDir    string
}

// StartWatch starts (or restarts, if already running) this context's
// folder watcher over its inbox directory, enqueuing every newly-stable
// file as a job using profileName as the default profile (spec.md §4.10,
// watch_start).
func (wc *WorkspaceContext) StartWatch(profileName string, overrides WatchOverrides) error {
	wc.mu.Lock()
	defer wc.mu.Unlock()

	if profileName == "" {
		profileName = wc.Settings.DefaultProfile
	}

	inboxDir := overrides.InboxDir
	if inboxDir == "" {
		inboxDir = wc.Settings.InboxDir
	}

	if wc.watcher != nil {
		wc.watcher.Stop()
	}

	w := watch.New(watch.Config{
		Dir:             inboxDir,
		ValidExtensions: wc.Settings.ValidExtensions,
		PollInterval:    wc.Settings.PollInterval,
		Stable:          wc.Settings.Stable,
		PollStable:      wc.Settings.PollStable,
	}, func(path string) {
		wc.enqueueWatched(path, profileName, overrides)
	})

	if err := w.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	wc.watcher = w
	return nil
}

// StopWatch stops the folder watcher if running; it is a no-op otherwise.
func (wc *WorkspaceContext) StopWatch() {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.watcher != nil {
		wc.watcher.Stop()
		wc.watcher = nil
	}
}

// WatchHealth reports the watcher's status snapshot, or a zero-value,
// not-running snapshot if no watcher has been started.
func (wc *WorkspaceContext) WatchHealth() watch.Health {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.watcher == nil {
		return watch.Health{}
	}
	return wc.watcher.HealthSnapshot()
}

// enqueueWatched is the watcher's EventCallback: it loads any sidecar
// override for path and enqueues a job using profileName. A malformed
// sidecar fails fast straight to failed/ without spawning the external
// tool (invariant vi), mirroring queue.ProcessBatch's sidecar handling.
func (wc *WorkspaceContext) enqueueWatched(path, profileName string, overrides WatchOverrides) {
	if profileName == "" {
		profileName = wc.Settings.DefaultProfile
	}

	sidecar, err := job.LoadSidecarOverride(path)
	if err != nil {
		wc.failFastWith(path, err)
		return
	}

	autoDetect := true
	if sidecar != nil && sidecar.AutoDetectGrid != nil {
		autoDetect = *sidecar.AutoDetectGrid
	}

	resolved, err := job.Resolve(profileName, sidecar, job.ToolOverrides{})
	if err != nil {
		wc.failFastWith(path, err)
		return
	}

	outDir := overrides.OutDir
	if outDir == "" {
		outDir = wc.Settings.OutDir
	}

	spec := job.Spec{
		InputPath:      path,
		OutDir:         outDir,
		ProcessedDir:   overrides.ProcessedDir,
		FailedDir:      overrides.FailedDir,
		ProfileName:    profileName,
		AutoDetectGrid: autoDetect,
	}

	item := queue.Item{Spec: spec, Profile: resolved, EnqueuedAt: time.Now()}
	if enqErr := wc.Queue.Enqueue(item); enqErr != nil {
		slog.Default().Error("enqueue watched file", "path", path, "error", enqErr)
	}
}

// failFastWith classifies a sidecar-load or profile-resolution error and
// fails path straight to failed/ without spawning the external tool
// (invariant vi).
func (wc *WorkspaceContext) failFastWith(path string, err error) {
	code := errs.JobOverrideInvalid
	message := err.Error()
	if jobErr, ok := err.(*errs.JobError); ok {
		code = jobErr.Code
		message = jobErr.Message
	}
	wc.Queue.FailFast(path, code, message)
}
