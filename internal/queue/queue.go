// Package queue implements the single-worker job queue and terminal
// disposition (spec.md §4.9): FIFO enqueue, sequential execution with at
// most one external-tool process in flight, and move-to-processed /
// move-to-failed outcomes.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ss-anim/internal/errs"
	"ss-anim/internal/fsutil"
	"ss-anim/internal/job"
	"ss-anim/internal/profile"
	"ss-anim/internal/runner"
)

// Item is one enqueued conversion request.
type Item struct {
	Spec       job.Spec
	Profile    profile.ConversionProfile
	EnqueuedAt time.Time
}

// Stats are the queue's read-only counters (spec.md §5, "accept mildly
// stale reads").
type Stats struct {
	Total     int
	Success   int
	Failure   int
	LastError string
	Current   string
}

// CompletionCallback is awaited after every terminal disposition, mirroring
// spec.md §4.9 step 6 (`on_job_complete`).
type CompletionCallback func(runner.ConvertResult)

// Config bundles a Queue's fixed per-workspace settings.
type Config struct {
	ProcessedDir  string
	FailedDir     string
	Runner        *runner.Runner
	WorkspaceRoot string
	OnComplete    CompletionCallback
	Logger        *slog.Logger
}

// Queue is one workspace's single-worker job queue.
type Queue struct {
	cfg    Config
	logger *slog.Logger

	items chan Item

	mu    sync.Mutex
	stats Stats

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New constructs a Queue; Start must be called to spawn its worker.
func New(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		cfg:    cfg,
		logger: logger,
		items:  make(chan Item, 256),
		done:   make(chan struct{}),
	}
}

// Start spawns exactly one worker task; a second call is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		q.cancel = cancel
		go q.workerLoop(ctx)
	})
}

// Stop cancels the worker and waits for it to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		if q.cancel != nil {
			q.cancel()
		}
		<-q.done
	})
}

// Enqueue is non-blocking: it returns an error if the internal buffer is
// full rather than blocking the caller.
func (q *Queue) Enqueue(item Item) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	select {
	case q.items <- item:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

// StatsSnapshot returns a copy of the current counters.
func (q *Queue) StatsSnapshot() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// workerLoop is the sole worker: dequeue, run, disposition, repeat. A
// select over ctx.Done() and the items channel is the Go-idiomatic
// replacement for the cooperative-scheduler's "await with a 1-second
// timeout" (spec.md §4.9 step 1) — cancellation is observed immediately
// rather than after up to a second, which still satisfies "so shutdown is
// responsive" and is the more natural shape for a native goroutine.
func (q *Queue) workerLoop(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-q.items:
			if !ok {
				return
			}
			q.process(ctx, item)
		}
	}
}

func (q *Queue) process(ctx context.Context, item Item) runner.ConvertResult {
	jobName := item.Spec.NameOrDefault()
	q.mu.Lock()
	q.stats.Current = jobName
	q.mu.Unlock()

	result, err := q.cfg.Runner.Run(ctx, q.cfg.WorkspaceRoot, item.Spec, item.Profile)
	if err != nil {
		result = q.synthesizeRunnerException(item, err)
	}

	q.mu.Lock()
	q.stats.Total++
	if result.Success {
		q.stats.Success++
	} else {
		q.stats.Failure++
		q.stats.LastError = result.Message
	}
	q.stats.Current = ""
	q.mu.Unlock()

	result = q.disposition(item, result)

	if q.cfg.OnComplete != nil {
		q.cfg.OnComplete(result)
	}

	return result
}

// disposition implements spec.md §4.9 step 5: move the input into
// processed/ on success, or into a fresh failed/<stem>/<timestamp>[_n]/ run
// directory on failure. Returns result with ErrorLogPath updated to the
// failure run directory's error.txt, per spec.md §7 "Propagation".
func (q *Queue) disposition(item Item, result runner.ConvertResult) runner.ConvertResult {
	processedDir := item.Spec.ProcessedDir
	if processedDir == "" {
		processedDir = q.cfg.ProcessedDir
	}
	failedDir := item.Spec.FailedDir
	if failedDir == "" {
		failedDir = q.cfg.FailedDir
	}

	if result.Success {
		if err := os.MkdirAll(processedDir, 0o755); err != nil {
			q.logger.Error("create processed dir", "error", err)
			return result
		}
		dest := fsutil.UniqueFile(filepath.Join(processedDir, filepath.Base(item.Spec.InputPath)))
		if err := os.Rename(item.Spec.InputPath, dest); err != nil {
			q.logger.Error("move input to processed", "input", item.Spec.InputPath, "dest", dest, "error", err)
		}
		return result
	}

	stem := stemOf(item.Spec.InputPath)
	runDirBase := filepath.Join(failedDir, stem, time.Now().Format("20060102_150405"))
	runDir := fsutil.UniqueDir(runDirBase)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		q.logger.Error("create failed run dir", "error", err)
		return result
	}

	dest := filepath.Join(runDir, filepath.Base(item.Spec.InputPath))
	if err := os.Rename(item.Spec.InputPath, dest); err != nil {
		q.logger.Error("move input to failed", "input", item.Spec.InputPath, "dest", dest, "error", err)
	}

	errTxt := filepath.Join(runDir, "error.txt")
	_ = os.WriteFile(errTxt, []byte(result.Message+"\n"), 0o644)
	result.ErrorLogPath = errTxt
	return result
}

// FailFast dispositions input straight to failed/ without invoking the
// runner, for callers (the watcher, malformed-sidecar detection) that must
// reject a job before it reaches the worker goroutine (invariant vi).
func (q *Queue) FailFast(input string, code errs.Code, message string) runner.ConvertResult {
	now := time.Now()
	spec := job.Spec{InputPath: input}
	result := runner.ConvertResult{
		InputPath:   input,
		JobName:     spec.NameOrDefault(),
		Success:     false,
		ErrorCode:   code,
		Message:     message,
		StartedAt:   now,
		CompletedAt: now,
	}
	result = q.disposition(Item{Spec: spec}, result)
	if q.cfg.OnComplete != nil {
		q.cfg.OnComplete(result)
	}
	return result
}

// synthesizeRunnerException builds the terminal ConvertResult for a job
// whose runner.Run returned an error instead of a result (spec.md §4.9: the
// disposition step must still synthesize a ConvertResult with either
// ASEPRITE_ERROR or UNEXPECTED_EXCEPTION). A *errs.JobError already carries
// its own classification (e.g. a tool-launch failure classified by the
// runner as ASEPRITE_ERROR) and is propagated as-is; anything else — a
// plain error the runner didn't classify — is an unexpected exception.
func (q *Queue) synthesizeRunnerException(item Item, err error) runner.ConvertResult {
	now := time.Now()
	code := errs.UnexpectedException
	if jobErr, ok := err.(*errs.JobError); ok {
		code = jobErr.Code
	}
	return runner.ConvertResult{
		InputPath:   item.Spec.InputPath,
		JobName:     item.Spec.NameOrDefault(),
		Success:     false,
		ErrorCode:   code,
		Message:     err.Error(),
		StartedAt:   item.EnqueuedAt,
		CompletedAt: now,
	}
}

func stemOf(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" {
		return base
	}
	return base[:len(base)-len(ext)]
}
