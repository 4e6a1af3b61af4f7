// Package watch implements the folder watcher (C5) and its stable-write
// guard (C4): fan-in of new-file events for one directory, with an
// fsnotify event-stream backend preferred over a polling fallback.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const prunedSetLimit = 10000

// Health is the watcher's read-only status snapshot (spec.md §4.5).
type Health struct {
	FilesProcessed int
	LastActivity   time.Time
	ErrorCount     int
	LastError      string
	LastScanAt     time.Time
	Running        bool
}

// EventCallback receives a newly-stable input path. It runs on the
// watcher's own goroutine and must be fast and non-blocking — it is
// expected to schedule work onto a queue, not perform it.
type EventCallback func(path string)

// Watcher watches one directory for new, stable image files.
type Watcher struct {
	dir          string
	validExts    []string
	pollInterval time.Duration
	stableCfg    StableConfig
	pollStable   StableConfig
	callback     EventCallback
	logger       *slog.Logger

	mu           sync.Mutex
	processedSet map[string]struct{}
	seenMap      map[string]time.Time
	health       Health

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// Config bundles the tunables a Watcher needs.
type Config struct {
	Dir             string
	ValidExtensions []string
	PollInterval    time.Duration
	Stable          StableConfig
	PollStable      StableConfig
	Logger          *slog.Logger
}

// New constructs a Watcher; it does not start any background activity.
func New(cfg Config, cb EventCallback) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := cfg.ValidExtensions
	if len(exts) == 0 {
		exts = []string{".png", ".jpg", ".jpeg"}
	}
	return &Watcher{
		dir:          cfg.Dir,
		validExts:    exts,
		pollInterval: cfg.PollInterval,
		stableCfg:    cfg.Stable,
		pollStable:   cfg.PollStable,
		callback:     cb,
		logger:       logger,
		processedSet: make(map[string]struct{}),
		seenMap:      make(map[string]time.Time),
	}
}

// Start is idempotent: a second call while already running is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.health.Running {
		w.mu.Unlock()
		return nil
	}
	w.health.Running = true
	w.mu.Unlock()

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, falling back to polling", "error", err, "dir", w.dir)
		go w.pollLoop()
		return nil
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		w.logger.Warn("fsnotify add failed, falling back to polling", "error", err, "dir", w.dir)
		go w.pollLoop()
		return nil
	}
	w.fsw = fsw
	go w.eventLoop()
	return nil
}

// Stop cancels the background task and awaits its exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.health.Running {
		w.mu.Unlock()
		return
	}
	w.health.Running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if w.fsw != nil {
		w.fsw.Close()
	}
}

// HealthSnapshot returns a copy of the current health counters.
func (w *Watcher) HealthSnapshot() Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health
}

func (w *Watcher) isValidFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range w.validExts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) alreadyProcessed(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.processedSet[path]
	return ok
}

func (w *Watcher) markProcessed(path string) {
	w.mu.Lock()
	w.processedSet[path] = struct{}{}
	w.health.FilesProcessed++
	w.health.LastActivity = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) recordError(err error) {
	w.mu.Lock()
	w.health.ErrorCount++
	w.health.LastError = err.Error()
	w.mu.Unlock()
	w.logger.Error("watcher error", "dir", w.dir, "error", err)
}

// eventLoop is the event-stream backend: subscribe to kernel events and, for
// each event whose path passes the valid-file filter and isn't already
// emitted, run the stable-write guard then emit.
func (w *Watcher) eventLoop() {
	defer close(w.doneCh)
	backoff := 0 * time.Second

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleCandidate(ev.Name, w.stableCfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			if backoff < 5*time.Second {
				backoff += time.Second
			}
			time.Sleep(backoff)
		}
	}
}

// pollLoop is the polling fallback backend (spec.md §4.5).
func (w *Watcher) pollLoop() {
	defer close(w.doneCh)
	interval := w.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	backoff := 0 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.scanOnce(); err != nil {
				w.recordError(err)
				if backoff < 5*time.Second {
					backoff += time.Second
				}
				time.Sleep(backoff)
				continue
			}
			backoff = 0
		}
	}
}

func (w *Watcher) scanOnce() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !w.isValidFile(path) {
			continue
		}
		present[path] = struct{}{}

		info, err := e.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime()

		w.mu.Lock()
		prevMTime, seen := w.seenMap[path]
		w.seenMap[path] = mtime
		w.mu.Unlock()

		if w.alreadyProcessed(path) {
			continue
		}
		if seen && prevMTime.Equal(mtime) {
			w.handleCandidate(path, w.pollStable)
		}
	}

	w.pruneState(present)

	w.mu.Lock()
	w.health.LastScanAt = time.Now()
	w.mu.Unlock()
	return nil
}

func (w *Watcher) handleCandidate(path string, cfg StableConfig) {
	if w.alreadyProcessed(path) {
		return
	}
	if !w.isValidFile(path) {
		return
	}
	if !WaitForStable(path, cfg) {
		return
	}
	w.markProcessed(path)
	w.callback(path)
}

// pruneState intersects processed-set and seen-map with the directory
// contents just observed (spec.md invariant: watcher pruning), and clears
// non-existent entries from processed-set once it grows past the limit.
func (w *Watcher) pruneState(present map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.seenMap {
		if _, ok := present[p]; !ok {
			delete(w.seenMap, p)
		}
	}

	if len(w.processedSet) <= prunedSetLimit {
		return
	}
	for p := range w.processedSet {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			delete(w.processedSet, p)
		}
	}
}
