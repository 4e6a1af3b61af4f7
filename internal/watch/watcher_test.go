package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherPollingEmitsStableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.png")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []string
	w := New(Config{
		Dir:             dir,
		ValidExtensions: []string{".png"},
		PollInterval:    10 * time.Millisecond,
		Stable:          StableConfig{Interval: 5 * time.Millisecond, CheckCount: 2, Timeout: time.Second},
		PollStable:      StableConfig{Interval: 5 * time.Millisecond, CheckCount: 2, Timeout: time.Second},
	}, func(p string) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})

	// force polling backend by calling scanOnce directly across two scans
	// with an unchanged mtime, matching the polling algorithm in spec.md.
	if err := w.scanOnce(); err != nil {
		t.Fatal(err)
	}
	if err := w.scanOnce(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != path {
		t.Fatalf("got = %v, want [%s]", got, path)
	}
}

func TestWatcherSkipsDotfilesAndWrongExt(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "note.txt"), []byte("x"), 0o644)

	w := New(Config{Dir: dir, ValidExtensions: []string{".png"}}, func(string) {})
	if w.isValidFile(filepath.Join(dir, ".hidden.png")) {
		t.Error("dotfile should not be valid")
	}
	if w.isValidFile(filepath.Join(dir, "note.txt")) {
		t.Error(".txt should not be valid")
	}
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Dir: dir, ValidExtensions: []string{".png"}, PollInterval: 50 * time.Millisecond}, func(string) {})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("second Start should be idempotent: %v", err)
	}
	w.Stop()
	w.Stop() // idempotent stop must not hang or panic
}

func TestWatcherPruneSeenMapToPresent(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Dir: dir, ValidExtensions: []string{".png"}}, func(string) {})
	w.seenMap["/gone.png"] = time.Now()
	w.pruneState(map[string]struct{}{})
	if _, ok := w.seenMap["/gone.png"]; ok {
		t.Error("expected seenMap entry for vanished path to be pruned")
	}
}
