package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForStableReturnsTrueWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.png")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := StableConfig{Interval: 10 * time.Millisecond, CheckCount: 3, Timeout: time.Second}
	if !WaitForStable(path, cfg) {
		t.Fatal("expected stable file to be detected")
	}
}

func TestWaitForStableReturnsFalseWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := StableConfig{Interval: 10 * time.Millisecond, CheckCount: 3, Timeout: 100 * time.Millisecond}
	if WaitForStable(filepath.Join(dir, "missing.png"), cfg) {
		t.Fatal("expected false for missing path")
	}
}

func TestWaitForStableTimesOutOnGrowingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growing.png")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
				if err == nil {
					f.WriteString("x")
					f.Close()
				}
			}
		}
	}()
	defer close(stop)

	cfg := StableConfig{Interval: 10 * time.Millisecond, CheckCount: 3, Timeout: 60 * time.Millisecond}
	if WaitForStable(path, cfg) {
		t.Fatal("expected timeout on continuously growing file")
	}
}
