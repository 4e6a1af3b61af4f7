package watch

import (
	"os"
	"time"
)

// StableConfig controls the stable-write guard's polling cadence.
type StableConfig struct {
	Interval   time.Duration
	CheckCount int
	Timeout    time.Duration
}

// DefaultStableConfig matches spec.md §4.4's defaults: 300ms interval, 3
// consecutive unchanged polls, 30s overall timeout.
func DefaultStableConfig() StableConfig {
	return StableConfig{Interval: 300 * time.Millisecond, CheckCount: 3, Timeout: 30 * time.Second}
}

// WaitForStable polls path's size and mtime every cfg.Interval; once both
// are unchanged across cfg.CheckCount consecutive polls it returns true.
// If the path disappears, cannot be stat'd, or cfg.Timeout elapses first,
// it returns false.
func WaitForStable(path string, cfg StableConfig) bool {
	deadline := time.Now().Add(cfg.Timeout)

	var lastSize int64
	var lastMTime time.Time
	stableCount := 0
	first := true

	for {
		if time.Now().After(deadline) {
			return false
		}

		info, err := os.Stat(path)
		if err != nil {
			return false
		}

		size := info.Size()
		mtime := info.ModTime()

		if !first && size == lastSize && mtime.Equal(lastMTime) {
			stableCount++
			if stableCount >= cfg.CheckCount-1 {
				return true
			}
		} else {
			stableCount = 0
		}

		lastSize = size
		lastMTime = mtime
		first = false

		time.Sleep(cfg.Interval)
	}
}
