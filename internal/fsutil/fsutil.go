package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSpriteExts are the input suffixes the watcher and batch scanner
// accept out of the box; configurable per spec.md §4.5.
var DefaultSpriteExts = []string{".png", ".jpg", ".jpeg"}

// IsSpriteFile reports whether path has one of exts (case-insensitive).
func IsSpriteFile(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// FirstExisting returns the first path that exists on disk, or "".
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DirEntry is a scanned file with the mtime used for ordering.
type DirEntry struct {
	Path  string
	MTime int64
}

// ListDir returns regular, non-dot files in dir matching exts, sorted
// oldest-mtime-first and name as tiebreak (spec.md E10).
func ListDir(dir string, exts []string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []DirEntry
	for _, d := range entries {
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		if !IsSpriteFile(d.Name(), exts) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, DirEntry{Path: filepath.Join(dir, d.Name()), MTime: info.ModTime().UnixNano()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MTime != out[j].MTime {
			return out[i].MTime < out[j].MTime
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// UniqueDir returns a path that does not yet exist by appending _1, _2,
// ... to base's last element while the candidate already exists.
func UniqueDir(base string) string {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmtSuffix(base, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// UniqueFile returns a path that does not yet exist by appending _1, _2,
// ... to the stem (the portion before the extension) while the candidate
// already exists — the collision rule the queue applies when moving an
// input into processed/ (spec.md §4.9).
func UniqueFile(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, stem+"_"+itoa(n)+ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func fmtSuffix(base string, n int) string {
	return base + "_" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
