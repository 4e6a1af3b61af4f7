// Package pathpolicy resolves client-supplied paths against a workspace
// root and enforces workspace containment unless explicitly relaxed.
package pathpolicy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ss-anim/internal/config"
)

// ErrOutsideWorkspace carries the structured PATH_OUTSIDE_WORKSPACE error.
type ErrOutsideWorkspace struct {
	Field string
	Path  string
	Root  string
}

func (e *ErrOutsideWorkspace) Error() string {
	return fmt.Sprintf("%s: %q escapes workspace root %q", e.Field, e.Path, e.Root)
}

// Resolve expands ~, interprets a relative value against workspaceRoot,
// resolves symlinks, and (unless allowExternal) rejects any result not
// lexically under the resolved workspace root.
//
// If value is empty and def is non-empty, def is returned verbatim after
// the same expansion/resolution (it may legitimately live outside the
// workspace when it comes from settings rather than client input).
func Resolve(value, workspaceRoot string, allowExternal bool, fieldName, def string) (string, error) {
	usedDefault := false
	if value == "" {
		value = def
		usedDefault = true
	}
	if value == "" {
		return "", nil
	}

	expanded, err := config.ExpandUser(value)
	if err != nil {
		return "", err
	}

	var abs string
	if filepath.IsAbs(expanded) {
		abs = expanded
	} else {
		abs = filepath.Join(workspaceRoot, expanded)
	}

	resolved := resolveSymlinks(abs)

	if allowExternal || usedDefault {
		return resolved, nil
	}

	rootResolved := resolveSymlinks(workspaceRoot)
	if !lexicallyUnder(resolved, rootResolved) {
		return "", &ErrOutsideWorkspace{Field: fieldName, Path: resolved, Root: rootResolved}
	}
	return resolved, nil
}

// resolveSymlinks resolves path as far as it can; if the path (or some
// trailing suffix) doesn't exist yet, it resolves the longest existing
// prefix and rejoins the remainder, matching EvalSymlinks on not-yet-created
// output paths.
func resolveSymlinks(path string) string {
	clean := filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return resolved
	}

	dir := filepath.Dir(clean)
	base := filepath.Base(clean)
	for dir != "/" && dir != "." {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, base)
		}
		base = filepath.Join(filepath.Base(dir), base)
		dir = filepath.Dir(dir)
	}
	return clean
}

// lexicallyUnder reports whether p is root itself or lies lexically under
// it, using filepath.Rel rather than a textual strings.HasPrefix check so
// that a sibling sharing a name prefix (e.g. /ws and /ws-other) is rejected.
func lexicallyUnder(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..") && rel != ".."
}

// ResolveRoot expands ~, makes the path absolute (relative to the process's
// working directory), and resolves symlinks — the same normalisation
// Resolve applies to the workspace root itself, exposed so callers that
// need the canonical workspace identity (the process-wide context map key)
// don't duplicate it.
func ResolveRoot(path string) (string, error) {
	expanded, err := config.ExpandUser(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	return resolveSymlinks(abs), nil
}

// EnsureWorkspaceDirs idempotently creates the four required subdirectories
// under root (invariant i of the data model).
func EnsureWorkspaceDirs(root string) error {
	for _, d := range []string{"inbox", "out", "processed", "failed"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create workspace dir %s: %w", d, err)
		}
	}
	return nil
}
