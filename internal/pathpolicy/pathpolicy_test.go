package pathpolicy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRejectsOutsideWorkspace(t *testing.T) {
	ws := t.TempDir()
	_, err := Resolve("/tmp/outside.png", ws, false, "input_path", "")
	if err == nil {
		t.Fatal("expected PATH_OUTSIDE_WORKSPACE error")
	}
	var outside *ErrOutsideWorkspace
	if !asOutside(err, &outside) {
		t.Fatalf("expected ErrOutsideWorkspace, got %T: %v", err, err)
	}
	if outside.Field != "input_path" {
		t.Errorf("field = %q, want input_path", outside.Field)
	}
}

func TestResolveAllowsOutsideWhenAllowExternal(t *testing.T) {
	ws := t.TempDir()
	resolved, err := Resolve(filepath.Join(os.TempDir(), "outside.png"), ws, true, "input_path", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected a resolved path")
	}
}

func TestResolveWithinWorkspace(t *testing.T) {
	ws := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, "inbox"), 0o755); err != nil {
		t.Fatal(err)
	}
	resolved, err := Resolve("inbox/walk.png", ws, false, "input_path", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantSuffix := filepath.Join("inbox", "walk.png")
	if filepath.Base(filepath.Dir(resolved))+string(filepath.Separator)+filepath.Base(resolved) != wantSuffix {
		t.Errorf("resolved = %q, want suffix %q", resolved, wantSuffix)
	}
}

func TestResolveEmptyValueUsesDefault(t *testing.T) {
	ws := t.TempDir()
	resolved, err := Resolve("", ws, false, "out_dir", filepath.Join(ws, "out"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != filepath.Join(ws, "out") {
		t.Errorf("resolved = %q, want %q", resolved, filepath.Join(ws, "out"))
	}
}

func TestEnsureWorkspaceDirsIdempotent(t *testing.T) {
	ws := t.TempDir()
	if err := EnsureWorkspaceDirs(ws); err != nil {
		t.Fatal(err)
	}
	if err := EnsureWorkspaceDirs(ws); err != nil {
		t.Fatalf("second call should be idempotent: %v", err)
	}
	for _, d := range []string{"inbox", "out", "processed", "failed"} {
		if _, err := os.Stat(filepath.Join(ws, d)); err != nil {
			t.Errorf("missing dir %s: %v", d, err)
		}
	}
}

func asOutside(err error, target **ErrOutsideWorkspace) bool {
	if e, ok := err.(*ErrOutsideWorkspace); ok {
		*target = e
		return true
	}
	return false
}
