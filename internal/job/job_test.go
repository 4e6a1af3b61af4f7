package job

import (
	"os"
	"path/filepath"
	"testing"

	"ss-anim/internal/errs"
	"ss-anim/internal/profile"
)

func TestLoadSidecarOverrideMissing(t *testing.T) {
	dir := t.TempDir()
	ov, err := LoadSidecarOverride(filepath.Join(dir, "walk.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov != nil {
		t.Fatal("expected nil override for missing sidecar")
	}
}

func TestLoadSidecarOverrideMalformed(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "walk.png")
	if err := os.WriteFile(SidecarPath(input), []byte("{ invalid"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadSidecarOverride(input)
	if err == nil {
		t.Fatal("expected JOB_OVERRIDE_INVALID error")
	}
	je, ok := err.(*errs.JobError)
	if !ok {
		t.Fatalf("expected *errs.JobError, got %T", err)
	}
	if je.Code != errs.JobOverrideInvalid {
		t.Errorf("code = %s, want %s", je.Code, errs.JobOverrideInvalid)
	}
}

// TestPrecedenceE5 mirrors spec.md E5: sidecar sets rows=3,cols=4,fps=8,
// loop; the tool call overrides grid_rows=2 and fps=12. Effective profile
// must have rows=2 (tool wins), cols=4 (sidecar, untouched by tool), fps=12.
func TestPrecedenceE5(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "walk.png")
	sidecarJSON := `{"grid":{"rows":3,"cols":4},"timing":{"fps":8,"loop_mode":"loop"},"auto_detect_grid":false}`
	if err := os.WriteFile(SidecarPath(input), []byte(sidecarJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	ov, err := LoadSidecarOverride(input)
	if err != nil {
		t.Fatalf("unexpected error loading sidecar: %v", err)
	}

	rows, fps := 2, 12
	effective, err := Resolve("game_default", ov, ToolOverrides{GridRows: &rows, FPS: &fps})
	if err != nil {
		t.Fatalf("unexpected error resolving profile: %v", err)
	}

	if effective.Grid.Rows != 2 {
		t.Errorf("Grid.Rows = %d, want 2", effective.Grid.Rows)
	}
	if effective.Grid.Cols != 4 {
		t.Errorf("Grid.Cols = %d, want 4", effective.Grid.Cols)
	}
	if effective.Timing.FPS != 12 {
		t.Errorf("Timing.FPS = %d, want 12", effective.Timing.FPS)
	}
}

// TestResolveNormalizesEnumCasing covers spec.md §3's Testable Property #6:
// enum fields accept any casing and are normalised to lowercase.
func TestResolveNormalizesEnumCasing(t *testing.T) {
	loopMode := "LOOP"
	ov := &Override{Timing: &profile.Timing{FPS: 12, LoopMode: loopMode}}
	effective, err := Resolve("game_default", ov, ToolOverrides{})
	if err != nil {
		t.Fatalf("unexpected error resolving profile: %v", err)
	}
	if effective.Timing.LoopMode != "loop" {
		t.Errorf("Timing.LoopMode = %q, want normalised %q", effective.Timing.LoopMode, "loop")
	}
}

// TestResolveRejectsInvalidEnum covers spec.md §3: an invalid enum value
// must fail construction rather than silently reach the external tool.
func TestResolveRejectsInvalidEnum(t *testing.T) {
	ov := &Override{Anchor: &profile.Anchor{Mode: "Bogus", AlphaThreshold: 10, XBand: 3}}
	_, err := Resolve("game_default", ov, ToolOverrides{})
	if err == nil {
		t.Fatal("expected an error for an invalid anchor.mode value")
	}
	je, ok := err.(*errs.JobError)
	if !ok {
		t.Fatalf("expected *errs.JobError, got %T", err)
	}
	if je.Code != errs.JobOverrideInvalid {
		t.Errorf("code = %s, want %s", je.Code, errs.JobOverrideInvalid)
	}
}

func TestApplySidecarOverrideDoesNotMutateBase(t *testing.T) {
	base := profile.Get("game_default")
	gridOv := profile.Grid{Rows: 9, Cols: 9}
	ov := &Override{Grid: &gridOv}
	result := ApplySidecarOverride(base, ov)
	if base.Grid.Rows == 9 {
		t.Fatal("base profile was mutated")
	}
	if result.Grid.Rows != 9 {
		t.Errorf("result not updated: %+v", result)
	}
}

func TestNameOrDefault(t *testing.T) {
	s := Spec{InputPath: "/ws/inbox/walk.png"}
	if got := s.NameOrDefault(); got != "walk" {
		t.Errorf("NameOrDefault() = %q, want walk", got)
	}
	s.JobName = "custom"
	if got := s.NameOrDefault(); got != "custom" {
		t.Errorf("NameOrDefault() = %q, want custom", got)
	}
}
