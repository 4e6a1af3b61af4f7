package workspace

import (
	"path/filepath"
	"testing"

	"ss-anim/internal/config"
)

func TestResolveSettingsDerivesSubdirsFromRoot(t *testing.T) {
	ws := t.TempDir()
	cfg := testConfig(ws)

	s, err := ResolveSettings(cfg, ws)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"inbox":     s.InboxDir,
		"out":       s.OutDir,
		"processed": s.ProcessedDir,
		"failed":    s.FailedDir,
	}
	for name, got := range want {
		if filepath.Base(got) != name {
			t.Errorf("%s dir = %s, want basename %s", name, got, name)
		}
	}
}

func TestResolveSettingsFallsBackToEnvWorkspace(t *testing.T) {
	ws := t.TempDir()
	cfg := testConfig("")
	cfg.Paths.DefaultWorkspace = ""

	t.Setenv("SS_ANIM_WORKSPACE", ws)

	s, err := ResolveSettings(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	resolvedWS, err := filepath.EvalSymlinks(ws)
	if err != nil {
		t.Fatal(err)
	}
	if s.WorkspaceRoot != resolvedWS {
		t.Errorf("WorkspaceRoot = %s, want %s", s.WorkspaceRoot, resolvedWS)
	}
}

func TestResolveSettingsHonoursAsepriteExeEnvOverride(t *testing.T) {
	ws := t.TempDir()
	cfg := testConfig(ws)

	t.Setenv("ASEPRITE_EXE", "/custom/path/to/aseprite")

	s, err := ResolveSettings(cfg, ws)
	if err != nil {
		t.Fatal(err)
	}
	if s.AsepriteExe != "/custom/path/to/aseprite" {
		t.Errorf("AsepriteExe = %s, want env override", s.AsepriteExe)
	}
}

func TestResolveSettingsStableDefaultsWhenWatchConfigZero(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paths.DefaultWorkspace = "."

	ws := t.TempDir()
	s, err := ResolveSettings(cfg, ws)
	if err != nil {
		t.Fatal(err)
	}
	if s.Stable.Interval <= 0 || s.Stable.CheckCount <= 0 {
		t.Errorf("expected Stable to fall back to non-zero defaults, got %+v", s.Stable)
	}
}
