package postprocess

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"ss-anim/internal/config"
)

func writeTestSheet(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := solidSheet(4, 2, [4]color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
	})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestProcessFailsClosedWithoutFFmpegAndLeavesNoTempDir(t *testing.T) {
	dir := t.TempDir()
	sheetPNG := filepath.Join(dir, "anim_sheet.png")
	sheetJSON := filepath.Join(dir, "anim_sheet.json")
	writeTestSheet(t, sheetPNG)
	if err := os.WriteFile(sheetJSON, []byte(`{"frames":[{"frame":{"x":0,"y":0,"w":2,"h":2}}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Tools.FFmpegExe = "ss-anim-nonexistent-ffmpeg-xyz"

	p := New(cfg, nil)
	err := p.Process(context.Background(), sheetPNG, sheetJSON, 12)
	if err == nil {
		t.Fatal("expected an error when ffmpeg is not available")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("expected no temp directory left behind on the ffmpeg-unavailable fast path, found %s", e.Name())
		}
	}

	if _, statErr := os.Stat(filepath.Join(dir, "anim_preview.gif")); statErr == nil {
		t.Fatal("expected no preview file written on failure")
	}
}

func TestProcessFailsOnMissingAtlasFrames(t *testing.T) {
	dir := t.TempDir()
	sheetPNG := filepath.Join(dir, "anim_sheet.png")
	sheetJSON := filepath.Join(dir, "anim_sheet.json")
	writeTestSheet(t, sheetPNG)
	if err := os.WriteFile(sheetJSON, []byte(`{"meta":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Tools.FFmpegExe = "ffmpeg"

	p := New(cfg, nil)
	err := p.Process(context.Background(), sheetPNG, sheetJSON, 12)
	if err == nil {
		t.Fatal("expected an error for an atlas with no frames field")
	}
}
