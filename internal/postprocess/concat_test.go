package postprocess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteConcatManifestRepeatsLastFrame(t *testing.T) {
	dir := t.TempDir()
	frames := []string{
		filepath.Join(dir, "frame_0000.png"),
		filepath.Join(dir, "frame_0001.png"),
	}

	path, err := WriteConcatManifest(dir, frames, 10)
	if err != nil {
		t.Fatalf("WriteConcatManifest: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	text := string(data)

	if strings.Count(text, "frame_0001.png") != 2 {
		t.Fatalf("expected the last frame to appear twice (duration-preserving repeat), manifest:\n%s", text)
	}
	if strings.Count(text, "frame_0000.png") != 1 {
		t.Fatalf("expected the first frame to appear once, manifest:\n%s", text)
	}
	if !strings.Contains(text, "duration 0.100000") {
		t.Fatalf("expected duration = 1/fps = 0.1, manifest:\n%s", text)
	}
}

func TestWriteConcatManifestRejectsEmptyFrameList(t *testing.T) {
	if _, err := WriteConcatManifest(t.TempDir(), nil, 10); err == nil {
		t.Fatal("expected an error for an empty frame list")
	}
}
