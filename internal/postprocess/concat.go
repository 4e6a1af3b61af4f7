package postprocess

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteConcatManifest writes an ffmpeg concat-demuxer manifest listing each
// frame with duration = 1/fps, plus one extra copy of the last frame
// (ffmpeg's concat demuxer ignores the final entry's duration, so the last
// frame must be repeated to honour its own) — spec.md §4.11 step 4.
func WriteConcatManifest(dir string, framePaths []string, fps int) (string, error) {
	if len(framePaths) == 0 {
		return "", fmt.Errorf("no frames to build a concat manifest from")
	}

	duration := 1.0 / float64(fps)
	manifestPath := filepath.Join(dir, "concat.txt")

	f, err := os.Create(manifestPath)
	if err != nil {
		return "", fmt.Errorf("create concat manifest: %w", err)
	}
	defer f.Close()

	for _, p := range framePaths {
		fmt.Fprintf(f, "file '%s'\nduration %f\n", filepath.Base(p), duration)
	}
	last := framePaths[len(framePaths)-1]
	fmt.Fprintf(f, "file '%s'\n", filepath.Base(last))

	return manifestPath, nil
}
