package postprocess

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// generatePalette runs ffmpeg's palettegen pass over the concat manifest
// (spec.md §4.11 step 5a).
func generatePalette(ctx context.Context, ffmpegExe, manifestPath, paletteOut string) error {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", manifestPath,
		"-vf", "palettegen=stats_mode=diff",
		paletteOut,
	}
	return runFFmpeg(ctx, ffmpegExe, filepath.Dir(manifestPath), args)
}

// encodeWithPalette runs ffmpeg's paletteuse pass, producing the final GIF
// (spec.md §4.11 step 5b). Loop count 0 means infinite looping.
func encodeWithPalette(ctx context.Context, ffmpegExe, manifestPath, paletteIn, gifOut string) error {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", manifestPath,
		"-i", paletteIn,
		"-lavfi", "paletteuse=dither=bayer:bayer_scale=5",
		"-loop", "0",
		gifOut,
	}
	return runFFmpeg(ctx, ffmpegExe, filepath.Dir(manifestPath), args)
}

func runFFmpeg(ctx context.Context, ffmpegExe, dir string, args []string) error {
	cmd := exec.CommandContext(ctx, ffmpegExe, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(output))
	}
	return nil
}

// optimize runs the configured optimiser binary over src, writing its
// output to dst (src is left as is), and returns whether it ran (spec.md §4.11 step 6: "If an
// optimiser binary is available, run it... and atomically replace the
// original with the optimised output on success").
func optimize(ctx context.Context, optimizerExe, src, dst string) (ran bool, err error) {
	path, lookErr := exec.LookPath(optimizerExe)
	if lookErr != nil {
		return false, nil
	}

	cmd := exec.CommandContext(ctx, path, "-O3", "--output", dst, src)
	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return true, fmt.Errorf("optimiser failed: %w: %s", runErr, string(output))
	}
	if _, statErr := os.Stat(dst); statErr != nil {
		return true, fmt.Errorf("optimiser did not produce %s: %w", dst, statErr)
	}
	return true, nil
}
