package postprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"ss-anim/internal/config"
)

// Processor implements runner.HQProcessor: it extracts frames from a
// packed sheet + atlas JSON, drives ffmpeg in two passes to build a
// palette-optimised GIF, and atomically replaces the job's default preview
// with it (spec.md §4.11).
type Processor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds a Processor.
func New(cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{cfg: cfg, logger: logger}
}

// Process implements runner.HQProcessor. The default preview
// (anim_preview.gif, alongside sheetPNG) is only touched on full success;
// any failure removes the temporary working directory and leaves it
// untouched (spec.md §4.11 step 7).
//
// The temp frames directory is created only once ffmpeg's availability has
// been confirmed — an early "ffmpeg unavailable" return must not leave a
// directory behind for a real attempt that never happened.
func (p *Processor) Process(ctx context.Context, sheetPNG, sheetJSON string, fps int) error {
	ffmpegExe := p.cfg.Tools.FFmpegExe
	if _, err := exec.LookPath(ffmpegExe); err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}

	atlasBytes, err := os.ReadFile(sheetJSON)
	if err != nil {
		return fmt.Errorf("read atlas json: %w", err)
	}
	frames, err := ParseFrames(atlasBytes)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("atlas json has zero frames")
	}

	outDir := filepath.Dir(sheetPNG)
	tempDir, err := os.MkdirTemp(outDir, ".hq-preview-*")
	if err != nil {
		return fmt.Errorf("create hq-preview temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	framePaths, err := ExtractFrames(sheetPNG, frames, tempDir)
	if err != nil {
		return err
	}

	manifestPath, err := WriteConcatManifest(tempDir, framePaths, fps)
	if err != nil {
		return err
	}

	palettePath := filepath.Join(tempDir, "palette.png")
	if err := generatePalette(ctx, ffmpegExe, manifestPath, palettePath); err != nil {
		return err
	}

	hqGIFPath := filepath.Join(tempDir, "hq.gif")
	if err := encodeWithPalette(ctx, ffmpegExe, manifestPath, palettePath, hqGIFPath); err != nil {
		return err
	}

	finalPath := hqGIFPath
	optimizedPath := filepath.Join(tempDir, "hq_optimized.gif")
	if ran, optErr := optimize(ctx, p.cfg.Tools.GifOptimizerExe, hqGIFPath, optimizedPath); optErr != nil {
		p.logger.Warn("gif optimiser failed, keeping un-optimised hq preview", "error", optErr)
	} else if ran {
		finalPath = optimizedPath
	}

	previewPath := filepath.Join(outDir, "anim_preview.gif")
	if err := atomicReplace(finalPath, previewPath); err != nil {
		return fmt.Errorf("replace preview: %w", err)
	}

	return nil
}

// atomicReplace copies src onto a temp file beside dst, then renames it
// into place — os.Rename is atomic within the same directory, which the
// staging file and dst share.
func atomicReplace(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	staging := dst + ".tmp"
	if err := os.WriteFile(staging, data, 0o644); err != nil {
		return err
	}
	return os.Rename(staging, dst)
}
