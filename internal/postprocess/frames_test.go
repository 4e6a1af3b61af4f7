package postprocess

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solidSheet(w, h int, quadrants [4]color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	halfW, halfH := w/2, h/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q := 0
			if x >= halfW {
				q++
			}
			if y >= halfH {
				q += 2
			}
			img.Set(x, y, quadrants[q])
		}
	}
	return img
}

// writeSheetPNG writes img to a PNG fixture file and returns its path;
// ExtractFrames reads sheets by path through imagick, so tests need a real
// file on disk rather than an in-memory image.Image.
func writeSheetPNG(t *testing.T, dir string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, "sheet.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create sheet fixture: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode sheet fixture: %v", err)
	}
	return path
}

// readFramePNG decodes an extracted frame with the stdlib decoder: a plain
// pixel assertion doesn't need imagick, and keeping verification on a
// separate path from production catches a codec-specific extraction bug.
func readFramePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestExtractFramesWritesOneFilePerFrameInOrder(t *testing.T) {
	dir := t.TempDir()
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	sheetPath := writeSheetPNG(t, dir, solidSheet(4, 2, [4]color.Color{red, green, red, green}))

	frames := []Frame{
		{Name: "frame_0000", Frame: Rect{X: 0, Y: 0, W: 2, H: 2}},
		{Name: "frame_0001", Frame: Rect{X: 2, Y: 0, W: 2, H: 2}},
	}

	outDir := filepath.Join(dir, "frames")
	paths, err := ExtractFrames(sheetPath, frames, outDir)
	if err != nil {
		t.Fatalf("ExtractFrames: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("len(paths) = %d, want 2", len(paths))
	}
	if filepath.Base(paths[0]) != "frame_0000.png" || filepath.Base(paths[1]) != "frame_0001.png" {
		t.Fatalf("unexpected frame filenames: %v", paths)
	}

	img := readFramePNG(t, paths[0])
	r, g, _, _ := img.At(0, 0).RGBA()
	if r == 0 {
		t.Fatalf("expected frame_0000 to be red, got r=%d g=%d", r, g)
	}
}

func TestExtractFramesRecoversUntrimmedCanvasSize(t *testing.T) {
	dir := t.TempDir()
	red := color.RGBA{R: 255, A: 255}
	sheetPath := writeSheetPNG(t, dir, solidSheet(2, 2, [4]color.Color{red, red, red, red}))

	frames := []Frame{
		{
			Name:             "frame_0000",
			Frame:            Rect{X: 0, Y: 0, W: 2, H: 2},
			SourceSize:       &Size{W: 4, H: 4},
			SpriteSourceSize: &SpriteSourceRect{X: 1, Y: 1, W: 2, H: 2},
		},
	}

	outDir := filepath.Join(dir, "frames")
	paths, err := ExtractFrames(sheetPath, frames, outDir)
	if err != nil {
		t.Fatalf("ExtractFrames: %v", err)
	}

	img := readFramePNG(t, paths[0])
	bounds := img.Bounds()
	if bounds.Dx() != 4 || bounds.Dy() != 4 {
		t.Fatalf("recovered canvas size = %dx%d, want 4x4", bounds.Dx(), bounds.Dy())
	}

	_, _, _, a := img.At(0, 0).RGBA()
	if a != 0 {
		t.Fatalf("expected (0,0) outside the pasted rect to be transparent, alpha=%d", a)
	}
	_, _, _, a = img.At(1, 1).RGBA()
	if a == 0 {
		t.Fatalf("expected (1,1) inside the pasted rect to be opaque")
	}
}
