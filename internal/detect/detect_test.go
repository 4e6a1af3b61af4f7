package detect

import "testing"

// buildPadded constructs a synthetic im.h x im.w grid of rows x cols frames,
// each frameH x frameW, separated by padding px of white (255,255,255,255)
// background, with offset margins around the whole grid, and black cells.
func buildPadded(rows, cols, frameW, frameH, padX, padY, offX, offY int) *image {
	w := offX*2 + cols*frameW + (cols-1)*padX
	h := offY*2 + rows*frameH + (rows-1)*padY
	im := &image{w: w, h: h, pixels: make([]rgba, w*h)}
	white := rgba{255, 255, 255, 255}
	for i := range im.pixels {
		im.pixels[i] = white
	}
	black := rgba{0, 0, 0, 255}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			y0 := offY + r*(frameH+padY)
			x0 := offX + c*(frameW+padX)
			for y := y0; y < y0+frameH; y++ {
				for x := x0; x < x0+frameW; x++ {
					im.pixels[y*w+x] = black
				}
			}
		}
	}
	return im
}

func TestGapLinesAndGroupGapsOnPaddedSheet(t *testing.T) {
	// 3 rows x 4 cols of 10x8 black rectangles, 5px margin, 2px padding
	// (spec.md E6).
	im := buildPadded(3, 4, 10, 8, 2, 2, 5, 5)
	bg := backgroundColor(im)
	if bg != (rgba{255, 255, 255, 255}) {
		t.Fatalf("background = %+v, want white", bg)
	}

	hGroupsFull := groupGaps(gapLines(im, bg, true))
	vGroupsFull := groupGaps(gapLines(im, bg, false))

	// Full-image gap groups include the leading/trailing margins as extra
	// groups (4 = top margin, 2 interior paddings, bottom margin); the
	// interior-only count (after margins are split off) is what yields
	// rows/cols per spec.md step 6-7.
	_, _, hInterior := marginsAndInterior(hGroupsFull, im.h)
	_, _, vInterior := marginsAndInterior(vGroupsFull, im.w)

	if len(hInterior) != 2 {
		t.Fatalf("horizontal interior groups = %d, want 2 (rows=3)", len(hInterior))
	}
	if len(vInterior) != 3 {
		t.Fatalf("vertical interior groups = %d, want 3 (cols=4)", len(vInterior))
	}
}

func TestDetectE6PaddedSheet(t *testing.T) {
	im := buildPadded(3, 4, 10, 8, 2, 2, 5, 5)
	bg := backgroundColor(im)
	hGroupsFull := groupGaps(gapLines(im, bg, true))
	vGroupsFull := groupGaps(gapLines(im, bg, false))

	offY, trailY, hInterior := marginsAndInterior(hGroupsFull, im.h)
	offX, trailX, vInterior := marginsAndInterior(vGroupsFull, im.w)

	rows := len(hInterior) + 1
	cols := len(vInterior) + 1
	if rows != 3 || cols != 4 {
		t.Fatalf("rows=%d cols=%d, want 3x4", rows, cols)
	}
	if offX != 5 || offY != 5 {
		t.Fatalf("leading margins = (%d,%d), want (5,5)", offX, offY)
	}

	padX, padY, fw, fh, ok := refine(hInterior, vInterior, offX, offY, trailX, trailY, im.w, im.h, rows, cols)
	if !ok {
		t.Fatal("refine() reported inconsistent geometry")
	}
	if padX != 2 || padY != 2 {
		t.Errorf("padding = (%d,%d), want (2,2)", padX, padY)
	}
	if fw != 10 || fh != 8 {
		t.Errorf("frame size = (%d,%d), want (10,8)", fw, fh)
	}
}

func TestIsBackgroundToleranceAndAlpha(t *testing.T) {
	bg := rgba{255, 255, 255, 255}
	if !isBackground(rgba{0, 0, 0, 0}, bg) {
		t.Error("fully transparent pixel should count as background regardless of colour")
	}
	if !isBackground(rgba{250, 248, 252, 255}, bg) {
		t.Error("near-white pixel within tolerance should be background")
	}
	if isBackground(rgba{0, 0, 0, 255}, bg) {
		t.Error("opaque black should not be background against white")
	}
}

func TestCommonGridFallbackDividesEvenly(t *testing.T) {
	rows, cols, ok := commonGridFallback(256, 128)
	if !ok {
		t.Fatal("expected a fallback grid")
	}
	if 256%cols != 0 || 128%rows != 0 {
		t.Errorf("fallback grid %dx%d does not divide 256x128 evenly", rows, cols)
	}
}

func TestConfidenceCapsAtOne(t *testing.T) {
	c := confidence(4, 4, 16, 16, true, true)
	if c > 1.0 {
		t.Errorf("confidence = %f, want <= 1.0", c)
	}
	if c < 0.9 {
		t.Errorf("confidence = %f, expected high score with both gaps + even division", c)
	}
}

func TestCacheHitMissCounters(t *testing.T) {
	c := NewCache()
	hits, misses := c.Stats()
	if hits != 0 || misses != 0 {
		t.Fatalf("fresh cache should start at 0/0, got %d/%d", hits, misses)
	}
}
