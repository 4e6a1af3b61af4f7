// Package detect implements grid auto-detection (C6): background-colour
// sampling, gap analysis, offset/padding refinement, a common-grid
// fallback, and a bounded process-wide result cache.
package detect

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/gographics/imagick.v3/imagick"

	"ss-anim/internal/profile"
)

const (
	bgTolerance   = 10
	sampleTarget  = 128
	gapThreshold  = 0.95
	groupGapSlack = 3
)

// Result is the outcome of one grid-detection pass (spec.md §3
// DetectionResult).
type Result struct {
	Detected    bool
	Grid        profile.Grid
	Width       int
	Height      int
	FrameWidth  int
	FrameHeight int
	Confidence  float64
	Method      string // "gap_analysis" or "common_grid"
	Notes       string
}

type rgba struct{ r, g, b, a uint8 }

// image is a minimal decoded-pixel buffer; avoids round-tripping through
// image/color for the simple integer math this package needs.
type image struct {
	w, h   int
	pixels []rgba
}

func (im *image) at(x, y int) rgba {
	return im.pixels[y*im.w+x]
}

func loadImage(path string) (*image, error) {
	imagick.Initialize()
	defer imagick.Terminate()

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.ReadImage(path); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	w := int(mw.GetImageWidth())
	h := int(mw.GetImageHeight())

	raw, err := mw.ExportImagePixels(0, 0, uint(w), uint(h), "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, fmt.Errorf("export pixels: %w", err)
	}

	bytes, ok := raw.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected pixel type %T", raw)
	}

	pixels := make([]rgba, w*h)
	for i := range pixels {
		o := i * 4
		pixels[i] = rgba{bytes[o], bytes[o+1], bytes[o+2], bytes[o+3]}
	}
	return &image{w: w, h: h, pixels: pixels}, nil
}

// backgroundColor samples the four corner pixels; the most frequent RGB
// wins, with alpha from the first matching corner (spec.md §4.6 step 2).
func backgroundColor(im *image) rgba {
	corners := []rgba{
		im.at(0, 0),
		im.at(im.w-1, 0),
		im.at(0, im.h-1),
		im.at(im.w-1, im.h-1),
	}
	counts := make(map[[3]uint8]int)
	first := make(map[[3]uint8]rgba)
	for _, c := range corners {
		key := [3]uint8{c.r, c.g, c.b}
		counts[key]++
		if _, ok := first[key]; !ok {
			first[key] = c
		}
	}
	var best [3]uint8
	bestCount := -1
	for k, n := range counts {
		if n > bestCount {
			best = k
			bestCount = n
		}
	}
	return first[best]
}

func isBackground(p, bg rgba) bool {
	if p.a < 10 {
		return true
	}
	return absDiff(p.r, bg.r) <= bgTolerance &&
		absDiff(p.g, bg.g) <= bgTolerance &&
		absDiff(p.b, bg.b) <= bgTolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// gapLines returns the indices along a dimension (rows for horizontal gaps,
// cols for vertical) that qualify as gap lines per spec.md §4.6 step 4.
func gapLines(im *image, bg rgba, horizontal bool) []int {
	var length, sampleDim int
	if horizontal {
		length = im.h
		sampleDim = im.w
	} else {
		length = im.w
		sampleDim = im.h
	}

	step := sampleDim / sampleTarget
	if step < 1 {
		step = 1
	}

	var gaps []int
	for i := 0; i < length; i++ {
		samples := 0
		nonBG := 0
		for s := 0; s < sampleDim; s += step {
			var p rgba
			if horizontal {
				p = im.at(s, i)
			} else {
				p = im.at(i, s)
			}
			samples++
			if !isBackground(p, bg) {
				nonBG++
			}
		}
		threshold := int(math.Floor(float64(samples) * (1 - gapThreshold)))
		if nonBG <= threshold {
			gaps = append(gaps, i)
		}
	}
	return gaps
}

// groupGaps collapses consecutive gap indices within groupGapSlack of each
// other into one group, representing a single padding band.
func groupGaps(gaps []int) [][]int {
	if len(gaps) == 0 {
		return nil
	}
	var groups [][]int
	current := []int{gaps[0]}
	for _, g := range gaps[1:] {
		if g-current[len(current)-1] <= groupGapSlack {
			current = append(current, g)
		} else {
			groups = append(groups, current)
			current = []int{g}
		}
	}
	groups = append(groups, current)
	return groups
}

// marginsAndInterior splits the full gap-group list along one axis into a
// leading margin (group touching index 0), a trailing margin (group
// touching the last index), and the interior groups that remain — the real
// inter-frame padding bands (spec.md §4.6 steps 6-7).
func marginsAndInterior(groups [][]int, length int) (leadingLen, trailingLen int, interior [][]int) {
	interior = groups
	if len(interior) > 0 && interior[0][0] == 0 {
		leadingLen = len(interior[0])
		interior = interior[1:]
	}
	if len(interior) > 0 && interior[len(interior)-1][len(interior[len(interior)-1])-1] == length-1 {
		trailingLen = len(interior[len(interior)-1])
		interior = interior[:len(interior)-1]
	}
	return
}

// Detect runs grid auto-detection on the raster at path.
func Detect(path string) (Result, error) {
	im, err := loadImage(path)
	if err != nil {
		return Result{}, err
	}

	bg := backgroundColor(im)

	hGroupsFull := groupGaps(gapLines(im, bg, true))
	vGroupsFull := groupGaps(gapLines(im, bg, false))

	offY, trailY, hInterior := marginsAndInterior(hGroupsFull, im.h)
	offX, trailX, vInterior := marginsAndInterior(vGroupsFull, im.w)

	rows := len(hInterior) + 1
	cols := len(vInterior) + 1

	result := Result{Width: im.w, Height: im.h, Method: "gap_analysis"}

	if rows > 1 && cols > 1 {
		if padX, padY, fw, fh, ok := refine(hInterior, vInterior, offX, offY, trailX, trailY, im.w, im.h, rows, cols); ok {
			result.Detected = true
			result.Grid = profile.Grid{Rows: rows, Cols: cols, OffsetX: offX, OffsetY: offY, PaddingX: padX, PaddingY: padY}
			result.FrameWidth = fw
			result.FrameHeight = fh
			result.Confidence = confidence(rows, cols, im.w, im.h, true, true)
			return result, nil
		}
	}

	// Fallback: try a small preferred list of evenly-dividing (r,c)
	// combinations (spec.md §4.6 step 8).
	fr, fc, ok := commonGridFallback(im.w, im.h)
	if ok {
		result.Detected = true
		result.Method = "common_grid"
		result.Grid = profile.Grid{Rows: fr, Cols: fc}
		result.FrameWidth = im.w / fc
		result.FrameHeight = im.h / fr
		result.Confidence = confidence(fr, fc, im.w, im.h, len(hInterior) > 0, len(vInterior) > 0)
		return result, nil
	}

	result.Notes = "no grid detected"
	return result, nil
}

// refine computes padding and per-frame size from the interior gap groups
// within the trimmed rectangle (spec.md §4.6 step 7). offX/offY are the
// already-known leading margins; trailX/trailY the trailing ones. Returns
// ok=false if the segment geometry is inconsistent (a non-positive segment,
// or a segment count that doesn't match rows/cols).
func refine(hInterior, vInterior [][]int, offX, offY, trailX, trailY, width, height, rows, cols int) (padX, padY, fw, fh int, ok bool) {
	trimmedH := height - offY - trailY
	trimmedW := width - offX - trailX
	if trimmedH <= 0 || trimmedW <= 0 {
		return
	}

	rowSegments := segmentsFromGroups(hInterior, offY, trimmedH)
	colSegments := segmentsFromGroups(vInterior, offX, trimmedW)

	if len(rowSegments) != rows || len(colSegments) != cols {
		return
	}
	for _, s := range rowSegments {
		if s <= 0 {
			return
		}
	}
	for _, s := range colSegments {
		if s <= 0 {
			return
		}
	}

	padY = medianInt(groupWidths(hInterior))
	padX = medianInt(groupWidths(vInterior))
	fh = medianInt(rowSegments)
	fw = medianInt(colSegments)

	return padX, padY, fw, fh, true
}

func groupWidths(groups [][]int) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

// segmentsFromGroups derives frame lengths between full-width gap-group
// spans (not single boundary points), over a trimmed dimension of size
// total whose origin is offset pixels into the original axis.
func segmentsFromGroups(groups [][]int, offset, total int) []int {
	if len(groups) == 0 {
		return []int{total}
	}
	var out []int
	prev := 0
	for _, g := range groups {
		start := g[0] - offset
		end := g[len(g)-1] - offset
		out = append(out, start-prev)
		prev = end + 1
	}
	out = append(out, total-prev)
	return out
}

func medianInt(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	return sorted[len(sorted)/2]
}

var preferredCounts = map[int]float64{4: 1.1, 6: 1.1, 8: 1.15, 12: 1.1, 16: 1.15}

// commonGridFallback tries a small preferred list of (r,c) combinations
// that divide the image dimensions evenly, scored by closeness to square
// cells with a bonus for common frame counts (spec.md §4.6 step 8).
func commonGridFallback(w, h int) (rows, cols int, ok bool) {
	bestScore := -1.0
	for _, r := range []int{1, 2, 3, 4, 5, 6, 8} {
		if h%r != 0 {
			continue
		}
		for _, c := range []int{1, 2, 3, 4, 5, 6, 8} {
			if w%c != 0 {
				continue
			}
			if r == 1 && c == 1 {
				continue
			}
			fw := w / c
			fh := h / r
			squareness := 1.0 - math.Abs(float64(fw-fh))/math.Max(float64(fw), float64(fh))
			score := squareness
			if bonus, found := preferredCounts[r*c]; found {
				score *= bonus
			}
			if score > bestScore {
				bestScore = score
				rows, cols = r, c
				ok = true
			}
		}
	}
	return
}

func confidence(rows, cols, w, h int, hGapsFound, vGapsFound bool) float64 {
	c := 0.5
	if hGapsFound {
		c += 0.2
	}
	if vGapsFound {
		c += 0.2
	}
	if cols > 0 && w%cols == 0 {
		c += 0.05
	}
	if rows > 0 && h%rows == 0 {
		c += 0.05
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// statKey identifies a cacheable detection: resolved path, file size, mtime.
func statKey(path string) (cacheKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cacheKey{}, err
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return cacheKey{}, err
	}
	if real, evalErr := filepath.EvalSymlinks(resolved); evalErr == nil {
		resolved = real
	}
	return cacheKey{path: resolved, size: info.Size(), mtime: info.ModTime().UnixNano()}, nil
}
