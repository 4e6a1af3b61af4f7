// Package postprocess implements the HQ-preview post-processing step
// (spec.md §4.11): crop frames out of a packed sheet using its atlas JSON,
// then drive ffmpeg in two passes to produce a palette-optimised animated
// preview that atomically replaces the job's default preview.
package postprocess

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Rect mirrors one atlas frame's pixel rectangle on the packed sheet.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Size is a plain width/height pair, used for sourceSize/spriteSourceSize.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// SpriteSourceRect is spriteSourceSize: where the trimmed frame rect sits
// within the original, untrimmed frame canvas.
type SpriteSourceRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Frame is one atlas entry (spec.md §4.11 step 1-2): the cropped rect on
// the sheet, plus the optional untrimmed-canvas recovery fields.
type Frame struct {
	Name             string            `json:"-"`
	Frame            Rect              `json:"frame"`
	SourceSize       *Size             `json:"sourceSize,omitempty"`
	SpriteSourceSize *SpriteSourceRect `json:"spriteSourceSize,omitempty"`
}

// rawAtlas covers both shapes the atlas JSON may take: a top-level
// `frames` array (each entry possibly carrying its own "filename"), or a
// `frames` object keyed by frame name.
type rawAtlas struct {
	Frames json.RawMessage `json:"frames"`
}

type namedFrame struct {
	Filename         string            `json:"filename"`
	Frame            Rect              `json:"frame"`
	SourceSize       *Size             `json:"sourceSize,omitempty"`
	SpriteSourceSize *SpriteSourceRect `json:"spriteSourceSize,omitempty"`
}

// ParseFrames parses an atlas JSON document's frames into ordered Frames
// (spec.md §4.11 step 1): an array is kept in its given order; a keyed map
// is sorted by key. Fails with a clear error if `frames` is absent.
func ParseFrames(data []byte) ([]Frame, error) {
	var raw rawAtlas
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse atlas json: %w", err)
	}
	if len(raw.Frames) == 0 {
		return nil, fmt.Errorf("atlas json has no \"frames\" field")
	}

	var asArray []namedFrame
	if err := json.Unmarshal(raw.Frames, &asArray); err == nil {
		frames := make([]Frame, len(asArray))
		for i, nf := range asArray {
			frames[i] = Frame{
				Name:             nf.Filename,
				Frame:            nf.Frame,
				SourceSize:       nf.SourceSize,
				SpriteSourceSize: nf.SpriteSourceSize,
			}
		}
		return frames, nil
	}

	var asMap map[string]namedFrame
	if err := json.Unmarshal(raw.Frames, &asMap); err != nil {
		return nil, fmt.Errorf("atlas json \"frames\" is neither an array nor an object: %w", err)
	}

	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	frames := make([]Frame, len(keys))
	for i, k := range keys {
		nf := asMap[k]
		frames[i] = Frame{
			Name:             k,
			Frame:            nf.Frame,
			SourceSize:       nf.SourceSize,
			SpriteSourceSize: nf.SpriteSourceSize,
		}
	}
	return frames, nil
}
