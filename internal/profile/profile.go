// Package profile defines the conversion profile data model: five
// sub-records (grid, timing, anchor, background, export) plus the table of
// known named profiles.
package profile

import (
	"fmt"

	"ss-anim/internal/config"
)

// Grid describes the sprite sheet's cell layout.
type Grid struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	OffsetX  int `json:"offset_x"`
	OffsetY  int `json:"offset_y"`
	PaddingX int `json:"padding_x"`
	PaddingY int `json:"padding_y"`
}

// Timing describes frame playback.
type Timing struct {
	FPS      int    `json:"fps"`
	LoopMode string `json:"loop_mode"` // loop, pingpong
}

// Anchor describes per-frame anchor-point extraction.
type Anchor struct {
	Mode           string `json:"mode"` // foot, center, none
	AlphaThreshold int    `json:"alpha_threshold"`
	XBand          int    `json:"x_band"`
}

// Background describes background handling.
type Background struct {
	Mode      string `json:"mode"` // transparent, keep, color
	R         int    `json:"r"`
	G         int    `json:"g"`
	B         int    `json:"b"`
	Tolerance int    `json:"tolerance"`
}

// Export toggles which artifacts the external tool emits.
type Export struct {
	Aseprite     bool `json:"aseprite"`
	SheetPNGJSON bool `json:"sheet_png_json"`
	GIFPreview   bool `json:"gif_preview"`
	HQPreview    bool `json:"hq_gif"`
	TrimPaddingX int  `json:"trim_padding_x"`
	TrimPaddingY int  `json:"trim_padding_y"`
	Trim         bool `json:"trim"`
}

// ConversionProfile is the merged set of sub-records used to build one job.
type ConversionProfile struct {
	Grid       Grid       `json:"grid"`
	Timing     Timing     `json:"timing"`
	Anchor     Anchor     `json:"anchor"`
	Background Background `json:"background"`
	Export     Export     `json:"export"`
}

// Clone returns a deep copy; all fields are value types so a plain struct
// copy already suffices, but Clone is the explicit spelling callers use so
// mutation of the copy never touches the shared table.
func (p ConversionProfile) Clone() ConversionProfile {
	return p
}

var knownProfiles = map[string]ConversionProfile{
	"game_default": {
		Grid:       Grid{Rows: 1, Cols: 1},
		Timing:     Timing{FPS: 12, LoopMode: "loop"},
		Anchor:     Anchor{Mode: "foot", AlphaThreshold: 10, XBand: 3},
		Background: Background{Mode: "transparent", Tolerance: 10},
		Export:     Export{Aseprite: true, SheetPNGJSON: true, GIFPreview: true, HQPreview: true},
	},
	"unity_default": {
		Grid:       Grid{Rows: 1, Cols: 1},
		Timing:     Timing{FPS: 24, LoopMode: "loop"},
		Anchor:     Anchor{Mode: "center", AlphaThreshold: 10, XBand: 3},
		Background: Background{Mode: "transparent", Tolerance: 10},
		Export:     Export{Aseprite: false, SheetPNGJSON: true, GIFPreview: true, HQPreview: false},
	},
	"godot_default": {
		Grid:       Grid{Rows: 1, Cols: 1},
		Timing:     Timing{FPS: 24, LoopMode: "loop"},
		Anchor:     Anchor{Mode: "center", AlphaThreshold: 10, XBand: 3},
		Background: Background{Mode: "transparent", Tolerance: 10},
		Export:     Export{Aseprite: false, SheetPNGJSON: true, GIFPreview: false, HQPreview: false},
	},
	"preview_only": {
		Grid:       Grid{Rows: 1, Cols: 1},
		Timing:     Timing{FPS: 12, LoopMode: "loop"},
		Anchor:     Anchor{Mode: "none", AlphaThreshold: 10, XBand: 3},
		Background: Background{Mode: "keep", Tolerance: 10},
		Export:     Export{Aseprite: false, SheetPNGJSON: false, GIFPreview: true, HQPreview: true},
	},
}

// Get returns a deep copy of the named profile. Unknown names fall back to
// game_default per spec.md §4.2.
func Get(name string) ConversionProfile {
	if p, ok := knownProfiles[name]; ok {
		return p.Clone()
	}
	return knownProfiles["game_default"].Clone()
}

// Validate normalises the enum fields in place (lower-casing) and rejects
// unknown values; constructed profiles must pass this before use.
func (p *ConversionProfile) Validate() error {
	if p.Grid.Rows < 1 || p.Grid.Cols < 1 {
		return fmt.Errorf("grid: rows and cols must be >= 1")
	}
	if p.Grid.OffsetX < 0 || p.Grid.OffsetY < 0 || p.Grid.PaddingX < 0 || p.Grid.PaddingY < 0 {
		return fmt.Errorf("grid: offsets and padding must be >= 0")
	}
	if p.Timing.FPS < 1 || p.Timing.FPS > 120 {
		return fmt.Errorf("timing: fps must be in 1..120")
	}
	loopMode, err := config.NormalizeEnum("timing.loop_mode", p.Timing.LoopMode, "loop", "pingpong")
	if err != nil {
		return err
	}
	p.Timing.LoopMode = loopMode

	anchorMode, err := config.NormalizeEnum("anchor.mode", p.Anchor.Mode, "foot", "center", "none")
	if err != nil {
		return err
	}
	p.Anchor.Mode = anchorMode
	if p.Anchor.AlphaThreshold < 0 || p.Anchor.AlphaThreshold > 255 {
		return fmt.Errorf("anchor: alpha_threshold must be in 0..255")
	}

	bgMode, err := config.NormalizeEnum("background.mode", p.Background.Mode, "transparent", "keep", "color")
	if err != nil {
		return err
	}
	p.Background.Mode = bgMode

	return nil
}
