// Package job defines the job request shapes and the sidecar-override /
// tool-argument precedence merge described in spec.md §3/§4.3.
package job

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"ss-anim/internal/errs"
	"ss-anim/internal/profile"
)

// Spec is one conversion request: an input path plus everything needed to
// resolve the effective profile for it.
type Spec struct {
	InputPath       string
	OutDir          string
	JobName         string
	ProcessedDir    string // override; "" means settings default
	FailedDir       string // override; "" means settings default
	ProfileName     string
	AutoDetectGrid  bool
	GridOverride    *profile.Grid
	TimingOverride  *profile.Timing
	AnchorOverride  *profile.Anchor
	BGOverride      *profile.Background
	ExportOverride  *profile.Export
}

// NameOrDefault returns JobName, defaulting to the input's stem.
func (s Spec) NameOrDefault() string {
	if s.JobName != "" {
		return s.JobName
	}
	base := filepath.Base(s.InputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Override is the sidecar (<stem>.job.json) shape: the same five
// sub-records as ConversionProfile, each optional as a whole, plus an
// optional auto_detect_grid switch. A sub-record that is present replaces
// the profile's one entirely, so a field left out of it takes its zero
// value, not the profile's value.
type Override struct {
	Grid           *profile.Grid       `json:"grid,omitempty"`
	Timing         *profile.Timing     `json:"timing,omitempty"`
	Anchor         *profile.Anchor     `json:"anchor,omitempty"`
	Background     *profile.Background `json:"background,omitempty"`
	Export         *profile.Export     `json:"export,omitempty"`
	AutoDetectGrid *bool               `json:"auto_detect_grid,omitempty"`
}

// SidecarPath returns the `<stem>.job.json` path adjacent to inputPath.
func SidecarPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+".job.json")
}

// LoadSidecarOverride reads the sidecar for inputPath if present. A missing
// sidecar is not an error: (nil, nil) is returned. A present-but-malformed
// sidecar returns a JOB_OVERRIDE_INVALID JobError (invariant vi: the job
// must fail fast without spawning the external tool).
func LoadSidecarOverride(inputPath string) (*Override, error) {
	path := SidecarPath(inputPath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.JobOverrideInvalid, err.Error()).WithField("path", path)
	}

	var ov Override
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, errs.New(errs.JobOverrideInvalid, "malformed sidecar: "+err.Error()).WithField("path", path)
	}
	return &ov, nil
}

// ApplySidecarOverride returns a copy of base in which every sub-record
// present in ov is substituted whole; fields inside a sub-record are not
// merged one by one. base itself is left untouched.
func ApplySidecarOverride(base profile.ConversionProfile, ov *Override) profile.ConversionProfile {
	p := base.Clone()
	if ov == nil {
		return p
	}
	if ov.Grid != nil {
		p.Grid = *ov.Grid
	}
	if ov.Timing != nil {
		p.Timing = *ov.Timing
	}
	if ov.Anchor != nil {
		p.Anchor = *ov.Anchor
	}
	if ov.Background != nil {
		p.Background = *ov.Background
	}
	if ov.Export != nil {
		p.Export = *ov.Export
	}
	return p
}

// ToolOverrides are the tool-call arguments that always win (highest
// precedence per spec.md §3).
type ToolOverrides struct {
	GridRows *int
	GridCols *int
	FPS      *int
}

// ApplyToolOverrides sets only the provided fields on a copy of base.
func ApplyToolOverrides(base profile.ConversionProfile, tov ToolOverrides) profile.ConversionProfile {
	p := base.Clone()
	if tov.GridRows != nil {
		p.Grid.Rows = *tov.GridRows
	}
	if tov.GridCols != nil {
		p.Grid.Cols = *tov.GridCols
	}
	if tov.FPS != nil {
		p.Timing.FPS = *tov.FPS
	}
	return p
}

// Resolve builds the effective profile for a job: defaults/named profile,
// then sidecar override, then tool-call arguments — precedence order from
// spec.md §3 (tool-call args > sidecar > profile > built-in defaults). The
// merged profile is validated before being returned: spec.md §3 ("All
// string enums accept any casing on input and are normalised to lowercase;
// invalid values cause construction to fail") applies to the resolved
// profile, not just the named base profile, since a sidecar or tool-call
// override can introduce an out-of-range or misspelled enum value.
func Resolve(profileName string, sidecar *Override, tov ToolOverrides) (profile.ConversionProfile, error) {
	base := profile.Get(profileName)
	withSidecar := ApplySidecarOverride(base, sidecar)
	resolved := ApplyToolOverrides(withSidecar, tov)
	if err := resolved.Validate(); err != nil {
		return resolved, errs.New(errs.JobOverrideInvalid, err.Error())
	}
	return resolved, nil
}
