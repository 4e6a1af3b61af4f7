package runner

import (
	"encoding/json"
	"os"
	"path/filepath"

	"ss-anim/internal/profile"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// validateOutput implements the output validator (spec.md §4.8): given the
// output directory and the export profile, report which declared artifacts
// are missing and whether meta.json parses as JSON. metaPath defaults to
// <outDir>/meta.json when empty.
func validateOutput(outDir string, export profile.Export, metaPath string) (missing []string, jsonErr string) {
	if metaPath == "" {
		metaPath = filepath.Join(outDir, "meta.json")
	}

	if export.Aseprite && !fileExists(filepath.Join(outDir, "anim.aseprite")) {
		missing = append(missing, "anim.aseprite")
	}
	if export.SheetPNGJSON {
		if !fileExists(filepath.Join(outDir, "anim_sheet.png")) {
			missing = append(missing, "anim_sheet.png")
		}
		if !fileExists(filepath.Join(outDir, "anim_sheet.json")) {
			missing = append(missing, "anim_sheet.json")
		}
	}
	if export.GIFPreview && !fileExists(filepath.Join(outDir, "anim_preview.gif")) {
		missing = append(missing, "anim_preview.gif")
	}

	if !fileExists(metaPath) {
		missing = append(missing, filepath.Base(metaPath))
		return missing, ""
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return missing, err.Error()
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		jsonErr = err.Error()
	}
	return missing, jsonErr
}
