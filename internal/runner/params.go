package runner

import (
	"fmt"

	"ss-anim/internal/profile"
)

const batchFlag = "--batch"

// boolStr renders a bool the way the external script's parameter parser
// expects: the literal strings "true"/"false" (spec.md §4.7 step 3).
func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func scriptParam(key, value string) []string {
	return []string{"--script-param", key + "=" + value}
}

// buildArgs assembles the flat --script-param key=value argument list the
// external script expects: input path, output directory, job name, then
// every sub-record of the merged profile in turn, followed by --script and
// the script path. The executable path and batch flag are prepended by the
// caller, which also knows where the executable lives.
func buildArgs(inputPath, outDir, jobName, scriptPath string, p profile.ConversionProfile) []string {
	args := []string{batchFlag}

	add := func(key, value string) {
		args = append(args, scriptParam(key, value)...)
	}

	add("input", inputPath)
	add("output_dir", outDir)
	add("job_name", jobName)

	add("grid_rows", fmt.Sprint(p.Grid.Rows))
	add("grid_cols", fmt.Sprint(p.Grid.Cols))
	add("grid_offset_x", fmt.Sprint(p.Grid.OffsetX))
	add("grid_offset_y", fmt.Sprint(p.Grid.OffsetY))
	add("grid_padding_x", fmt.Sprint(p.Grid.PaddingX))
	add("grid_padding_y", fmt.Sprint(p.Grid.PaddingY))

	add("fps", fmt.Sprint(p.Timing.FPS))
	add("loop_mode", p.Timing.LoopMode)

	add("anchor_mode", p.Anchor.Mode)
	add("anchor_alpha_threshold", fmt.Sprint(p.Anchor.AlphaThreshold))
	add("anchor_x_band", fmt.Sprint(p.Anchor.XBand))

	add("bg_mode", p.Background.Mode)
	add("bg_r", fmt.Sprint(p.Background.R))
	add("bg_g", fmt.Sprint(p.Background.G))
	add("bg_b", fmt.Sprint(p.Background.B))
	add("bg_tolerance", fmt.Sprint(p.Background.Tolerance))

	add("export_aseprite", boolStr(p.Export.Aseprite))
	add("export_sheet_png_json", boolStr(p.Export.SheetPNGJSON))
	add("export_gif_preview", boolStr(p.Export.GIFPreview))
	add("export_hq_gif", boolStr(p.Export.HQPreview))
	add("export_trim", boolStr(p.Export.Trim))
	add("export_trim_padding_x", fmt.Sprint(p.Export.TrimPaddingX))
	add("export_trim_padding_y", fmt.Sprint(p.Export.TrimPaddingY))

	args = append(args, "--script", scriptPath)
	return args
}
