package runner

import "encoding/json"

// metaDoc is the subset of the external script's meta.json this system
// inspects; unknown fields are preserved on disk but never read here
// (spec.md §6, "Metadata document").
type metaDoc struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	FrameCount   int    `json:"frame_count"`
	FPS          int    `json:"fps"`
	Grid         struct {
		Rows int `json:"rows"`
		Cols int `json:"cols"`
	} `json:"grid"`
	Quality struct {
		AnchorJitterRMSPx float64 `json:"anchor_jitter_rms_px"`
		BaselineVarPx     float64 `json:"baseline_var_px"`
		BBoxVar           float64 `json:"bbox_var"`
	} `json:"quality"`
	Anchor struct {
		Mode            string          `json:"mode"`
		TargetX         int             `json:"target_x"`
		TargetY         int             `json:"target_y"`
		PerFrameOffsets json.RawMessage `json:"per_frame_offsets"`
	} `json:"anchor"`
}

func parseMeta(data []byte) (metaDoc, error) {
	var m metaDoc
	err := json.Unmarshal(data, &m)
	return m, err
}

func (m metaDoc) failed() bool {
	return m.Status == "failed" || m.Status == "error"
}
