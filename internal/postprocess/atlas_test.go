package postprocess

import "testing"

func TestParseFramesArray(t *testing.T) {
	data := []byte(`{
		"frames": [
			{"filename": "frame_0000", "frame": {"x": 0, "y": 0, "w": 2, "h": 2}},
			{"filename": "frame_0001", "frame": {"x": 2, "y": 0, "w": 2, "h": 2}}
		]
	}`)

	frames, err := ParseFrames(data)
	if err != nil {
		t.Fatalf("ParseFrames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].Name != "frame_0000" || frames[1].Name != "frame_0001" {
		t.Fatalf("unexpected frame order/names: %+v", frames)
	}
	if frames[1].Frame.X != 2 {
		t.Fatalf("frames[1].Frame.X = %d, want 2", frames[1].Frame.X)
	}
}

func TestParseFramesKeyedMapSortedByKey(t *testing.T) {
	data := []byte(`{
		"frames": {
			"b": {"frame": {"x": 2, "y": 0, "w": 2, "h": 2}},
			"a": {"frame": {"x": 0, "y": 0, "w": 2, "h": 2}}
		}
	}`)

	frames, err := ParseFrames(data)
	if err != nil {
		t.Fatalf("ParseFrames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].Name != "a" || frames[1].Name != "b" {
		t.Fatalf("expected sort by key a, b; got %s, %s", frames[0].Name, frames[1].Name)
	}
}

func TestParseFramesRecoversUntrimmedCanvas(t *testing.T) {
	data := []byte(`{
		"frames": [
			{
				"filename": "frame_0000",
				"frame": {"x": 0, "y": 0, "w": 2, "h": 2},
				"sourceSize": {"w": 4, "h": 4},
				"spriteSourceSize": {"x": 1, "y": 1, "w": 2, "h": 2}
			}
		]
	}`)

	frames, err := ParseFrames(data)
	if err != nil {
		t.Fatalf("ParseFrames: %v", err)
	}
	if frames[0].SourceSize == nil || frames[0].SourceSize.W != 4 {
		t.Fatalf("expected sourceSize to be parsed, got %+v", frames[0].SourceSize)
	}
	if frames[0].SpriteSourceSize == nil || frames[0].SpriteSourceSize.X != 1 {
		t.Fatalf("expected spriteSourceSize to be parsed, got %+v", frames[0].SpriteSourceSize)
	}
}

func TestParseFramesFailsWithoutFramesField(t *testing.T) {
	_, err := ParseFrames([]byte(`{"meta": {}}`))
	if err == nil {
		t.Fatal("expected an error when \"frames\" is absent")
	}
}
