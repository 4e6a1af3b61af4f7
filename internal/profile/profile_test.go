package profile

import "testing"

func TestGetUnknownFallsBackToGameDefault(t *testing.T) {
	p := Get("does_not_exist")
	want := Get("game_default")
	if p.Timing.FPS != want.Timing.FPS || p.Anchor.Mode != want.Anchor.Mode {
		t.Errorf("unknown profile did not fall back to game_default: %+v", p)
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	a := Get("game_default")
	a.Timing.FPS = 999
	b := Get("game_default")
	if b.Timing.FPS == 999 {
		t.Fatal("mutating one copy affected the shared profile table")
	}
}

func TestValidateNormalisesCasing(t *testing.T) {
	p := Get("game_default")
	p.Timing.LoopMode = "PINGPONG"
	p.Anchor.Mode = "Center"
	p.Background.Mode = "TRANSPARENT"
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Timing.LoopMode != "pingpong" || p.Anchor.Mode != "center" || p.Background.Mode != "transparent" {
		t.Errorf("enums not normalised: %+v", p)
	}
}

func TestValidateRejectsInvalidEnum(t *testing.T) {
	p := Get("game_default")
	p.Anchor.Mode = "bogus"
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for invalid anchor mode")
	}
}
