package dispatch

// Test calls go straight to the handler methods as plain functions rather
// than round-tripping through an in-memory MCP client/transport pair: every
// handler here ignores its *mcp.CallToolRequest argument, so the extra
// harness would only exercise the SDK's own plumbing, not ours.

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"ss-anim/internal/config"
)

func testConfig(ws string) *config.Config {
	cfg := &config.Config{}
	cfg.Paths.DefaultWorkspace = ws
	cfg.Tools.AsepriteExe = "ss-anim-nonexistent-binary-xyz"
	cfg.Tools.ScriptDir = filepath.Join(ws, "scripts")
	cfg.Tools.FFmpegExe = "ss-anim-nonexistent-ffmpeg-xyz"
	cfg.Tools.GifOptimizerExe = "ss-anim-nonexistent-gifsicle-xyz"
	cfg.Watch.ValidExtensions = []string{".png"}
	cfg.Watch.PollIntervalMS = 50
	cfg.Watch.StableIntervalMS = 10
	cfg.Watch.StableCheckCount = 1
	cfg.Watch.StableTimeoutS = 1
	cfg.Watch.PollStableTimeout = 1
	cfg.Profiles.Default = "game_default"
	return cfg
}

func newTestServer(ws string) *Server {
	return New(testConfig(ws), nil, nil, nil)
}

func writeSheet(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not-a-real-png"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatusHandlerReportsWorkspaceAndToolState(t *testing.T) {
	ws := t.TempDir()
	s := newTestServer(ws)

	_, out, err := s.statusHandler(context.Background(), nil, StatusInput{})
	if err != nil {
		t.Fatalf("statusHandler returned error: %v", err)
	}
	if out.ErrorCode != "" {
		t.Fatalf("unexpected error_code: %s (%s)", out.ErrorCode, out.Message)
	}
	if out.WorkspaceRoot == "" {
		t.Fatal("expected a resolved workspace root")
	}
	if out.ToolAvailable {
		t.Fatal("expected the nonexistent tool binary to be unavailable")
	}
}

func TestDoctorHandlerFlagsMissingScriptsAndTool(t *testing.T) {
	ws := t.TempDir()
	s := newTestServer(ws)

	_, out, err := s.doctorHandler(context.Background(), nil, DoctorInput{})
	if err != nil {
		t.Fatalf("doctorHandler returned error: %v", err)
	}
	if out.ToolAvailable {
		t.Fatal("expected tool_available=false")
	}
	if out.ConvertScriptOK {
		t.Fatal("expected convert_script_ok=false, no scripts dir was created")
	}
	if out.CleanupScriptOK {
		t.Fatal("expected cleanup_script_ok=false, no scripts dir was created")
	}
	if !out.WorkspaceDirsOK {
		t.Fatalf("expected workspace dirs to exist and be writable, findings=%v", out.Findings)
	}
	if len(out.Findings) == 0 {
		t.Fatal("expected at least one finding")
	}
}

func TestDryRunDetectRejectsPathOutsideWorkspace(t *testing.T) {
	ws := t.TempDir()
	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "sheet.png")
	writeSheet(t, outsideFile)

	s := newTestServer(ws)

	_, out, err := s.dryRunDetectHandler(context.Background(), nil, DryRunDetectInput{InputPath: outsideFile})
	if err != nil {
		t.Fatalf("dryRunDetectHandler returned error: %v", err)
	}
	if out.ErrorCode == "" {
		t.Fatalf("expected a containment error_code, got success=%v", out)
	}
}

func TestDryRunDetectAllowsExternalPathWhenPermitted(t *testing.T) {
	ws := t.TempDir()
	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "sheet.png")
	// A decodable image, so that detection itself has nothing to reject.
	f, err := os.Create(outsideFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s := newTestServer(ws)
	allow := true

	_, out, err := s.dryRunDetectHandler(context.Background(), nil, DryRunDetectInput{
		InputPath:          outsideFile,
		AllowExternalPaths: &allow,
	})
	if err != nil {
		t.Fatalf("dryRunDetectHandler returned error: %v", err)
	}
	if out.ErrorCode != "" {
		t.Fatalf("expected no containment error, got %s: %s", out.ErrorCode, out.Message)
	}
}

func TestConvertFileFailsClosedWithoutTool(t *testing.T) {
	ws := t.TempDir()
	input := filepath.Join(ws, "inbox", "walk.png")
	writeSheet(t, input)

	s := newTestServer(ws)

	_, out, err := s.convertFileHandler(context.Background(), nil, ConvertFileInput{InputPath: input})
	if err != nil {
		t.Fatalf("convertFileHandler returned error: %v", err)
	}
	if out.Result.Success {
		t.Fatal("expected conversion to fail without a real external tool")
	}
	if out.ErrorCode == "" {
		t.Fatal("expected a classified error_code on failure")
	}
}

func TestConvertInboxProcessesEachFileInInbox(t *testing.T) {
	ws := t.TempDir()
	writeSheet(t, filepath.Join(ws, "inbox", "a.png"))
	writeSheet(t, filepath.Join(ws, "inbox", "b.png"))

	s := newTestServer(ws)

	_, out, err := s.convertInboxHandler(context.Background(), nil, ConvertInboxInput{})
	if err != nil {
		t.Fatalf("convertInboxHandler returned error: %v", err)
	}
	if out.Processed != 2 {
		t.Fatalf("processed = %d, want 2", out.Processed)
	}
	for _, r := range out.Results {
		if r.Success {
			t.Fatalf("expected every result to fail without a real external tool, got success for %s", r.InputPath)
		}
	}
}

func TestWatchStartAndStopReportsHealth(t *testing.T) {
	ws := t.TempDir()
	s := newTestServer(ws)

	_, startOut, err := s.watchStartHandler(context.Background(), nil, WatchStartInput{})
	if err != nil {
		t.Fatalf("watchStartHandler returned error: %v", err)
	}
	if startOut.ErrorCode != "" {
		t.Fatalf("unexpected error_code: %s (%s)", startOut.ErrorCode, startOut.Message)
	}
	if startOut.Status != "started" {
		t.Fatalf("status = %q, want started", startOut.Status)
	}

	_, stopOut, err := s.watchStopHandler(context.Background(), nil, WatchStopInput{})
	if err != nil {
		t.Fatalf("watchStopHandler returned error: %v", err)
	}
	if stopOut.Status != "stopped" {
		t.Fatalf("status = %q, want stopped", stopOut.Status)
	}
}

func TestCleanupBackgroundFailsClosedWithoutScript(t *testing.T) {
	ws := t.TempDir()
	input := filepath.Join(ws, "inbox", "walk.png")
	writeSheet(t, input)

	s := newTestServer(ws)

	_, out, err := s.cleanupBackgroundHandler(context.Background(), nil, CleanupBackgroundInput{InputPath: input})
	if err != nil {
		t.Fatalf("cleanupBackgroundHandler returned error: %v", err)
	}
	if out.Success {
		t.Fatal("expected cleanup to fail, no cleanup.lua script exists")
	}
	if out.ErrorCode != "CLEANUP_SCRIPT_NOT_FOUND" {
		t.Fatalf("error_code = %q, want CLEANUP_SCRIPT_NOT_FOUND", out.ErrorCode)
	}
}

func TestClassifyMapsErrorKinds(t *testing.T) {
	ws := t.TempDir()
	s := newTestServer(ws)

	_, out, err := s.dryRunDetectHandler(context.Background(), nil, DryRunDetectInput{InputPath: filepath.Join(t.TempDir(), "x.png")})
	if err != nil {
		t.Fatalf("dryRunDetectHandler returned error: %v", err)
	}
	if out.ErrorCode != "PATH_OUTSIDE_WORKSPACE" {
		t.Fatalf("error_code = %q, want PATH_OUTSIDE_WORKSPACE", out.ErrorCode)
	}
}
