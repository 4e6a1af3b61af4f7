package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ss-anim/internal/config"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	ws := t.TempDir()
	cfg := &config.Config{}
	cfg.Tools.AsepriteExe = "ss-anim-nonexistent-binary-xyz"
	cfg.Tools.ScriptDir = filepath.Join(ws, "scripts")
	cfg.Watch.ValidExtensions = []string{".png"}
	cfg.Watch.PollIntervalMS = 50
	cfg.Watch.StableIntervalMS = 10
	cfg.Watch.StableCheckCount = 1
	cfg.Watch.StableTimeoutS = 1
	cfg.Watch.PollStableTimeout = 1
	cfg.Profiles.Default = "game_default"

	return NewServer(":0", cfg, ws, nil, nil), ws
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestHandleStatusReportsWorkspacePaths(t *testing.T) {
	s, ws := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var payload statusPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.WorkspaceRoot != ws {
		t.Fatalf("workspace_root = %q, want %q", payload.WorkspaceRoot, ws)
	}
	if payload.DefaultProfile != "game_default" {
		t.Fatalf("default_profile = %q, want game_default", payload.DefaultProfile)
	}
	if payload.WatcherRunning {
		t.Fatal("expected watcher not running before watch_start")
	}
}
