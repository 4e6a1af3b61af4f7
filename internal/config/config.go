package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultConfigPath = "~/.config/ss-anim/config.json"

// Config holds process-wide, user-editable defaults. Per-workspace Settings
// are derived from this plus environment overrides and workspace overrides.
type Config struct {
	Logging  Logging  `json:"logging"`
	Paths    Paths    `json:"paths"`
	Tools    Tools    `json:"tools"`
	Watch    Watch    `json:"watch"`
	Profiles Profiles `json:"profiles"`
}

// Logging controls log verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // text, json
	FileOutput bool   `json:"file_output"`
	LogDir     string `json:"log_dir"`
}

// Paths holds fallback filesystem locations.
type Paths struct {
	DefaultWorkspace string `json:"default_workspace"`
	DatabasePath     string `json:"database_path"`
}

// Tools names the external executables the runner and post-processor drive.
type Tools struct {
	AsepriteExe          string   `json:"aseprite_exe"`
	AsepriteSearchPaths  []string `json:"aseprite_search_paths"`
	ScriptDir            string   `json:"script_dir"`
	FFmpegExe            string   `json:"ffmpeg_exe"`
	GifOptimizerExe      string   `json:"gif_optimizer_exe"`
}

// Watch controls the default folder-watcher cadence.
type Watch struct {
	PollIntervalMS    int      `json:"poll_interval_ms"`
	StableIntervalMS  int      `json:"stable_interval_ms"`
	StableCheckCount  int      `json:"stable_check_count"`
	StableTimeoutS    int      `json:"stable_timeout_s"`
	PollStableTimeout int      `json:"poll_stable_timeout_s"`
	ValidExtensions   []string `json:"valid_extensions"`
}

// Profiles names the built-in conversion profile to fall back to.
type Profiles struct {
	Default string `json:"default"`
}

// Load reads configuration from disk, falling back to built-in defaults.
// SS_ANIM_CONFIG overrides the path; ~ is expanded the same way for both.
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("SS_ANIM_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	expanded, err := expandUser(configPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", expanded, err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     "./logs",
		},
		Paths: Paths{
			DefaultWorkspace: ".",
			DatabasePath:     filepath.Join(os.TempDir(), "ss-anim.db"),
		},
		Tools: Tools{
			AsepriteExe: "aseprite",
			AsepriteSearchPaths: []string{
				"/usr/bin/aseprite",
				"/usr/local/bin/aseprite",
				"/Applications/Aseprite.app/Contents/MacOS/aseprite",
			},
			ScriptDir:       "./scripts",
			FFmpegExe:       "ffmpeg",
			GifOptimizerExe: "gifsicle",
		},
		Watch: Watch{
			PollIntervalMS:    1000,
			StableIntervalMS:  300,
			StableCheckCount:  3,
			StableTimeoutS:    30,
			PollStableTimeout: 5,
			ValidExtensions:   []string{".png", ".jpg", ".jpeg"},
		},
		Profiles: Profiles{
			Default: "game_default",
		},
	}
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}

// ExpandUser exposes the ~ expansion helper to other packages (path policy,
// settings resolution) so there is exactly one implementation.
func ExpandUser(path string) (string, error) {
	return expandUser(path)
}

// FindExecutable mirrors the teacher's search-then-PATH-fallback pattern:
// try each candidate path in order, then fall back to the bare name (the
// caller resolves that against PATH via exec.LookPath).
func FindExecutable(configured string, searchPaths []string, bareName string) string {
	if configured != "" && configured != bareName {
		return configured
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return bareName
}

// NormalizeEnum lower-cases s and checks it against allowed; returns an
// error naming the field when s (case-insensitively) isn't a known value.
func NormalizeEnum(field, s string, allowed ...string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if lower == a {
			return lower, nil
		}
	}
	return "", fmt.Errorf("%s: invalid value %q, must be one of %v", field, s, allowed)
}
