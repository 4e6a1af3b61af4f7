// Package logging configures the process-wide slog.Logger and supplies the
// dispatcher's tool-call and tool-detection logging helpers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ss-anim/internal/config"
)

// Setup configures the process-wide slog.Logger from cfg.Logging: level,
// text/json format, and optional daily-rotated file output alongside
// stdout. It sets the result as slog's default logger and returns it.
func Setup(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Logging.Level)

	writers := []io.Writer{os.Stdout}

	if cfg.Logging.FileOutput {
		if err := os.MkdirAll(cfg.Logging.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}

		logFile := filepath.Join(cfg.Logging.LogDir, fmt.Sprintf("ss-anim-%s.log",
			time.Now().Format("2006-01-02")))

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		writers = append(writers, file)

		currentLogPath := filepath.Join(cfg.Logging.LogDir, "ss-anim-current.log")
		os.Remove(currentLogPath)
		if err := os.Symlink(filepath.Base(logFile), currentLogPath); err != nil {
			// Symlinks aren't available on every filesystem; the dated file
			// above still captures everything, so this isn't fatal.
		}
	}

	multiWriter := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("ss-anim logging initialized",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"file_output", cfg.Logging.FileOutput,
		"log_dir", cfg.Logging.LogDir,
	)

	return logger, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogToolCallStart logs the beginning of one dispatcher tool invocation
// (spec.md §4.10 step 4), tagged with a correlation ID so the matching end
// line can be found in a concurrent log stream.
func LogToolCallStart(logger *slog.Logger, tool, correlationID string, workspaceRoot string) {
	logger.Info("tool call started",
		"tool", tool,
		"correlation_id", correlationID,
		"workspace_root", workspaceRoot,
	)
}

// LogToolCallEnd logs the outcome of one dispatcher tool invocation with
// its elapsed duration, correlated to LogToolCallStart by correlationID.
func LogToolCallEnd(logger *slog.Logger, tool, correlationID string, elapsed time.Duration, errorCode string, err error) {
	attrs := []any{
		"tool", tool,
		"correlation_id", correlationID,
		"elapsed_ms", elapsed.Milliseconds(),
		"elapsed_human", elapsed.String(),
	}
	if err != nil {
		logger.Error("tool call failed", append(attrs, "error_code", errorCode, "error", err.Error())...)
		return
	}
	logger.Info("tool call completed", attrs...)
}

// LogToolStatus logs the outcome of a single external-tool detection check
// (doctor, spec.md §4.7), used for aseprite, ffmpeg, and the GIF optimizer.
func LogToolStatus(logger *slog.Logger, tool string, available bool, version, path string, err error) {
	if available {
		logger.Debug("tool detected",
			"tool", tool,
			"version", version,
			"path", path,
		)
	} else {
		logger.Debug("tool not available",
			"tool", tool,
			"error", err,
		)
	}
}
