// Package dispatch implements the MCP tool dispatcher (C10, spec.md §4.10,
// §6): one stdio server exposing watch_start, watch_stop, convert_inbox,
// convert_file, status, dry_run_detect, doctor, and cleanup_background,
// each resolving its workspace_root argument to a per-workspace context
// before running. Grounded on knative-func/pkg/mcp's mcp.NewServer +
// mcp.AddTool typed-struct idiom.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ss-anim/internal/config"
	"ss-anim/internal/errs"
	"ss-anim/internal/logging"
	"ss-anim/internal/pathpolicy"
	"ss-anim/internal/runner"
	"ss-anim/internal/storage"
	"ss-anim/internal/workspace"
)

const (
	serverName    = "ss-anim"
	serverTitle   = "Sprite Sheet Animation Converter"
	serverVersion = "0.1.0"
)

// Server wraps the MCP implementation and the shared dependencies every
// tool handler resolves a WorkspaceContext through.
type Server struct {
	cfg    *config.Config
	store  *storage.Store
	hq     runner.HQProcessor
	logger *slog.Logger
	impl   *mcp.Server
}

// New builds a Server with all eight tools registered; hq and store may be
// nil (HQ preview and history recording are then skipped/no-ops, matching
// their callee's own nil-tolerant behaviour).
func New(cfg *config.Config, store *storage.Store, hq runner.HQProcessor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, store: store, hq: hq, logger: logger}

	impl := mcp.NewServer(
		&mcp.Implementation{Name: serverName, Title: serverTitle, Version: serverVersion},
		&mcp.ServerOptions{HasTools: true},
	)

	mcp.AddTool(impl, watchStartTool, s.watchStartHandler)
	mcp.AddTool(impl, watchStopTool, s.watchStopHandler)
	mcp.AddTool(impl, convertInboxTool, s.convertInboxHandler)
	mcp.AddTool(impl, convertFileTool, s.convertFileHandler)
	mcp.AddTool(impl, statusTool, s.statusHandler)
	mcp.AddTool(impl, dryRunDetectTool, s.dryRunDetectHandler)
	mcp.AddTool(impl, doctorTool, s.doctorHandler)
	mcp.AddTool(impl, cleanupBackgroundTool, s.cleanupBackgroundHandler)

	s.impl = impl
	return s
}

// Start runs the server over stdio until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.impl.Run(ctx, &mcp.StdioTransport{})
}

// resolveContext looks up or creates the WorkspaceContext for
// workspaceRoot (spec.md §4.10 step 1).
func (s *Server) resolveContext(workspaceRoot string) (*workspace.WorkspaceContext, error) {
	return workspace.GetOrCreate(s.cfg, workspaceRoot, s.hq, s.store, s.logger)
}

// logged wraps one tool call with the structured start/end log spec.md
// §4.10 step 4 calls for, and classifies any error fn returns into the
// closed error-code set (step 3) before handing it back to errorCode for
// the caller's output envelope.
func (s *Server) logged(ctx context.Context, tool, workspaceRoot string, errorCode *string, fn func() error) {
	correlationID := uuid.NewString()
	started := time.Now()
	logging.LogToolCallStart(s.logger, tool, correlationID, workspaceRoot)

	err := fn()

	if err != nil && *errorCode == "" {
		*errorCode = string(classify(err))
	}
	logging.LogToolCallEnd(s.logger, tool, correlationID, time.Since(started), *errorCode, err)
}

// classify maps an unclassified Go error onto the closed error-code set
// (spec.md §4.10 step 3): a workspace-containment violation is
// PATH_OUTSIDE_WORKSPACE, a missing external tool is ASEPRITE_ERROR,
// anything else is an unexpected exception.
func classify(err error) errs.Code {
	var outside *pathpolicy.ErrOutsideWorkspace
	if errors.As(err, &outside) {
		return errs.PathOutsideWorkspace
	}
	var jobErr *errs.JobError
	if errors.As(err, &jobErr) {
		return jobErr.Code
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errs.AsepriteError
	}
	return errs.UnexpectedException
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func ptr[T any](v T) *T { return &v }
