// Package server provides a minimal HTTP companion for ss-anim's `serve`
// mode: the dispatcher's stdio MCP tool surface is the system's actual
// external interface, but a long-running serve process still needs
// something an orchestrator's liveness probe and a human operator can hit
// without speaking MCP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ss-anim/internal/config"
	"ss-anim/internal/storage"
	"ss-anim/internal/workspace"
)

// Server serves /healthz and /status over HTTP alongside the dispatcher.
type Server struct {
	addr          string
	cfg           *config.Config
	store         *storage.Store
	workspaceRoot string
	log           *slog.Logger
	server        *http.Server
}

// NewServer builds a companion Server for workspaceRoot. store may be nil
// when no history ledger is configured.
func NewServer(addr string, cfg *config.Config, workspaceRoot string, store *storage.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr:          addr,
		cfg:           cfg,
		store:         store,
		workspaceRoot: workspaceRoot,
		log:           log,
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	r := mux.NewRouter()
	s.setupRoutes(r)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down http companion")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.log.Info("http companion starting", "addr", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// statusPayload carries dispatch.StatusOutput's workspace paths and its
// queue and watcher counters, flattened into top-level fields and without
// the tool-availability fields, without importing internal/dispatch, which
// would pull the MCP SDK into the HTTP surface for no reason.
type statusPayload struct {
	WorkspaceRoot  string `json:"workspace_root"`
	InboxDir       string `json:"inbox_dir"`
	OutDir         string `json:"out_dir"`
	ProcessedDir   string `json:"processed_dir"`
	FailedDir      string `json:"failed_dir"`
	DefaultProfile string `json:"default_profile"`
	QueueTotal     int    `json:"queue_total"`
	QueueSuccess   int    `json:"queue_success"`
	QueueFailure   int    `json:"queue_failure"`
	QueueCurrent   string `json:"queue_current,omitempty"`
	WatcherRunning bool   `json:"watcher_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	wc, err := workspace.GetOrCreate(s.cfg, s.workspaceRoot, nil, s.store, s.log)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := wc.Queue.StatsSnapshot()
	health := wc.WatchHealth()
	payload := statusPayload{
		WorkspaceRoot:  wc.Settings.WorkspaceRoot,
		InboxDir:       wc.Settings.InboxDir,
		OutDir:         wc.Settings.OutDir,
		ProcessedDir:   wc.Settings.ProcessedDir,
		FailedDir:      wc.Settings.FailedDir,
		DefaultProfile: wc.Settings.DefaultProfile,
		QueueTotal:     stats.Total,
		QueueSuccess:   stats.Success,
		QueueFailure:   stats.Failure,
		QueueCurrent:   stats.Current,
		WatcherRunning: health.Running,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
