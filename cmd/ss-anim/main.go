// Command ss-anim converts spritesheets into game-ready animations by
// driving an external sprite-editing tool, and exposes that conversion
// pipeline both as an MCP tool dispatcher and as a scriptable CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ss-anim/internal/cli"
	"ss-anim/internal/config"
	"ss-anim/internal/logging"
	"ss-anim/internal/postprocess"
	"ss-anim/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ss-anim:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	var store *storage.Store
	if cfg.Paths.DatabasePath != "" {
		store, err = storage.New(cfg.Paths.DatabasePath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
	}

	hq := postprocess.New(cfg, logger)

	root := cli.NewRoot(cfg, logger, store, hq)
	rootCmd := cli.NewRootCmd(root)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}
