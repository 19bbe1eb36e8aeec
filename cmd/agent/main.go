// Package main provides the entry point for the pathledger agent: it
// watches a directory tree, records the latest event per path in the
// local ledger, and submits each event to the remote ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pathledger/pathledger/internal/config"
	"github.com/pathledger/pathledger/internal/ledger"
	"github.com/pathledger/pathledger/internal/logger"
	"github.com/pathledger/pathledger/internal/rpc"
	"github.com/pathledger/pathledger/internal/submit"
	"github.com/pathledger/pathledger/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	log.Info("starting pathledger agent",
		"watch_root", cfg.Watch.Root,
		"agent_id", cfg.Remote.AgentID,
		"environment", cfg.App.Environment)

	storage, err := ledger.OpenBadger(cfg.Ledger.DataPath, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error("failed to close ledger database", "error", err)
		}
	}()

	led := ledger.New(storage, log.Logger)

	client, err := rpc.New(rpc.Config{
		Endpoint: cfg.Remote.Endpoint,
		AgentID:  cfg.Remote.AgentID,
		Timeout:  cfg.Remote.Timeout,
		ClockRPS: cfg.Remote.ClockRPS,
	}, log.Logger)
	if err != nil {
		return err
	}

	w, err := watcher.New(log.Logger, watcher.Options{
		EventTypes:     cfg.Watch.EventTypes,
		IgnorePatterns: cfg.Watch.IgnorePatterns,
		IgnoreHidden:   cfg.Watch.IgnoreHidden,
	})
	if err != nil {
		return err
	}

	if err := w.Watch(cfg.Watch.Root); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("watcher stopped", "error", err)
		}
	}()

	// Watch errors are not fatal to the pipeline; surface them in the log.
	go func() {
		for err := range w.Errors() {
			log.Error("watch error", "error", err)
		}
	}()

	submitter := submit.New(client, led, log.Logger)
	runErr := submitter.Run(ctx, w.Events())

	log.Info("shutting down agent")
	if err := w.Stop(); err != nil {
		log.Error("failed to stop watcher", "error", err)
	}

	return runErr
}
