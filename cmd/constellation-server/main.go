// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/constellation-live/constellation/lib/broadcast"
	"github.com/constellation-live/constellation/lib/clock"
	"github.com/constellation-live/constellation/lib/config"
	"github.com/constellation-live/constellation/lib/process"
	"github.com/constellation-live/constellation/lib/state"
	"github.com/constellation-live/constellation/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var listenAddr string
	var debug bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("constellation-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: CONSTELLATION_CONFIG or built-in defaults)")
	flagSet.StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("constellation-server")
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := broadcast.New(logger)

	storeOpts := cfg.StoreOptions()
	storeOpts.Clock = clock.Real()
	storeOpts.Logger = logger
	storeOpts.Notify = hub.Broadcast
	store := state.New(storeOpts)

	server := &Server{
		logger: logger,
		store:  store,
		hub:    hub,
	}

	go store.Run(ctx)

	tailer := newHistoryTailer(cfg.Paths.History, store, logger)
	go tailer.run(ctx)

	if cfg.Paths.Projects != "" {
		go watchProjects(ctx, cfg.Paths.Projects, store, logger)
	}

	if cfg.Server.FeedListen != "" {
		heartbeat, err := cfg.FeedHeartbeat()
		if err != nil {
			return err
		}
		feedListener, err := net.Listen("tcp", cfg.Server.FeedListen)
		if err != nil {
			return err
		}
		feed := &feedServer{
			logger:    logger,
			store:     store,
			hub:       hub,
			clock:     clock.Real(),
			heartbeat: heartbeat,
		}
		go feed.serve(ctx, feedListener)
		logger.Info("feed listening", "address", feedListener.Addr().String())
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening",
		"address", cfg.Server.Listen,
		"history", cfg.Paths.History,
	)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
