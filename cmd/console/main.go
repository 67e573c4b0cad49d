// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sim_sentuator/internal/app"
	"github.com/relabs-tech/sim_sentuator/internal/config"
)

func main() {
	logger, err := app.NewLogger("console", false, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "console: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting sim-sentuator (local console)")

	configPath := "sim_config.txt"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunMockConsole(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Fatalw("fatal", "error", err)
	}
}
