// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/relabs-tech/haptic_retargeting/internal/app"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/logging"
)

func main() {
	configPath := flag.String("config", "./haptic_config.txt", "path to the settings file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	closer := logging.Setup(logging.Options{
		File:       cfg.LogFile,
		Debug:      cfg.LogDebug,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer closer.Close()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunRetargeting(ctx); err != nil {
		log.Printf("fatal: %v", err)
		closer.Close()
		os.Exit(1)
	}
}
