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
	defer logging.Setup(logging.Options{
		File:       cfg.LogFile,
		Debug:      cfg.LogDebug,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}).Close()

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunWeightDisplay(ctx); err != nil {
		log.Printf("fatal: %v", err)
	}
}
