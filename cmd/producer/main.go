package main

import (
	"context"
	"flag"
	"log"
	"os"
	ossignal "os/signal"
	"time"

	"github.com/relabs-tech/haptic_retargeting/internal/app"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

func main() {
	configPath := flag.String("config", "./haptic_config.txt", "path to the settings file")
	interval := flag.Duration("interval", 20*time.Millisecond, "publish interval")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunMockProducer(ctx, *interval); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
