package main

import (
	"context"
	"flag"
	"log"
	"os"
	ossignal "os/signal"

	"github.com/relabs-tech/haptic_retargeting/internal/app"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

func main() {
	configPath := flag.String("config", "./haptic_config.txt", "path to the settings file")
	flag.Parse()

	log.Println("starting haptic console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunConsoleMQTT(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
