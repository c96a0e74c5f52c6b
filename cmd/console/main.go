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

	"github.com/relabs-tech/haptic_retargeting/internal/app"
)

func main() {
	groupsPath := flag.String("groups", "./actuator_groups.yaml", "path to the actuator groups file")
	flag.Parse()

	log.Println("starting haptic retargeting (mock console)")

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunMockConsole(ctx, *groupsPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
