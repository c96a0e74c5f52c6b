// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/retargeting"
	"github.com/relabs-tech/haptic_retargeting/internal/signal"
)

// RunMockConsole runs the control loop on the mock source and prints the
// commands instead of sending them. No broker or hardware is needed.
func RunMockConsole(ctx context.Context, groupsFile string) error {
	gf, err := config.LoadGroups(groupsFile)
	if err != nil {
		return err
	}
	ctrl, err := newMockController(config.Default(), gf, os.Stdout)
	if err != nil {
		return err
	}
	return ctrl.Run(ctx)
}

func newMockController(cfg *config.Config, gf *config.GroupsFile, out io.Writer) (*retargeting.Controller, error) {
	reg, err := groups.NewRegistry(gf, groups.ScalarWidth)
	if err != nil {
		return nil, err
	}
	printer := actuator.NewRecorder(func(c actuator.Command) {
		fmt.Fprintf(out, "%-32s value=%5.0f\n", c.Name, c.Value)
	})

	opts := retargeting.OptionsFromConfig(cfg)
	opts.UseVelocity = false
	return retargeting.New(opts, retargeting.Deps{
		Groups: reg,
		Joints: signal.NewMock(mockAmplitude),
		Sink:   printer,
	})
}
