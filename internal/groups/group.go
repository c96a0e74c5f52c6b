// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package groups models actuator groups: a set of signal axes whose combined
// magnitude drives a set of actuators through a command pipeline.
package groups

import (
	"math"
	"time"

	"github.com/relabs-tech/haptic_retargeting/internal/command"
)

// ReservedName cannot be used as a group name; RPC callers use it to address
// every group at once.
const ReservedName = "all"

// Group is one actuator group. It is owned by the control loop goroutine.
type Group struct {
	Name         string
	JointAxes    []string
	VelocityAxes []string
	Actuators    []string

	// Channels indexes the sample vector; a force port spans three channels.
	Channels []int
	// VelocityIdx indexes the velocity vector.
	VelocityIdx []int

	Pipeline *command.Pipeline
	Offset   float64

	lastEmitted float64
}

// Thresholds returns the raw-value range of the group's mapping.
func (g *Group) Thresholds() (min, max float64) {
	return g.Pipeline.Mapping.Thresholds()
}

// SetThresholds replaces both thresholds. min must stay below max.
func (g *Group) SetThresholds(min, max float64) error {
	return g.Pipeline.Mapping.SetThresholds(min, max)
}

// Norm is the Euclidean norm of the group's channels in values.
func (g *Group) Norm(values []float64) float64 {
	var sum float64
	for _, idx := range g.Channels {
		sum += values[idx] * values[idx]
	}
	return math.Sqrt(sum)
}

// Value is the norm shifted by the calibration offset.
func (g *Group) Value(values []float64) float64 {
	return g.Norm(values) + g.Offset
}

// RemoveOffset calibrates the group so that the current reading maps onto the
// min threshold.
func (g *Group) RemoveOffset(values []float64) {
	min, _ := g.Thresholds()
	g.Offset = min - g.Norm(values)
}

// InContact reports whether the calibrated value exceeds the min threshold.
func (g *Group) InContact(values []float64) bool {
	min, _ := g.Thresholds()
	return g.Value(values) > min
}

// Gated reports whether any of the group's joints moves faster than max.
func (g *Group) Gated(velocities []float64, max float64) bool {
	for _, idx := range g.VelocityIdx {
		if math.Abs(velocities[idx]) > max {
			return true
		}
	}
	return false
}

// Command advances the pipeline with the group's current value.
func (g *Group) Command(values []float64, now time.Time) float64 {
	return g.Pipeline.Compute(g.Value(values), now)
}

// LastEmitted is the last intensity sent to the group's actuators.
func (g *Group) LastEmitted() float64 { return g.lastEmitted }

// MarkEmitted records the last intensity sent.
func (g *Group) MarkEmitted(v float64) { g.lastEmitted = v }
