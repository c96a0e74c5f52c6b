// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package command

import "time"

// Pipeline chains a Mapping into a Pattern. A pipeline belongs to exactly
// one actuator group and must be updated once per control cycle.
type Pipeline struct {
	Mapping *Mapping
	Pattern *Pattern
}

// NewPipeline wires the two stages together.
func NewPipeline(m *Mapping, p *Pattern) *Pipeline {
	return &Pipeline{Mapping: m, Pattern: p}
}

// Update propagates a raw value through both stages.
func (c *Pipeline) Update(value float64, now time.Time) {
	c.Mapping.Update(value)
	c.Pattern.Update(c.Mapping.Command(), now)
}

// Command returns the output of the last stage.
func (c *Pipeline) Command() float64 {
	return c.Pattern.Command()
}

// Compute is Update followed by Command.
func (c *Pipeline) Compute(value float64, now time.Time) float64 {
	c.Update(value, now)
	return c.Command()
}
