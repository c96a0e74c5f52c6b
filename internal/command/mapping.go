// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package command turns a group's scalar signal into a haptic command.
//
// A Pipeline has two stages: a Mapping that normalizes the raw value into
// [0,1], and a Pattern that shapes the normalized value over time. Both
// stages are closed sets of variants selected by a kind tag.
package command

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidArgument is returned for malformed stage definitions.
var ErrInvalidArgument = errors.New("invalid argument")

// MappingKind selects the normalization rule.
type MappingKind int

const (
	Linear MappingKind = iota
	Step
)

func (k MappingKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Step:
		return "steps"
	default:
		return fmt.Sprintf("MappingKind(%d)", int(k))
	}
}

// Mapping converts a raw value into a normalized command.
type Mapping struct {
	kind     MappingKind
	min, max float64

	// Step only: normalized thresholds (ascending) and the command for each
	// bucket. commands[0] is the bucket below thresholds[0].
	thresholds []float64
	commands   []float64

	last float64
}

// NewLinear returns a mapping that rescales [min,max] onto [0,1], clamped.
func NewLinear(min, max float64) (*Mapping, error) {
	if err := checkThresholds(min, max); err != nil {
		return nil, err
	}
	return &Mapping{kind: Linear, min: min, max: max}, nil
}

// NewStep returns a step mapping over [min,max]. Buckets must be defined
// with MakeSteps or MakeStepsExplicit before use; until then every value
// maps to 0.
func NewStep(min, max float64) (*Mapping, error) {
	if err := checkThresholds(min, max); err != nil {
		return nil, err
	}
	return &Mapping{kind: Step, min: min, max: max, commands: []float64{0}}, nil
}

func checkThresholds(min, max float64) error {
	if min >= max {
		return fmt.Errorf("%w: min threshold %g must be below max threshold %g", ErrInvalidArgument, min, max)
	}
	return nil
}

// MakeSteps builds n equal-width buckets over [0,1]. Bucket i (1-indexed)
// starts at i/n and commands i/n; values below 1/n command 0.
func (m *Mapping) MakeSteps(n int) error {
	if m.kind != Step {
		return fmt.Errorf("%w: steps on a %s mapping", ErrInvalidArgument, m.kind)
	}
	if n < 1 {
		return fmt.Errorf("%w: steps number must be at least 1, got %d", ErrInvalidArgument, n)
	}

	m.thresholds = make([]float64, n)
	m.commands = make([]float64, n+1)
	for i := 1; i <= n; i++ {
		m.thresholds[i-1] = float64(i) / float64(n)
		m.commands[i] = float64(i) / float64(n)
	}
	return nil
}

// MakeStepsExplicit sets the buckets directly. thresholds are in normalized
// space and must be ascending; commands needs one more entry than
// thresholds.
func (m *Mapping) MakeStepsExplicit(thresholds, commands []float64) error {
	if m.kind != Step {
		return fmt.Errorf("%w: steps on a %s mapping", ErrInvalidArgument, m.kind)
	}
	if len(commands) != len(thresholds)+1 {
		return fmt.Errorf("%w: %d commands for %d thresholds, want %d",
			ErrInvalidArgument, len(commands), len(thresholds), len(thresholds)+1)
	}
	if !sort.Float64sAreSorted(thresholds) {
		return fmt.Errorf("%w: step thresholds must be sorted ascending", ErrInvalidArgument)
	}

	m.thresholds = append([]float64(nil), thresholds...)
	m.commands = append([]float64(nil), commands...)
	return nil
}

// Kind returns the variant tag.
func (m *Mapping) Kind() MappingKind { return m.kind }

// Thresholds returns the raw-value range mapped onto [0,1].
func (m *Mapping) Thresholds() (min, max float64) { return m.min, m.max }

// SetThresholds changes the raw-value range. Step buckets live in
// normalized space and are unaffected.
func (m *Mapping) SetThresholds(min, max float64) error {
	if err := checkThresholds(min, max); err != nil {
		return err
	}
	m.min, m.max = min, max
	return nil
}

// Update stores the latest raw value.
func (m *Mapping) Update(value float64) { m.last = value }

// Command returns the normalized command for the last value.
func (m *Mapping) Command() float64 {
	norm := m.normalize()
	if m.kind == Linear {
		return norm
	}

	for i := len(m.thresholds) - 1; i >= 0; i-- {
		if norm >= m.thresholds[i] {
			return m.commands[i+1]
		}
	}
	return m.commands[0]
}

func (m *Mapping) normalize() float64 {
	norm := (m.last - m.min) / (m.max - m.min)
	switch {
	case !(norm > 0): // also NaN
		return 0
	case norm > 1:
		return 1
	}
	return norm
}
