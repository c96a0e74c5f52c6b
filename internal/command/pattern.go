// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package command

import (
	"fmt"
	"sort"
	"time"
)

// DefaultPulseDuration is how long each pulse stays on.
const DefaultPulseDuration = 100 * time.Millisecond

// PatternKind selects the temporal shaping rule.
type PatternKind int

const (
	Continuous PatternKind = iota
	Pulse
)

func (k PatternKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Pulse:
		return "pulse"
	default:
		return fmt.Sprintf("PatternKind(%d)", int(k))
	}
}

// noLevel marks a pulse pattern whose input is below every level.
const noLevel = -1

// Pattern shapes a normalized command over time.
type Pattern struct {
	kind PatternKind

	// Pulse configuration
	thresholds      []float64
	periods         []time.Duration
	onDuration      time.Duration
	customActuation float64

	// Pulse state
	level      int
	cycleStart time.Time
	on         bool

	last float64
}

// NewContinuous returns a passthrough pattern.
func NewContinuous() *Pattern {
	return &Pattern{kind: Continuous, level: noLevel}
}

// NewPulse returns a pulse pattern with explicit levels. thresholds are
// ascending normalized values; periods[i] is the pulse period while the
// input sits at level i. A customActuation > 0 replaces the input value
// while a pulse is on. onDuration of 0 selects DefaultPulseDuration.
func NewPulse(thresholds []float64, periods []time.Duration, onDuration time.Duration, customActuation float64) (*Pattern, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: pulse pattern needs at least one level", ErrInvalidArgument)
	}
	if len(thresholds) != len(periods) {
		return nil, fmt.Errorf("%w: %d pulse thresholds for %d periods", ErrInvalidArgument, len(thresholds), len(periods))
	}
	if !sort.Float64sAreSorted(thresholds) {
		return nil, fmt.Errorf("%w: pulse thresholds must be sorted ascending", ErrInvalidArgument)
	}
	if onDuration == 0 {
		onDuration = DefaultPulseDuration
	}
	if onDuration < 0 {
		return nil, fmt.Errorf("%w: negative pulse duration %v", ErrInvalidArgument, onDuration)
	}
	for i, p := range periods {
		if p <= 0 {
			return nil, fmt.Errorf("%w: pulse period %d must be positive, got %v", ErrInvalidArgument, i, p)
		}
		if onDuration > p {
			return nil, fmt.Errorf("%w: pulse duration %v exceeds period %v of level %d", ErrInvalidArgument, onDuration, p, i)
		}
	}

	return &Pattern{
		kind:            Pulse,
		thresholds:      append([]float64(nil), thresholds...),
		periods:         append([]time.Duration(nil), periods...),
		onDuration:      onDuration,
		customActuation: customActuation,
		level:           noLevel,
	}, nil
}

// NewPulseLevels spreads levels evenly over (0,1]. Level i (1-indexed)
// starts at (i-1)/levels and pulses at i*maxFrequency/levels Hz, so the
// top level pulses at maxFrequency.
func NewPulseLevels(levels int, maxFrequency float64, onDuration time.Duration, customActuation float64) (*Pattern, error) {
	if levels < 1 {
		return nil, fmt.Errorf("%w: pulse levels must be at least 1, got %d", ErrInvalidArgument, levels)
	}
	if maxFrequency <= 0 {
		return nil, fmt.Errorf("%w: pulse max frequency must be positive, got %g", ErrInvalidArgument, maxFrequency)
	}

	thresholds := make([]float64, levels)
	periods := make([]time.Duration, levels)
	step := maxFrequency / float64(levels)
	for i := 0; i < levels; i++ {
		thresholds[i] = float64(i) / float64(levels)
		periods[i] = FrequencyToPeriod(step * float64(i+1))
	}
	return NewPulse(thresholds, periods, onDuration, customActuation)
}

// FrequencyToPeriod converts a pulse frequency in Hz into its period.
func FrequencyToPeriod(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// Kind returns the variant tag.
func (p *Pattern) Kind() PatternKind { return p.kind }

// Periods returns the configured pulse periods, one per level.
func (p *Pattern) Periods() []time.Duration { return append([]time.Duration(nil), p.periods...) }

// Level returns the active pulse level, or -1 when none is active.
func (p *Pattern) Level() int { return p.level }

// Update feeds a normalized value observed at now.
func (p *Pattern) Update(value float64, now time.Time) {
	p.last = value
	if p.kind != Pulse {
		return
	}

	current := p.levelFor(value)
	if current != p.level {
		p.cycleStart = now
	} else if current != noLevel && now.Sub(p.cycleStart) >= p.periods[current] {
		p.cycleStart = now
	}
	p.level = current

	p.on = current != noLevel && now.Sub(p.cycleStart) < p.onDuration
}

// levelFor scans from the top level down and returns the highest level
// whose threshold the value reaches.
func (p *Pattern) levelFor(value float64) int {
	if value <= 0 {
		return noLevel
	}
	for i := len(p.thresholds) - 1; i >= 0; i-- {
		if value >= p.thresholds[i] {
			return i
		}
	}
	return noLevel
}

// Command returns the shaped output without advancing state.
func (p *Pattern) Command() float64 {
	if p.kind == Continuous {
		return p.last
	}
	if p.level == noLevel || !p.on {
		return 0
	}
	if p.customActuation > 0 {
		return p.customActuation
	}
	return p.last
}
