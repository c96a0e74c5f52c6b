// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package groups

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/haptic_retargeting/internal/command"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

// Accepted map_function and time_pattern values.
const (
	MapLinear         = "linear"
	MapSteps          = "steps"
	PatternContinuous = "continuous"
	PatternPulse      = "pulse"
)

// Channel widths of a sample vector entry.
const (
	ScalarWidth = 1 // joint torque or motor current
	ForceWidth  = 3 // force port x, y, z
)

// ErrInvalidGroup is returned for malformed group definitions.
var ErrInvalidGroup = errors.New("invalid actuator group")

// Factory turns group specs into groups and lays out the sample and velocity
// vectors they index. Axes get indices in first-seen order across all built
// groups.
type Factory struct {
	width int

	axes    []string
	axisIdx map[string]int

	velocityAxes []string
	velocityIdx  map[string]int
}

// NewFactory returns a factory for sample vectors whose axes span width
// channels each.
func NewFactory(width int) *Factory {
	return &Factory{
		width:       width,
		axisIdx:     make(map[string]int),
		velocityIdx: make(map[string]int),
	}
}

func invalid(name, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidGroup, name, fmt.Sprintf(format, args...))
}

// Build validates spec and returns the group. A failed build leaves the
// vector layout untouched.
func (f *Factory) Build(spec config.GroupSpec) (*Group, error) {
	name := spec.Name
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidGroup)
	}
	if name == ReservedName {
		return nil, invalid(name, "%q is a reserved group name", ReservedName)
	}
	if len(spec.JointAxes) == 0 {
		return nil, invalid(name, "missing joint_axes")
	}
	if len(spec.Actuators) == 0 {
		return nil, invalid(name, "empty actuators list")
	}

	mapping, err := parseMapping(spec)
	if err != nil {
		return nil, err
	}
	pattern, err := parsePattern(spec)
	if err != nil {
		return nil, err
	}

	velocityAxes := spec.VelocityAxes
	if len(velocityAxes) == 0 && f.width == ScalarWidth {
		velocityAxes = spec.JointAxes
	}

	g := &Group{
		Name:         name,
		JointAxes:    append([]string(nil), spec.JointAxes...),
		VelocityAxes: append([]string(nil), velocityAxes...),
		Actuators:    append([]string(nil), spec.Actuators...),
		Pipeline:     command.NewPipeline(mapping, pattern),
	}
	for _, axis := range g.JointAxes {
		base := f.axis(axis) * f.width
		for c := 0; c < f.width; c++ {
			g.Channels = append(g.Channels, base+c)
		}
	}
	for _, axis := range g.VelocityAxes {
		g.VelocityIdx = append(g.VelocityIdx, f.velocity(axis))
	}

	min, max := mapping.Thresholds()
	log.Printf("groups: added %s | axes %v | %s/%s | thresholds [%g, %g] | %d actuators",
		name, g.JointAxes, mapping.Kind(), pattern.Kind(), min, max, len(g.Actuators))
	return g, nil
}

func (f *Factory) axis(name string) int {
	if idx, ok := f.axisIdx[name]; ok {
		return idx
	}
	idx := len(f.axes)
	f.axes = append(f.axes, name)
	f.axisIdx[name] = idx
	return idx
}

func (f *Factory) velocity(name string) int {
	if idx, ok := f.velocityIdx[name]; ok {
		return idx
	}
	idx := len(f.velocityAxes)
	f.velocityAxes = append(f.velocityAxes, name)
	f.velocityIdx[name] = idx
	return idx
}

// Axes returns the sample vector axes in index order.
func (f *Factory) Axes() []string { return append([]string(nil), f.axes...) }

// VelocityAxes returns the velocity vector axes in index order.
func (f *Factory) VelocityAxes() []string { return append([]string(nil), f.velocityAxes...) }

// SampleSize is the length of the sample vector.
func (f *Factory) SampleSize() int { return len(f.axes) * f.width }

func parseMapping(spec config.GroupSpec) (*command.Mapping, error) {
	name := spec.Name
	if spec.MinThreshold == nil {
		return nil, invalid(name, "missing a valid min_threshold")
	}
	if spec.MaxThreshold == nil {
		return nil, invalid(name, "missing a valid max_threshold")
	}
	min, max := *spec.MinThreshold, *spec.MaxThreshold
	if min >= max {
		return nil, invalid(name, "min_threshold %g must be below max_threshold %g", min, max)
	}

	switch spec.MapFunction {
	case MapLinear:
		return command.NewLinear(min, max)

	case MapSteps:
		m, err := command.NewStep(min, max)
		if err != nil {
			return nil, err
		}
		explicit := spec.StepsThresholds != nil || spec.StepsCommands != nil
		switch {
		case spec.StepsNumber != nil && explicit:
			return nil, invalid(name, "provide steps_number or steps_thresholds/steps_commands, not both")
		case spec.StepsNumber != nil:
			if err := m.MakeSteps(*spec.StepsNumber); err != nil {
				return nil, invalid(name, "%v", err)
			}
		case spec.StepsThresholds != nil && spec.StepsCommands != nil:
			if err := m.MakeStepsExplicit(spec.StepsThresholds, spec.StepsCommands); err != nil {
				return nil, invalid(name, "%v", err)
			}
		default:
			return nil, invalid(name, "steps map function needs steps_number or both steps_thresholds and steps_commands")
		}
		return m, nil

	case "":
		return nil, invalid(name, "missing map_function")
	default:
		return nil, invalid(name, "map_function must be %q or %q, found %q", MapLinear, MapSteps, spec.MapFunction)
	}
}

func parsePattern(spec config.GroupSpec) (*command.Pattern, error) {
	name := spec.Name
	switch spec.TimePattern {
	case PatternContinuous:
		return command.NewContinuous(), nil

	case PatternPulse:
		var onDuration time.Duration
		if spec.PulsePatternOnDurationMS != nil {
			if *spec.PulsePatternOnDurationMS <= 0 {
				return nil, invalid(name, "pulse_pattern_on_duration_ms must be positive")
			}
			onDuration = time.Duration(*spec.PulsePatternOnDurationMS) * time.Millisecond
		}
		custom := -1.0
		if spec.PulsePatternCustomActuation != nil {
			custom = *spec.PulsePatternCustomActuation
		}

		auto := spec.PulsePatternLevels != nil || spec.PulsePatternMaxFrequency != nil
		explicit := spec.PulsePatternThresholds != nil || spec.PulsePatternFrequencies != nil
		if (spec.PulsePatternLevels != nil) != (spec.PulsePatternMaxFrequency != nil) {
			return nil, invalid(name, "provide both pulse_pattern_levels and pulse_pattern_max_frequency or neither")
		}
		if (spec.PulsePatternThresholds != nil) != (spec.PulsePatternFrequencies != nil) {
			return nil, invalid(name, "provide both pulse_pattern_thresholds and pulse_pattern_frequencies or neither")
		}
		if auto == explicit {
			return nil, invalid(name, "provide exactly one of pulse_pattern_levels or pulse_pattern_thresholds")
		}

		var (
			p   *command.Pattern
			err error
		)
		if auto {
			p, err = command.NewPulseLevels(*spec.PulsePatternLevels, *spec.PulsePatternMaxFrequency, onDuration, custom)
		} else {
			periods := make([]time.Duration, len(spec.PulsePatternFrequencies))
			for i, hz := range spec.PulsePatternFrequencies {
				if hz <= 0 {
					return nil, invalid(name, "pulse_pattern_frequencies[%d] must be positive, got %g", i, hz)
				}
				periods[i] = command.FrequencyToPeriod(hz)
			}
			p, err = command.NewPulse(spec.PulsePatternThresholds, periods, onDuration, custom)
		}
		if err != nil {
			return nil, invalid(name, "%v", err)
		}
		return p, nil

	case "":
		return nil, invalid(name, "missing time_pattern")
	default:
		return nil, invalid(name, "time_pattern must be %q or %q, found %q", PatternContinuous, PatternPulse, spec.TimePattern)
	}
}
