// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// GroupsFile is the actuator groups document referenced by
// ACTUATOR_GROUPS_FILE.
type GroupsFile struct {
	ActuatorGroups []GroupSpec `yaml:"actuator_groups"`
}

// GroupSpec describes one actuator group as written in the groups file.
// Optional scalars are pointers so the factory can tell a missing key from a
// zero value.
type GroupSpec struct {
	Name         string   `yaml:"name"`
	JointAxes    []string `yaml:"joint_axes"`
	VelocityAxes []string `yaml:"velocity_axes"`
	Actuators    []string `yaml:"actuators"`

	MinThreshold *float64 `yaml:"min_threshold"`
	MaxThreshold *float64 `yaml:"max_threshold"`

	MapFunction     string    `yaml:"map_function"`
	StepsNumber     *int      `yaml:"steps_number"`
	StepsThresholds []float64 `yaml:"steps_thresholds"`
	StepsCommands   []float64 `yaml:"steps_commands"`

	TimePattern                 string    `yaml:"time_pattern"`
	PulsePatternLevels          *int      `yaml:"pulse_pattern_levels"`
	PulsePatternMaxFrequency    *float64  `yaml:"pulse_pattern_max_frequency"`
	PulsePatternThresholds      []float64 `yaml:"pulse_pattern_thresholds"`
	PulsePatternFrequencies     []float64 `yaml:"pulse_pattern_frequencies"`
	PulsePatternCustomActuation *float64  `yaml:"pulse_pattern_custom_actuation"`
	PulsePatternOnDurationMS    *int      `yaml:"pulse_pattern_on_duration_ms"`
}

// LoadGroups reads and decodes the actuator groups file.
func LoadGroups(path string) (*GroupsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actuator groups file: %w", err)
	}
	return ParseGroups(data)
}

// ParseGroups decodes an actuator groups document. Unknown keys are errors.
func ParseGroups(data []byte) (*GroupsFile, error) {
	var gf GroupsFile
	if err := yaml.UnmarshalStrict(data, &gf); err != nil {
		return nil, fmt.Errorf("invalid actuator groups file: %w", err)
	}
	if len(gf.ActuatorGroups) == 0 {
		return nil, fmt.Errorf("actuator groups file defines no actuator_groups")
	}
	return &gf, nil
}
