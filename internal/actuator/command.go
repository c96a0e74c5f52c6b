// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package actuator defines the haptic actuator command record and the sinks
// that deliver it to the suit.
package actuator

import (
	"math"
	"time"
)

// Actuator types and statuses understood by the suit firmware.
const (
	TypeHaptic = "HAPTIC"
	StatusOK   = "OK"
)

// Command is one actuation message for a single actuator.
type Command struct {
	Name     string  `json:"name" msgpack:"name"`
	Type     string  `json:"type" msgpack:"type"`
	Status   string  `json:"status" msgpack:"status"`
	Value    float64 `json:"value" msgpack:"value"`
	Duration float64 `json:"duration" msgpack:"duration"` // seconds, 0 means until the next command
}

// Haptic builds a command for actuator id. intensity is the normalized
// command in [0,1]; the wire value is truncated to an integer step of
// maxIntensity.
func Haptic(prefix, id string, intensity float64, maxIntensity int) Command {
	return Command{
		Name:   prefix + id,
		Type:   TypeHaptic,
		Status: StatusOK,
		Value:  math.Trunc(intensity * float64(maxIntensity)),
	}
}

// Contact is the contact state of one group.
type Contact struct {
	Group     string  `json:"group" msgpack:"group"`
	InContact bool    `json:"in_contact" msgpack:"in_contact"`
	Value     float64 `json:"value" msgpack:"value"`
}

// ContactState is the per-cycle contact vector.
type ContactState struct {
	Time     time.Time `json:"time" msgpack:"time"`
	Contacts []Contact `json:"contacts" msgpack:"contacts"`
}
