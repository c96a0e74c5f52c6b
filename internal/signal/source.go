// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package signal acquires the retargeted signal and the joint velocities.
//
// Every reader fills a caller-owned buffer laid out by the actuator group
// registry and reports whether the buffer now holds a fresh reading. A false
// return leaves the buffer contents unspecified.
package signal

import (
	"sync"
	"time"
)

// JointReader reads the retargeted signal (joint torques, motor currents or
// force vectors).
type JointReader interface {
	Values(buf []float64) bool
}

// VelocityReader reads joint velocities.
type VelocityReader interface {
	Velocities(buf []float64) bool
}

// namedStore keeps the latest value per axis name. Producers write from
// their own goroutine; the control loop reads.
type namedStore struct {
	mu      sync.RWMutex
	latest  map[string]float64
	updated time.Time
	maxAge  time.Duration
	now     func() time.Time
}

func newNamedStore(maxAge time.Duration) namedStore {
	return namedStore{latest: make(map[string]float64), maxAge: maxAge, now: time.Now}
}

func (s *namedStore) set(names []string, values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, name := range names {
		s.latest[name] = values[i]
	}
	s.updated = s.now()
}

// fill copies axes into buf. It fails when an axis has never been reported
// or the last update is older than maxAge.
func (s *namedStore) fill(axes []string, buf []float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updated.IsZero() {
		return false
	}
	if s.maxAge > 0 && s.now().Sub(s.updated) > s.maxAge {
		return false
	}
	for i, axis := range axes {
		v, ok := s.latest[axis]
		if !ok {
			return false
		}
		buf[i] = v
	}
	return true
}
