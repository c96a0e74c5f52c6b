// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package groups

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/elliotchance/orderedmap/v3"

	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

// ErrUnknownGroup is returned when a selector names no configured group.
var ErrUnknownGroup = errors.New("unknown actuator group")

// Registry holds the configured groups in file order.
type Registry struct {
	groups *orderedmap.OrderedMap[string, *Group]

	axes         []string
	velocityAxes []string
	sampleSize   int
}

// NewRegistry builds every group in gf. Group names must be unique.
func NewRegistry(gf *config.GroupsFile, width int) (*Registry, error) {
	f := NewFactory(width)
	r := &Registry{groups: orderedmap.NewOrderedMap[string, *Group]()}

	for i, spec := range gf.ActuatorGroups {
		if r.groups.Has(spec.Name) {
			return nil, fmt.Errorf("%w: multiple definitions of %q", ErrInvalidGroup, spec.Name)
		}
		g, err := f.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("actuator group %d: %w", i, err)
		}
		r.groups.Set(g.Name, g)
	}

	r.axes = f.Axes()
	r.velocityAxes = f.VelocityAxes()
	r.sampleSize = f.SampleSize()
	return r, nil
}

// Get returns the named group.
func (r *Registry) Get(name string) (*Group, bool) { return r.groups.Get(name) }

// Len is the number of groups.
func (r *Registry) Len() int { return r.groups.Len() }

// All iterates the groups in file order.
func (r *Registry) All() iter.Seq[*Group] { return r.groups.Values() }

// Names lists the group names in file order.
func (r *Registry) Names() []string { return slices.Collect(r.groups.Keys()) }

// Axes lists the sample vector axes.
func (r *Registry) Axes() []string { return r.axes }

// VelocityAxes lists the velocity vector axes.
func (r *Registry) VelocityAxes() []string { return r.velocityAxes }

// SampleSize is the length of the sample vector.
func (r *Registry) SampleSize() int { return r.sampleSize }

// Select resolves sel into the groups it addresses.
func (r *Registry) Select(sel Selector) ([]*Group, error) {
	if sel.IsAll() {
		return slices.Collect(r.All()), nil
	}
	g, ok := r.groups.Get(sel.Name())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, sel.Name())
	}
	return []*Group{g}, nil
}
