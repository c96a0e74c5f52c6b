// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package retargeting runs the haptic control loop: acquire the retargeted
// signal, filter it, turn each actuator group's magnitude into an intensity
// and stream it to the suit.
//
// A Controller owns the group registry, the filter and the cached sample
// vector. Threshold and calibration changes are queued and served by the loop
// goroutine between cycles, so a cycle always sees a consistent configuration.
package retargeting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/filters"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/logging"
	"github.com/relabs-tech/haptic_retargeting/internal/signal"
)

var (
	ErrUnknownGroup       = groups.ErrUnknownGroup
	ErrInvalidThresholds  = errors.New("min threshold must be below max threshold")
	ErrAcquisitionTimeout = errors.New("acquisition timeout")
	ErrStopped            = errors.New("controller stopped")
)

// Options tune the loop.
type Options struct {
	Period             time.Duration
	AcquisitionTimeout time.Duration
	MinIntensity       float64
	MaxIntensity       int
	ActuatorPrefix     string

	UseVelocity bool
	MaxVelocity float64

	// FilterCutoffHz enables the low-pass filter when positive.
	FilterCutoffHz float64
}

// OptionsFromConfig extracts the loop options from the module settings.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Period:             time.Duration(cfg.PeriodMS) * time.Millisecond,
		AcquisitionTimeout: time.Duration(cfg.AcquisitionTimeoutMS) * time.Millisecond,
		MinIntensity:       cfg.MinIntensity,
		MaxIntensity:       cfg.ActuatorMaxIntensity,
		ActuatorPrefix:     cfg.ActuatorPrefix,
		UseVelocity:        cfg.UseVelocity,
		MaxVelocity:        cfg.MaxVelocity,
	}
	if cfg.FilterEnabled {
		opts.FilterCutoffHz = cfg.FilterCutoffHz
	}
	return opts
}

// Deps are the collaborators of a Controller. Velocities and Contacts are
// optional.
type Deps struct {
	Groups     *groups.Registry
	Joints     signal.JointReader
	Velocities signal.VelocityReader
	Sink       actuator.Sink
	Contacts   actuator.ContactSink
}

// State is the lifecycle state of a Controller.
type State int32

const (
	Configured State = iota
	Running
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Controller is the control loop actor.
type Controller struct {
	opts Options
	deps Deps

	filter *filters.SecondOrderLowPass
	raw    []float64
	values []float64
	vel    []float64

	lastAcquisition time.Time

	requests chan request
	done     chan struct{}
	state    atomic.Int32
}

// New validates opts against the registry and prepares the loop.
func New(opts Options, deps Deps) (*Controller, error) {
	if deps.Groups == nil || deps.Joints == nil || deps.Sink == nil {
		return nil, errors.New("retargeting: groups, joint reader and sink are required")
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("retargeting: period must be positive, got %v", opts.Period)
	}
	if opts.AcquisitionTimeout <= 0 {
		return nil, fmt.Errorf("retargeting: acquisition timeout must be positive, got %v", opts.AcquisitionTimeout)
	}
	if opts.UseVelocity && deps.Velocities == nil {
		return nil, errors.New("retargeting: velocity gating enabled without a velocity reader")
	}

	c := &Controller{
		opts:     opts,
		deps:     deps,
		raw:      make([]float64, deps.Groups.SampleSize()),
		values:   make([]float64, deps.Groups.SampleSize()),
		vel:      make([]float64, len(deps.Groups.VelocityAxes())),
		requests: make(chan request),
		done:     make(chan struct{}),
	}

	if opts.FilterCutoffHz > 0 {
		samplingHz := float64(time.Second) / float64(opts.Period)
		f, err := filters.NewSecondOrderLowPass(opts.FilterCutoffHz, samplingHz, deps.Groups.SampleSize())
		if err != nil {
			return nil, fmt.Errorf("retargeting: %w", err)
		}
		c.filter = f
	}

	log.Printf("retargeting: %d groups, %d channels, period %v, filter %v, velocity gating %v",
		deps.Groups.Len(), deps.Groups.SampleSize(), opts.Period, c.filter != nil, opts.UseVelocity)
	return c, nil
}

// State returns the lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run drives the loop until ctx is cancelled or acquisition times out. It
// returns nil on cancellation and an ErrAcquisitionTimeout error otherwise.
func (c *Controller) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Configured), int32(Running)) {
		return fmt.Errorf("retargeting: cannot run from state %s", c.State())
	}
	defer close(c.done)

	ticker := time.NewTicker(c.opts.Period)
	defer ticker.Stop()

	log.Printf("retargeting: control loop started")
	for {
		select {
		case <-ctx.Done():
			c.state.Store(int32(Stopped))
			log.Printf("retargeting: control loop stopped")
			return nil
		case req := <-c.requests:
			req.serve(c)
		case now := <-ticker.C:
			if err := c.cycle(now); err != nil {
				c.state.Store(int32(Failed))
				log.Printf("retargeting: %v", err)
				return err
			}
		}
	}
}

// cycle runs one control step at now.
func (c *Controller) cycle(now time.Time) error {
	if c.lastAcquisition.IsZero() {
		c.lastAcquisition = now
	}

	// A non-finite sample would stay in the filter state for good.
	if !c.deps.Joints.Values(c.raw) || !finite(c.raw) {
		if since := now.Sub(c.lastAcquisition); since > c.opts.AcquisitionTimeout {
			return fmt.Errorf("%w: no sample for %v", ErrAcquisitionTimeout, since)
		}
		logging.Debugf("retargeting: acquisition failed, skipping cycle")
		return nil
	}
	c.lastAcquisition = now

	if c.filter != nil {
		copy(c.values, c.filter.FiltSlice(c.raw))
	} else {
		copy(c.values, c.raw)
	}

	if c.opts.UseVelocity && !c.deps.Velocities.Velocities(c.vel) {
		logging.Debugf("retargeting: velocity read failed, using last velocities")
	}

	for g := range c.deps.Groups.All() {
		cmd := g.Command(c.values, now)
		if c.opts.UseVelocity && g.Gated(c.vel, c.opts.MaxVelocity) {
			cmd = 0
		}
		c.emit(g, cmd)
	}

	if c.deps.Contacts != nil {
		c.publishContacts(now)
	}
	return nil
}

// emit sends cmd to every actuator of g when it exceeds the min intensity.
// The first cycle below it after a nonzero emission sends an explicit 0.
func (c *Controller) emit(g *groups.Group, cmd float64) {
	if cmd <= c.opts.MinIntensity {
		if g.LastEmitted() == 0 {
			return
		}
		cmd = 0
	}
	for _, id := range g.Actuators {
		err := c.deps.Sink.Send(actuator.Haptic(c.opts.ActuatorPrefix, id, cmd, c.opts.MaxIntensity))
		if err != nil {
			log.Printf("retargeting: send to %s%s: %v", c.opts.ActuatorPrefix, id, err)
		}
	}
	g.MarkEmitted(cmd)
}

func (c *Controller) publishContacts(now time.Time) {
	state := actuator.ContactState{Time: now, Contacts: make([]actuator.Contact, 0, c.deps.Groups.Len())}
	for g := range c.deps.Groups.All() {
		state.Contacts = append(state.Contacts, actuator.Contact{
			Group:     g.Name,
			InContact: g.InContact(c.values),
			Value:     g.Value(c.values),
		})
	}
	if err := c.deps.Contacts.SendContacts(state); err != nil {
		log.Printf("retargeting: publish contacts: %v", err)
	}
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
