package retargeting

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/haptic_retargeting/internal/command"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
)

type reply struct {
	val any
	err error
}

type request struct {
	apply func(c *Controller) (any, error)
	reply chan reply
}

func (r request) serve(c *Controller) {
	val, err := r.apply(c)
	r.reply <- reply{val: val, err: err}
}

// call queues fn for the loop goroutine and waits for its result.
func call[T any](ctx context.Context, c *Controller, fn func(c *Controller) (T, error)) (T, error) {
	var zero T
	req := request{
		apply: func(c *Controller) (any, error) { return fn(c) },
		reply: make(chan reply, 1),
	}

	select {
	case c.requests <- req:
	case <-c.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-req.reply:
		if r.err != nil {
			return zero, r.err
		}
		return r.val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// GroupStatus is a read-only view of one group.
type GroupStatus struct {
	Name         string   `json:"name"`
	JointAxes    []string `json:"joint_axes"`
	Actuators    []string `json:"actuators"`
	MapFunction  string   `json:"map_function"`
	TimePattern  string   `json:"time_pattern"`
	MinThreshold float64  `json:"min_threshold"`
	MaxThreshold float64  `json:"max_threshold"`
	Offset       float64  `json:"offset"`
	Value        float64  `json:"value"`
	InContact    bool     `json:"in_contact"`
	LastCommand  float64  `json:"last_command"`
}

// SetMinThreshold sets the min threshold of the selected groups.
func (c *Controller) SetMinThreshold(ctx context.Context, sel groups.Selector, min float64) error {
	return c.updateThresholds(ctx, sel, func(_, max float64) (float64, float64) { return min, max })
}

// SetMaxThreshold sets the max threshold of the selected groups.
func (c *Controller) SetMaxThreshold(ctx context.Context, sel groups.Selector, max float64) error {
	return c.updateThresholds(ctx, sel, func(min, _ float64) (float64, float64) { return min, max })
}

// SetThresholds sets both thresholds of the selected groups.
func (c *Controller) SetThresholds(ctx context.Context, sel groups.Selector, min, max float64) error {
	return c.updateThresholds(ctx, sel, func(_, _ float64) (float64, float64) { return min, max })
}

// updateThresholds applies next to every selected group, or to none when
// any group would end up with min >= max.
func (c *Controller) updateThresholds(ctx context.Context, sel groups.Selector, next func(min, max float64) (float64, float64)) error {
	_, err := call(ctx, c, func(c *Controller) (struct{}, error) {
		selected, err := c.deps.Groups.Select(sel)
		if err != nil {
			return struct{}{}, err
		}
		for _, g := range selected {
			min, max := next(g.Thresholds())
			if min >= max {
				return struct{}{}, fmt.Errorf("%w: group %s [%g, %g]", ErrInvalidThresholds, g.Name, min, max)
			}
		}
		for _, g := range selected {
			min, max := next(g.Thresholds())
			if err := g.SetThresholds(min, max); err != nil {
				if errors.Is(err, command.ErrInvalidArgument) {
					return struct{}{}, fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
				}
				return struct{}{}, err
			}
			log.Printf("retargeting: %s thresholds set to [%g, %g]", g.Name, min, max)
		}
		return struct{}{}, nil
	})
	return err
}

// RemoveOffset calibrates the selected groups so that the current reading
// maps onto their min threshold.
func (c *Controller) RemoveOffset(ctx context.Context, sel groups.Selector) error {
	_, err := call(ctx, c, func(c *Controller) (struct{}, error) {
		selected, err := c.deps.Groups.Select(sel)
		if err != nil {
			return struct{}{}, err
		}
		for _, g := range selected {
			g.RemoveOffset(c.values)
			log.Printf("retargeting: %s offset set to %g", g.Name, g.Offset)
		}
		return struct{}{}, nil
	})
	return err
}

// Snapshot returns the state of every group in configuration order.
func (c *Controller) Snapshot(ctx context.Context) ([]GroupStatus, error) {
	return call(ctx, c, func(c *Controller) ([]GroupStatus, error) {
		out := make([]GroupStatus, 0, c.deps.Groups.Len())
		for g := range c.deps.Groups.All() {
			min, max := g.Thresholds()
			out = append(out, GroupStatus{
				Name:         g.Name,
				JointAxes:    append([]string(nil), g.JointAxes...),
				Actuators:    append([]string(nil), g.Actuators...),
				MapFunction:  g.Pipeline.Mapping.Kind().String(),
				TimePattern:  g.Pipeline.Pattern.Kind().String(),
				MinThreshold: min,
				MaxThreshold: max,
				Offset:       g.Offset,
				Value:        g.Value(c.values),
				InContact:    g.InContact(c.values),
				LastCommand:  g.LastEmitted(),
			})
		}
		return out, nil
	})
}
