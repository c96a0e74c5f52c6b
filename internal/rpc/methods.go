// Package rpc exposes the threshold and calibration operations of the
// control loop over HTTP JSON-RPC and a websocket session.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/retargeting"
)

// Method names accepted on every transport.
const (
	MethodSetMinThreshold = "setMinThreshold"
	MethodSetMaxThreshold = "setMaxThreshold"
	MethodSetThresholds   = "setThresholds"
	MethodRemoveOffset    = "removeOffset"
)

var (
	ErrMethodNotFound = errors.New("method not found")
	ErrInvalidParams  = errors.New("invalid params")
)

// Controller is the part of the control loop the RPC surface drives.
type Controller interface {
	SetMinThreshold(ctx context.Context, sel groups.Selector, min float64) error
	SetMaxThreshold(ctx context.Context, sel groups.Selector, max float64) error
	SetThresholds(ctx context.Context, sel groups.Selector, min, max float64) error
	RemoveOffset(ctx context.Context, sel groups.Selector) error
	Snapshot(ctx context.Context) ([]retargeting.GroupStatus, error)
}

// Params are the named parameters of a call. Group "all" addresses every
// group in removeOffset.
type Params struct {
	Group string   `json:"group"`
	Value *float64 `json:"value,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Invoke runs method against ctrl. Rejections by the controller (unknown
// group, inverted thresholds) are reported as false; malformed calls as an
// error wrapping ErrMethodNotFound or ErrInvalidParams.
func Invoke(ctx context.Context, ctrl Controller, method string, p Params) (bool, error) {
	if p.Group == "" {
		return false, fmt.Errorf("%w: missing group", ErrInvalidParams)
	}
	// Only removeOffset accepts "all"; for the threshold setters it names
	// no group.
	sel := groups.ByName(p.Group)

	var err error
	switch method {
	case MethodSetMinThreshold:
		if p.Value == nil {
			return false, fmt.Errorf("%w: %s needs value", ErrInvalidParams, method)
		}
		err = ctrl.SetMinThreshold(ctx, sel, *p.Value)
	case MethodSetMaxThreshold:
		if p.Value == nil {
			return false, fmt.Errorf("%w: %s needs value", ErrInvalidParams, method)
		}
		err = ctrl.SetMaxThreshold(ctx, sel, *p.Value)
	case MethodSetThresholds:
		if p.Min == nil || p.Max == nil {
			return false, fmt.Errorf("%w: %s needs min and max", ErrInvalidParams, method)
		}
		err = ctrl.SetThresholds(ctx, sel, *p.Min, *p.Max)
	case MethodRemoveOffset:
		sel = groups.ParseSelector(p.Group)
		err = ctrl.RemoveOffset(ctx, sel)
	default:
		return false, fmt.Errorf("%w: %q", ErrMethodNotFound, method)
	}

	if err != nil {
		log.Printf("rpc: %s %s: %v", method, sel, err)
		return false, nil
	}
	return true, nil
}
