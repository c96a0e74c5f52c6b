package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/retargeting"
)

type constantReader []float64

func (c constantReader) Values(buf []float64) bool {
	copy(buf, c)
	return true
}

// newLiveController runs a real control loop over one "knee" group.
func newLiveController(t *testing.T) *retargeting.Controller {
	t.Helper()
	min, max := 1.0, 5.0
	reg, err := groups.NewRegistry(&config.GroupsFile{ActuatorGroups: []config.GroupSpec{{
		Name:         "knee",
		JointAxes:    []string{"r_knee"},
		Actuators:    []string{"1"},
		MinThreshold: &min,
		MaxThreshold: &max,
		MapFunction:  groups.MapLinear,
		TimePattern:  groups.PatternContinuous,
	}}}, groups.ScalarWidth)
	require.NoError(t, err)

	c, err := retargeting.New(retargeting.Options{
		Period:             time.Millisecond,
		AcquisitionTimeout: time.Second,
		MaxIntensity:       127,
	}, retargeting.Deps{
		Groups: reg,
		Joints: constantReader{3},
		Sink:   actuator.NewRecorder(nil),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c
}
