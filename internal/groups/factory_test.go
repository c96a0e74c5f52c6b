package groups

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/haptic_retargeting/internal/command"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func linearSpec(name string, axes ...string) config.GroupSpec {
	return config.GroupSpec{
		Name:         name,
		JointAxes:    axes,
		Actuators:    []string{"1", "2"},
		MinThreshold: f64(1),
		MaxThreshold: f64(5),
		MapFunction:  MapLinear,
		TimePattern:  PatternContinuous,
	}
}

func TestBuildLinearContinuous(t *testing.T) {
	f := NewFactory(ScalarWidth)
	g, err := f.Build(linearSpec("knee", "r_knee", "r_hip"))
	require.NoError(t, err)

	assert.Equal(t, "knee", g.Name)
	assert.Equal(t, []int{0, 1}, g.Channels)
	assert.Equal(t, []string{"r_knee", "r_hip"}, g.VelocityAxes, "velocity axes default to joint axes")
	assert.Equal(t, []int{0, 1}, g.VelocityIdx)
	assert.Equal(t, command.Linear, g.Pipeline.Mapping.Kind())
	assert.Equal(t, command.Continuous, g.Pipeline.Pattern.Kind())

	min, max := g.Thresholds()
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 5.0, max)
}

func TestAxesAreSharedInFirstSeenOrder(t *testing.T) {
	f := NewFactory(ScalarWidth)
	a, err := f.Build(linearSpec("a", "hip", "knee"))
	require.NoError(t, err)
	b, err := f.Build(linearSpec("b", "knee", "ankle"))
	require.NoError(t, err)

	assert.Equal(t, []string{"hip", "knee", "ankle"}, f.Axes())
	assert.Equal(t, 3, f.SampleSize())
	assert.Equal(t, []int{0, 1}, a.Channels)
	assert.Equal(t, []int{1, 2}, b.Channels)
}

func TestForcePortsSpanThreeChannels(t *testing.T) {
	f := NewFactory(ForceWidth)
	spec := linearSpec("feet", "left_foot", "right_foot")
	g, err := f.Build(spec)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, g.Channels)
	assert.Empty(t, g.VelocityIdx, "force ports have no implicit velocity axes")
	assert.Equal(t, 6, f.SampleSize())

	spec.Name = "feet_gated"
	spec.VelocityAxes = []string{"l_ankle"}
	g, err = f.Build(spec)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, g.VelocityIdx)
}

func TestBuildSteps(t *testing.T) {
	spec := linearSpec("s", "x")
	spec.MapFunction = MapSteps
	spec.StepsNumber = intp(3)

	g, err := NewFactory(ScalarWidth).Build(spec)
	require.NoError(t, err)
	assert.Equal(t, command.Step, g.Pipeline.Mapping.Kind())

	// norm 3 over [1,5] is 0.5, which sits in the 1/3 bucket
	assert.InDelta(t, 1.0/3, g.Command([]float64{3}, time.Now()), 1e-12)

	spec.StepsNumber = nil
	spec.StepsThresholds = []float64{0.5}
	spec.StepsCommands = []float64{0.2, 0.9}
	g, err = NewFactory(ScalarWidth).Build(spec)
	require.NoError(t, err)
	assert.Equal(t, 0.2, g.Command([]float64{2}, time.Now()))
	assert.Equal(t, 0.9, g.Command([]float64{4}, time.Now()))
}

func TestBuildPulse(t *testing.T) {
	spec := linearSpec("p", "x")
	spec.TimePattern = PatternPulse
	spec.PulsePatternLevels = intp(2)
	spec.PulsePatternMaxFrequency = f64(4)

	g, err := NewFactory(ScalarWidth).Build(spec)
	require.NoError(t, err)
	assert.Equal(t, command.Pulse, g.Pipeline.Pattern.Kind())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 250 * time.Millisecond}, g.Pipeline.Pattern.Periods())

	spec.PulsePatternLevels = nil
	spec.PulsePatternMaxFrequency = nil
	spec.PulsePatternThresholds = []float64{0.1, 0.6}
	spec.PulsePatternFrequencies = []float64{1, 5}
	spec.PulsePatternOnDurationMS = intp(50)
	spec.PulsePatternCustomActuation = f64(0.7)
	g, err = NewFactory(ScalarWidth).Build(spec)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 200 * time.Millisecond}, g.Pipeline.Pattern.Periods())
	assert.Equal(t, 0.7, g.Command([]float64{5}, time.Now()))
}

func TestBuildRejectsInvalidSpecs(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *config.GroupSpec)
	}{
		{"missing name", func(s *config.GroupSpec) { s.Name = "" }},
		{"reserved name", func(s *config.GroupSpec) { s.Name = "all" }},
		{"no joint axes", func(s *config.GroupSpec) { s.JointAxes = nil }},
		{"no actuators", func(s *config.GroupSpec) { s.Actuators = []string{} }},
		{"missing min", func(s *config.GroupSpec) { s.MinThreshold = nil }},
		{"missing max", func(s *config.GroupSpec) { s.MaxThreshold = nil }},
		{"equal thresholds", func(s *config.GroupSpec) { s.MaxThreshold = f64(1) }},
		{"inverted thresholds", func(s *config.GroupSpec) { s.MinThreshold = f64(9) }},
		{"missing map function", func(s *config.GroupSpec) { s.MapFunction = "" }},
		{"unknown map function", func(s *config.GroupSpec) { s.MapFunction = "cubic" }},
		{"steps without buckets", func(s *config.GroupSpec) { s.MapFunction = MapSteps }},
		{"steps with both forms", func(s *config.GroupSpec) {
			s.MapFunction = MapSteps
			s.StepsNumber = intp(2)
			s.StepsThresholds = []float64{0.5}
			s.StepsCommands = []float64{0, 1}
		}},
		{"steps commands size", func(s *config.GroupSpec) {
			s.MapFunction = MapSteps
			s.StepsThresholds = []float64{0.5}
			s.StepsCommands = []float64{1}
		}},
		{"steps only thresholds", func(s *config.GroupSpec) {
			s.MapFunction = MapSteps
			s.StepsThresholds = []float64{0.5}
		}},
		{"zero steps", func(s *config.GroupSpec) {
			s.MapFunction = MapSteps
			s.StepsNumber = intp(0)
		}},
		{"missing time pattern", func(s *config.GroupSpec) { s.TimePattern = "" }},
		{"unknown time pattern", func(s *config.GroupSpec) { s.TimePattern = "sawtooth" }},
		{"pulse without levels", func(s *config.GroupSpec) { s.TimePattern = PatternPulse }},
		{"pulse levels without frequency", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternLevels = intp(2)
		}},
		{"pulse thresholds without frequencies", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternThresholds = []float64{0}
		}},
		{"pulse both families", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternLevels = intp(2)
			s.PulsePatternMaxFrequency = f64(2)
			s.PulsePatternThresholds = []float64{0}
			s.PulsePatternFrequencies = []float64{1}
		}},
		{"pulse zero frequency", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternThresholds = []float64{0}
			s.PulsePatternFrequencies = []float64{0}
		}},
		{"pulse frequency too high for pulse", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternLevels = intp(1)
			s.PulsePatternMaxFrequency = f64(20)
		}},
		{"pulse non-positive duration", func(s *config.GroupSpec) {
			s.TimePattern = PatternPulse
			s.PulsePatternLevels = intp(1)
			s.PulsePatternMaxFrequency = f64(1)
			s.PulsePatternOnDurationMS = intp(0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := linearSpec("g", "x")
			tt.modify(&spec)

			f := NewFactory(ScalarWidth)
			g, err := f.Build(spec)
			assert.ErrorIs(t, err, ErrInvalidGroup)
			assert.Nil(t, g)
			assert.Empty(t, f.Axes(), "failed builds must not claim axes")
		})
	}
}
