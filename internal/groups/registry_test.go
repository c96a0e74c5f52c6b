package groups

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

func TestNewRegistryKeepsFileOrder(t *testing.T) {
	gf := &config.GroupsFile{ActuatorGroups: []config.GroupSpec{
		linearSpec("zeta", "z"),
		linearSpec("alpha", "a", "z"),
		linearSpec("mid", "m"),
	}}
	r, err := NewRegistry(gf, ScalarWidth)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())
	assert.Equal(t, []string{"z", "a", "m"}, r.Axes())
	assert.Equal(t, []string{"z", "a", "m"}, r.VelocityAxes())
	assert.Equal(t, 3, r.SampleSize())

	var seen []string
	for g := range r.All() {
		seen = append(seen, g.Name)
	}
	assert.Equal(t, r.Names(), seen)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	gf := &config.GroupsFile{ActuatorGroups: []config.GroupSpec{
		linearSpec("arm", "elbow"),
		linearSpec("arm", "wrist"),
	}}
	_, err := NewRegistry(gf, ScalarWidth)
	assert.ErrorIs(t, err, ErrInvalidGroup)
	assert.Contains(t, err.Error(), "multiple definitions")
}

func TestNewRegistryRejectsReservedName(t *testing.T) {
	gf := &config.GroupsFile{ActuatorGroups: []config.GroupSpec{linearSpec("all", "x")}}
	_, err := NewRegistry(gf, ScalarWidth)
	assert.ErrorIs(t, err, ErrInvalidGroup)
}

func TestSelect(t *testing.T) {
	gf := &config.GroupsFile{ActuatorGroups: []config.GroupSpec{
		linearSpec("a", "x"),
		linearSpec("b", "y"),
	}}
	r, err := NewRegistry(gf, ScalarWidth)
	require.NoError(t, err)

	sel, err := r.Select(ByName("b"))
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "b", sel[0].Name)

	sel, err = r.Select(AllGroups())
	require.NoError(t, err)
	assert.Len(t, sel, 2)

	_, err = r.Select(ByName("nope"))
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestParseSelector(t *testing.T) {
	assert.True(t, ParseSelector("all").IsAll())
	assert.Equal(t, "all", ParseSelector("all").String())

	s := ParseSelector("left_leg")
	assert.False(t, s.IsAll())
	assert.Equal(t, "left_leg", s.Name())
	assert.Equal(t, "left_leg", s.String())
}

func TestGroupNormAndOffset(t *testing.T) {
	g, err := NewFactory(ForceWidth).Build(linearSpec("foot", "left_foot"))
	require.NoError(t, err)

	values := []float64{3, 4, 0}
	assert.InDelta(t, 5.0, g.Norm(values), 1e-12)
	assert.InDelta(t, 5.0, g.Value(values), 1e-12)
	assert.True(t, g.InContact(values))

	// after calibration the current reading sits exactly on the min threshold
	g.RemoveOffset(values)
	assert.InDelta(t, -4.0, g.Offset, 1e-12)
	min, _ := g.Thresholds()
	assert.InDelta(t, min, g.Value(values), 1e-12)
	assert.False(t, g.InContact(values))
	assert.InDelta(t, 0.0, g.Command(values, time.Now()), 1e-12)

	// loading 2 units on top of the calibrated reading
	loaded := []float64{0, 0, 7}
	assert.InDelta(t, 3.0, g.Value(loaded), 1e-12)
	assert.InDelta(t, 0.5, g.Command(loaded, time.Now()), 1e-12)
}

func TestGroupGated(t *testing.T) {
	g, err := NewFactory(ScalarWidth).Build(linearSpec("leg", "hip", "knee"))
	require.NoError(t, err)

	assert.False(t, g.Gated([]float64{0.5, -0.9}, 1))
	assert.False(t, g.Gated([]float64{1, -1}, 1), "exactly max is not gated")
	assert.True(t, g.Gated([]float64{0.1, -1.01}, 1))
	assert.True(t, g.Gated([]float64{math.Inf(1), 0}, 1))
}

func TestGroupThresholdUpdate(t *testing.T) {
	g, err := NewFactory(ScalarWidth).Build(linearSpec("leg", "hip"))
	require.NoError(t, err)

	require.NoError(t, g.SetThresholds(0, 10))
	min, max := g.Thresholds()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 10.0, max)

	assert.Error(t, g.SetThresholds(10, 10))
	min, max = g.Thresholds()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 10.0, max)
}
