package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ports map[string][3]float64

func (p ports) Read(port string) ([3]float64, bool) {
	v, ok := p[port]
	return v, ok
}

func TestForceNorm(t *testing.T) {
	e := NewEstimator([]string{"left", "right", "missing"}, false, 0, 0)
	f := e.Force(ports{
		"left":  {3, 4, 0},
		"right": {0, 0, -10},
	})
	assert.InDelta(t, 15.0, f, 1e-9)
}

func TestForceZOnly(t *testing.T) {
	e := NewEstimator([]string{"left", "right"}, true, 0, 0)
	f := e.Force(ports{
		"left":  {100, 100, -20},
		"right": {0, 0, 5},
	})
	assert.InDelta(t, 20.0, f, 1e-9, "only downward z counts")
}

func TestWeightAndLabel(t *testing.T) {
	r := ports{"hands": {0, 0, -98.1}}

	e := NewEstimator([]string{"hands"}, true, 0.5, 1)
	assert.InDelta(t, 9.5, e.Weight(r), 1e-9)
	label, ok := e.Label(r)
	assert.True(t, ok)
	assert.Equal(t, "9.5", label)

	e = NewEstimator([]string{"hands"}, true, 9.5, 1)
	_, ok = e.Label(r)
	assert.False(t, ok, "below min weight")

	w := NewEstimator([]string{"hands"}, true, 8.5, 0).Weight(r)
	e = NewEstimator([]string{"hands"}, true, 8.5, w)
	label, ok = e.Label(r)
	assert.True(t, ok, "min weight is inclusive")
	assert.Equal(t, "1.5", label)
}
