package signal

import (
	"math"
	"time"
)

// Mock generates smoothly changing values for bench runs without hardware.
// Axis i oscillates between 0 and amplitude at its own rate.
type Mock struct {
	start     time.Time
	amplitude float64
	now       func() time.Time
}

// NewMock creates a mock source.
func NewMock(amplitude float64) *Mock {
	return &Mock{start: time.Now(), amplitude: amplitude, now: time.Now}
}

func (m *Mock) rate(i int) float64 { return 0.5 + 0.2*float64(i) }

func (m *Mock) Values(buf []float64) bool {
	elapsed := m.now().Sub(m.start).Seconds()
	for i := range buf {
		buf[i] = m.amplitude * (1 + math.Sin(elapsed*m.rate(i))) / 2
	}
	return true
}

// Velocities returns the time derivative of Values.
func (m *Mock) Velocities(buf []float64) bool {
	elapsed := m.now().Sub(m.start).Seconds()
	for i := range buf {
		buf[i] = m.amplitude * m.rate(i) * math.Cos(elapsed*m.rate(i)) / 2
	}
	return true
}
