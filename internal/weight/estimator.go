// Package weight estimates the weight of a carried load from the force
// measured at the suit's contact ports.
package weight

import (
	"math"
	"strconv"
)

// Gravity is the standard gravity used to convert newtons to kilograms.
const Gravity = 9.81

// FractionalDigits is the precision of the weight label.
const FractionalDigits = 1

// ForceReader returns the latest force vector of a port.
type ForceReader interface {
	Read(port string) ([3]float64, bool)
}

// Estimator sums the forces of a set of ports.
type Estimator struct {
	ports    []string
	useZOnly bool
	offset   float64
	min      float64
}

// NewEstimator returns an estimator over ports. With useZOnly only the
// downward (negative z) component counts; otherwise the vector norm does.
// Weights below min produce no label.
func NewEstimator(ports []string, useZOnly bool, offset, min float64) *Estimator {
	return &Estimator{
		ports:    append([]string(nil), ports...),
		useZOnly: useZOnly,
		offset:   offset,
		min:      min,
	}
}

// Force is the total force in newtons. Ports without a reading are skipped.
func (e *Estimator) Force(r ForceReader) float64 {
	var total float64
	for _, port := range e.ports {
		f, ok := r.Read(port)
		if !ok {
			continue
		}
		if e.useZOnly {
			if f[2] < 0 {
				total += -f[2]
			}
			continue
		}
		total += math.Sqrt(f[0]*f[0] + f[1]*f[1] + f[2]*f[2])
	}
	return total
}

// Weight converts the total force to kilograms and removes the offset.
func (e *Estimator) Weight(r ForceReader) float64 {
	return e.Force(r)/Gravity - e.offset
}

// Label formats the current weight. ok is false below the minimum weight.
func (e *Estimator) Label(r ForceReader) (label string, ok bool) {
	w := e.Weight(r)
	if w < e.min {
		return "", false
	}
	return strconv.FormatFloat(w, 'f', FractionalDigits, 64), true
}
