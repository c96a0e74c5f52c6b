// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filters holds the discrete filters applied to acquired signal
// vectors before they reach the actuator groups.
package filters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Coefficients are the normalized transfer function terms of a second
// order section. The leading denominator term is always 1.
type Coefficients struct {
	B0, B1, B2 float64 // numerator
	A1, A2     float64 // denominator (a0 = 1)
}

// SecondOrderLowPass is a Butterworth-style 2nd order IIR low-pass filter
// applied elementwise to a fixed-dimension vector.
//
// Filt must be called exactly once per sample period, in order. Skipped or
// reordered calls silently corrupt the recursion.
type SecondOrderLowPass struct {
	cutoffHz   float64
	samplingHz float64
	dim        int
	c          Coefficients

	// u1,y1 are the samples at t-1; u2,y2 at t-2.
	u1, u2 *mat.VecDense
	y1, y2 *mat.VecDense
}

// NewSecondOrderLowPass designs the filter via the bilinear transform,
// prewarped at the cutoff frequency, and zeroes the histories.
func NewSecondOrderLowPass(cutoffHz, samplingHz float64, dimension int) (*SecondOrderLowPass, error) {
	if cutoffHz <= 0 {
		return nil, fmt.Errorf("low-pass: cutoff frequency must be positive, got %g", cutoffHz)
	}
	if samplingHz <= 0 {
		return nil, fmt.Errorf("low-pass: sampling frequency must be positive, got %g", samplingHz)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("low-pass: dimension must be positive, got %d", dimension)
	}
	if cutoffHz >= samplingHz/2 {
		return nil, fmt.Errorf("low-pass: cutoff %g Hz must be below Nyquist (%g Hz)", cutoffHz, samplingHz/2)
	}

	f := &SecondOrderLowPass{
		cutoffHz:   cutoffHz,
		samplingHz: samplingHz,
		dim:        dimension,
		c:          computeCoefficients(cutoffHz, samplingHz),
	}
	f.Reset()
	return f, nil
}

func computeCoefficients(fc, fs float64) Coefficients {
	alfa := 1.0 / math.Tan(math.Pi*fc/fs)
	q := math.Sqrt2
	alfa2 := alfa * alfa

	b0 := 1.0 / (1 + q*alfa + alfa2)
	return Coefficients{
		B0: b0,
		B1: 2 * b0,
		B2: b0,
		A1: -2.0 * (alfa2 - 1.0) * b0,
		A2: (1 - q*alfa + alfa2) * b0,
	}
}

// Reset zeroes the input and output histories.
func (f *SecondOrderLowPass) Reset() {
	f.u1 = mat.NewVecDense(f.dim, nil)
	f.u2 = mat.NewVecDense(f.dim, nil)
	f.y1 = mat.NewVecDense(f.dim, nil)
	f.y2 = mat.NewVecDense(f.dim, nil)
}

// Coefficients returns the designed transfer function terms.
func (f *SecondOrderLowPass) Coefficients() Coefficients { return f.c }

// Dimension returns the vector length fixed at construction.
func (f *SecondOrderLowPass) Dimension() int { return f.dim }

// DCGain is the steady-state gain for a constant input:
// (b0+b1+b2)/(1+a1+a2).
func (f *SecondOrderLowPass) DCGain() float64 {
	return (f.c.B0 + f.c.B1 + f.c.B2) / (1 + f.c.A1 + f.c.A2)
}

// Filt advances the filter by one sample and returns the filtered vector.
// u must have the configured dimension; gonum panics otherwise.
func (f *SecondOrderLowPass) Filt(u mat.Vector) *mat.VecDense {
	y := mat.NewVecDense(f.dim, nil)
	y.ScaleVec(f.c.B0, u)
	y.AddScaledVec(y, f.c.B1, f.u1)
	y.AddScaledVec(y, f.c.B2, f.u2)
	y.AddScaledVec(y, -f.c.A1, f.y1)
	y.AddScaledVec(y, -f.c.A2, f.y2)

	f.u2, f.u1 = f.u1, mat.VecDenseCopyOf(u)
	f.y2, f.y1 = f.y1, y

	return mat.VecDenseCopyOf(y)
}

// FiltSlice is Filt for plain slices.
func (f *SecondOrderLowPass) FiltSlice(u []float64) []float64 {
	in := make([]float64, len(u))
	copy(in, u)
	return f.Filt(mat.NewVecDense(len(in), in)).RawVector().Data
}
