// Package dsp holds the numeric kernels of the gait pipeline: filtering, interpolation and the
// derived trunk and foot signals.
package dsp

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrFlatRotation means the second half of the integrated gyroscope has a zero median, so the
// rotation angle cannot be scaled to 180 degrees.
var ErrFlatRotation = errors.New("rotation angle has zero end median")

// CumSum returns the running sum of x.
func CumSum(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	return floats.CumSum(make([]float64, len(x)), x)
}

// Mean is the arithmetic mean, NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Median averages the two middle values for even lengths. NaN for an empty slice.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Magnitude is the element-wise Euclidean norm of three axes.
func Magnitude(x, y, z []float64) []float64 {
	n := minLen(len(x), len(y), len(z))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
	}
	return out
}

// RotationAngle integrates a gyroscope axis and rescales it so the start of the walk sits at 0 and
// the end at ±180 degrees: angle = cumsum(gyr)/rate, a = median of the first half, z = median of
// the second half, result = sign(z)·(angle−a)·180/|z|.
//
// When z is zero the offset angle is returned unscaled together with ErrFlatRotation.
func RotationAngle(gyr []float64, rateHz float64) ([]float64, error) {
	n := len(gyr)
	if n == 0 {
		return nil, nil
	}
	angle := CumSum(gyr)
	floats.Scale(1/rateHz, angle)

	a := Median(angle[:n/2])
	if n/2 == 0 {
		a = angle[0]
	}
	z := Median(angle[n/2:])

	floats.AddConst(-a, angle)
	if z == 0 || math.IsNaN(z) {
		return angle, ErrFlatRotation
	}
	floats.Scale(sign(z)*180/math.Abs(z), angle)
	return angle, nil
}

// Range returns the min and max of the finite values of every series.
func Range(series ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	return lo, hi, ok
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func minLen(ns ...int) int {
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return m
}
