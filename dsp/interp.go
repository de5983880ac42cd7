package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Interpolate evaluates the piecewise-linear curve through (xs, ys) at every grid point. Grid points
// outside [xs[0], xs[last]] take the nearest end value.
func Interpolate(xs, ys, grid []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolate: %d abscissae for %d values", len(xs), len(ys))
	}
	out := make([]float64, len(grid))
	switch len(xs) {
	case 0:
		return nil, fmt.Errorf("interpolate: no samples")
	case 1:
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("interpolate: time is not strictly increasing at sample %d (%g after %g)", i, xs[i], xs[i-1])
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}
	for i, x := range grid {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// UniformGrid returns 0, 1/rate, 2/rate, ... up to and including end.
func UniformGrid(end, rateHz float64) []float64 {
	if end < 0 || rateHz <= 0 || math.IsNaN(end) {
		return nil
	}
	n := int(math.Floor(end*rateHz+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / rateHz
	}
	return out
}
