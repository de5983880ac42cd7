package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrSignalTooShort is returned by FiltFilt when the input is not longer than the edge padding.
var ErrSignalTooShort = errors.New("signal too short for zero-phase filtering")

// Butterworth designs a digital low-pass filter of the given order with the cutoff in Hz, using the
// bilinear transform with a prewarped cutoff. a[0] is 1.
func Butterworth(order int, cutoffHz, rateHz float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("butterworth: order must be positive, got %d", order)
	}
	if rateHz <= 0 {
		return nil, nil, fmt.Errorf("butterworth: sample rate must be positive, got %g", rateHz)
	}
	wn := cutoffHz / (rateHz / 2)
	if !(wn > 0 && wn < 1) {
		return nil, nil, fmt.Errorf("butterworth: cutoff %g Hz must lie strictly between 0 and the Nyquist frequency %g Hz", cutoffHz, rateHz/2)
	}

	// Analog prototype, prewarped for the bilinear transform with fs = 2.
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)
	poles := make([]complex128, order)
	for k := range poles {
		m := float64(-order + 1 + 2*k)
		poles[k] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order))) * complex(warped, 0)
	}
	gain := math.Pow(warped, float64(order))

	fs2 := complex(2*fs, 0)
	den := complex(1, 0)
	for i, p := range poles {
		den *= fs2 - p
		poles[i] = (fs2 + p) / (fs2 - p)
	}
	gain *= real(1 / den)

	zeros := make([]complex128, order)
	for i := range zeros {
		zeros[i] = -1
	}
	b = realPoly(zeros)
	for i := range b {
		b[i] *= gain
	}
	return b, realPoly(poles), nil
}

// realPoly expands prod(x - r) and keeps the real parts of the coefficients, highest power first.
func realPoly(roots []complex128) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		copy(next, c)
		for i := 1; i < len(next); i++ {
			next[i] -= r * c[i-1]
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

// FiltFilt applies the filter forward then backward so the output has no phase lag. The signal is
// extended at both ends by odd reflection over 3*max(len(a), len(b)) samples and each pass starts from
// the filter's steady state scaled by the first padded sample.
func FiltFilt(b, a, x []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 || a[0] == 0 {
		return nil, fmt.Errorf("filtfilt: invalid coefficients")
	}
	b, a = normalize(b, a)
	edge := 3 * len(a)
	if len(x) <= edge {
		return nil, fmt.Errorf("filtfilt: %d samples, need more than %d: %w", len(x), edge, ErrSignalTooShort)
	}

	zi, err := steadyState(b, a)
	if err != nil {
		return nil, err
	}
	ext := oddExtend(x, edge)

	y := lfilter(b, a, ext, scaled(zi, ext[0]))
	reverse(y)
	y = lfilter(b, a, y, scaled(zi, y[0]))
	reverse(y)
	return y[edge : len(y)-edge], nil
}

// LowPass is Butterworth followed by FiltFilt.
func LowPass(x []float64, order int, cutoffHz, rateHz float64) ([]float64, error) {
	b, a, err := Butterworth(order, cutoffHz, rateHz)
	if err != nil {
		return nil, err
	}
	return FiltFilt(b, a, x)
}

// normalize pads b and a to the same length and divides both by a[0].
func normalize(b, a []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	nb := make([]float64, n)
	na := make([]float64, n)
	for i, v := range b {
		nb[i] = v / a[0]
	}
	for i, v := range a {
		na[i] = v / a[0]
	}
	return nb, na
}

// lfilter is the direct form II transposed filter with initial state zi (len(a)-1 values).
func lfilter(b, a, x, zi []float64) []float64 {
	n := len(a)
	z := append([]float64(nil), zi...)
	y := make([]float64, len(x))
	for i, xi := range x {
		yi := b[0] * xi
		if n > 1 {
			yi += z[0]
			for j := 0; j < n-2; j++ {
				z[j] = b[j+1]*xi + z[j+1] - a[j+1]*yi
			}
			z[n-2] = b[n-1]*xi - a[n-1]*yi
		}
		y[i] = yi
	}
	return y
}

// steadyState solves (I - companion(a)ᵀ)·zi = b[1:] - a[1:]·b[0], the state of the filter after an
// infinitely long unit step.
func steadyState(b, a []float64) ([]float64, error) {
	n := len(a) - 1
	if n == 0 {
		return nil, nil
	}
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+a[i+1])
		if i+1 < n {
			m.Set(i, i+1, -1)
		}
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}
	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("filtfilt: initial conditions: %w", err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

func oddExtend(x []float64, edge int) []float64 {
	n := len(x)
	out := make([]float64, 0, n+2*edge)
	for i := edge; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	for i := n - 2; i >= n-1-edge; i-- {
		out = append(out, 2*x[n-1]-x[i])
	}
	return out
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
