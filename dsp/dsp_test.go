package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButterworthMatchesReferenceDesign(t *testing.T) {
	b, a, err := Butterworth(2, 10, 100)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.06745527, 0.13491055, 0.06745527}, b, 1e-7)
	assert.InDeltaSlice(t, []float64{1, -1.1429805, 0.4128016}, a, 1e-7)
}

func TestButterworthDefaultLowPass(t *testing.T) {
	// Order 4, 5 Hz at 100 Hz is the analysis default.
	b, a, err := Butterworth(4, 5, 100)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{
		0.00041659920440659937, 0.0016663968176263975, 0.002499595226439596,
		0.0016663968176263975, 0.00041659920440659937,
	}, b, 1e-12)
	assert.InDeltaSlice(t, []float64{
		1, -3.180638548874719, 3.8611943489942138, -2.112155355110969, 0.4382651422619799,
	}, a, 1e-9)
}

func TestFiltFiltMatchesReference(t *testing.T) {
	b, a, err := Butterworth(4, 5, 100)
	require.NoError(t, err)
	x := make([]float64, 40)
	for i := range x {
		ts := float64(i) / 100
		x[i] = math.Sin(2*math.Pi*1.5*ts) + 0.5*math.Sin(2*math.Pi*20*ts)
	}
	y, err := FiltFilt(b, a, x)
	require.NoError(t, err)
	require.Len(t, y, len(x))

	want := map[int]float64{
		0:  -0.007873319052807167,
		1:  0.08876833471347872,
		10: 0.8166916262866651,
		20: 0.9284709571449183,
		30: 0.3880247604438643,
		39: -1.0318206720793484,
	}
	for i, v := range want {
		assert.InDelta(t, v, y[i], 1e-9, "sample %d", i)
	}
}

func TestButterworthUnitDCGain(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 6} {
		b, a, err := Butterworth(order, 5, 100)
		require.NoError(t, err)
		require.Len(t, b, order+1)
		require.Len(t, a, order+1)
		var sb, sa float64
		for i := range b {
			sb += b[i]
			sa += a[i]
		}
		assert.InDelta(t, 1, sb/sa, 1e-9, "order %d", order)
	}
}

func TestButterworthRejectsBadArguments(t *testing.T) {
	for _, tc := range []struct {
		order          int
		cutoff, rateHz float64
	}{
		{0, 5, 100},
		{4, 0, 100},
		{4, 50, 100},
		{4, 60, 100},
		{4, 5, 0},
	} {
		_, _, err := Butterworth(tc.order, tc.cutoff, tc.rateHz)
		assert.Error(t, err, "%+v", tc)
	}
}

func TestFiltFiltKeepsConstantSignal(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		x[i] = 3.5
	}
	y, err := LowPass(x, 4, 5, 100)
	require.NoError(t, err)
	require.Len(t, y, len(x))
	for i, v := range y {
		require.InDelta(t, 3.5, v, 1e-9, "sample %d", i)
	}
}

func TestFiltFiltRemovesHighFrequency(t *testing.T) {
	const rate = 100.0
	n := 1000
	x := make([]float64, n)
	slow := make([]float64, n)
	for i := range x {
		tt := float64(i) / rate
		slow[i] = math.Sin(2 * math.Pi * 1 * tt)
		x[i] = slow[i] + 0.5*math.Sin(2*math.Pi*40*tt)
	}
	y, err := LowPass(x, 4, 5, rate)
	require.NoError(t, err)
	require.Len(t, y, n)
	for i := 100; i < n-100; i++ {
		require.InDelta(t, slow[i], y[i], 0.02, "sample %d", i)
	}
}

func TestFiltFiltTooShort(t *testing.T) {
	b, a, err := Butterworth(4, 5, 100)
	require.NoError(t, err)
	_, err = FiltFilt(b, a, make([]float64, 15))
	require.ErrorIs(t, err, ErrSignalTooShort)

	_, err = FiltFilt(b, a, make([]float64, 16))
	require.NoError(t, err)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestCumSumAndMagnitude(t *testing.T) {
	assert.Equal(t, []float64{1, 3, 6}, CumSum([]float64{1, 2, 3}))
	assert.Nil(t, CumSum(nil))
	assert.InDeltaSlice(t, []float64{5, 13}, Magnitude([]float64{3, 5}, []float64{4, 12}, []float64{0, 0}), 1e-12)
}

func TestRotationAngle(t *testing.T) {
	got, err := RotationAngle([]float64{0, 0, 0, 0, 100, 0, 0, 0}, 100)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 180, 180, 180, 180}, got, 1e-9)

	got, err = RotationAngle([]float64{0, 0, 0, 0, -50, 0, 0, 0}, 100)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 180, 180, 180, 180}, got, 1e-9, "negative turns are mirrored to positive")

	got, err = RotationAngle([]float64{0, 0, 0, 0}, 100)
	require.ErrorIs(t, err, ErrFlatRotation)
	assert.Equal(t, []float64{0, 0, 0, 0}, got)
}

func TestInterpolate(t *testing.T) {
	got, err := Interpolate([]float64{0, 1, 2}, []float64{0, 10, 30}, []float64{-1, 0, 0.5, 1.5, 2, 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 5, 20, 30, 30}, got, 1e-12)

	_, err = Interpolate([]float64{0, 1, 1}, []float64{0, 1, 2}, []float64{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")

	_, err = Interpolate([]float64{0, 1}, []float64{0}, nil)
	require.Error(t, err)
}

func TestUniformGrid(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 0.01, 0.02, 0.03}, UniformGrid(0.03, 100), 1e-12)
	assert.Len(t, UniformGrid(11.99, 100), 1200)
	assert.Nil(t, UniformGrid(-1, 100))
}

func TestRange(t *testing.T) {
	lo, hi, ok := Range([]float64{1, math.NaN(), -2}, []float64{7})
	require.True(t, ok)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 7.0, hi)

	_, _, ok = Range(nil)
	assert.False(t, ok)
}
