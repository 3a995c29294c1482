package dtw_test

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/dtw"
)

func scalars(vs ...float64) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = []float64{v}
	}
	return out
}

func TestDTW_EmptyInput(t *testing.T) {
	_, err := dtw.DTW(nil, scalars(1, 2), nil)
	assert.ErrorIs(t, err, dtw.ErrEmptyInput)

	_, err = dtw.DTW(scalars(1), [][]float64{}, nil)
	assert.ErrorIs(t, err, dtw.ErrEmptyInput)
}

func TestDTW_BadInput(t *testing.T) {
	opts := dtw.DefaultOptions()
	opts.Window = -2
	_, err := dtw.DTW(scalars(1), scalars(1), &opts)
	assert.ErrorIs(t, err, dtw.ErrBadInput, "Window < -1 must error")

	ragged := [][]float64{{1, 2}, {1}}
	_, err = dtw.DTW(ragged, [][]float64{{1, 2}}, nil)
	assert.ErrorIs(t, err, dtw.ErrBadInput, "ragged dimensions must error")
}

func TestDTW_IdenticalIsZero(t *testing.T) {
	a := [][]float64{{0, 0, 1}, {0, 1, 0}, {1, 0, 0}}
	dist, err := dtw.DTW(a, a, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, dist)
}

func TestDTW_WarpedSubsequence(t *testing.T) {
	dist, err := dtw.DTW(scalars(1, 2, 3), scalars(1, 2, 2, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, dist)
}

func TestDTW_KnownDistance(t *testing.T) {
	// 3-4-5 triangle: every local cost is 5
	a := [][]float64{{0, 0}, {0, 0}}
	b := [][]float64{{3, 4}}
	dist, err := dtw.DTW(a, b, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, dist, 1e-12)
}

func TestDTW_Symmetric(t *testing.T) {
	a := [][]float64{{0.1, 0.2}, {0.4, 0.1}, {0.9, 0.3}, {0.2, 0.8}, {0.5, 0.5}}
	b := [][]float64{{0.2, 0.1}, {0.8, 0.4}, {0.1, 0.9}}

	opts := dtw.DefaultOptions()
	opts.SlopePenalty = 0.25
	opts.Window = 2
	d1, err := dtw.DTW(a, b, &opts)
	require.NoError(t, err)
	d2, err := dtw.DTW(b, a, &opts)
	require.NoError(t, err)
	assert.InDelta(t, d1, d2, 1e-12)
}

func TestDTW_MemoryLinearInShorterInput(t *testing.T) {
	const n = 3000
	a := make([][]float64, n)
	b := make([][]float64, n)
	for i := range a {
		a[i] = []float64{math.Sin(float64(i) / 50), 0, 0}
		b[i] = []float64{math.Sin(float64(i)/50 + 0.3), 0, 0}
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := dtw.DTW(a, b, nil)
	runtime.ReadMemStats(&after)
	require.NoError(t, err)

	// a full n×m table would be 72 MB
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestDTW_WindowWidenedToLengthDifference(t *testing.T) {
	a := scalars(1, 2, 3)
	b := scalars(1, 2, 3, 4, 5, 6)

	opts := dtw.DefaultOptions()
	opts.Window = 1
	dist, err := dtw.DTW(a, b, &opts)
	require.NoError(t, err)
	assert.False(t, math.IsInf(dist, 0))

	unconstrained, err := dtw.DTW(a, b, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, dist, unconstrained)
}

func TestDTW_SlopePenalty(t *testing.T) {
	a := scalars(1, 2, 3)
	b := scalars(1, 2, 2, 3)

	opts := dtw.DefaultOptions()
	opts.SlopePenalty = 0.5
	dist, err := dtw.DTW(a, b, &opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dist, 1e-12, "one non-diagonal step is required")
}

func TestDTW_NonFinite(t *testing.T) {
	a := [][]float64{{0, math.NaN()}, {1, 1}}
	b := [][]float64{{0, 0}, {1, 1}}
	_, err := dtw.DTW(a, b, nil)
	assert.ErrorIs(t, err, dtw.ErrNonFinite)

	a = [][]float64{{math.Inf(1), 0}}
	_, err = dtw.DTW(a, b, nil)
	assert.ErrorIs(t, err, dtw.ErrNonFinite)
}

func TestDTW_CustomCost(t *testing.T) {
	manhattan := func(a, b []float64) float64 {
		s := 0.0
		for i := range a {
			s += math.Abs(a[i] - b[i])
		}
		return s
	}
	opts := dtw.DefaultOptions()
	opts.Cost = manhattan

	dist, err := dtw.DTW([][]float64{{0, 0}}, [][]float64{{3, 4}}, &opts)
	require.NoError(t, err)
	assert.Equal(t, 7.0, dist)
}
