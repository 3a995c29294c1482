package dtw

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Euclidean is the L2 distance between a and b.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// DTW computes the warping distance between a and b.
func DTW(a, b [][]float64, opts *Options) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyInput
	}

	o := DefaultOptions()
	if opts != nil {
		o = *opts
		if o.Cost == nil {
			o.Cost = Euclidean
		}
	}
	if o.Window < -1 {
		return 0, fmt.Errorf("%w: window %d", ErrBadInput, o.Window)
	}
	if err := checkDims(a, b); err != nil {
		return 0, err
	}

	// The distance is symmetric, so rows run over the shorter input.
	if len(b) > len(a) {
		a, b = b, a
	}
	n, m := len(a), len(b)

	window := -1
	if o.Window > 0 {
		window = max(o.Window, n-m)
	}
	inBand := func(i, j int) bool {
		return window < 0 || absInt(i-j) <= window
	}

	inf := math.Inf(1)
	prev := make([]float64, m)
	curr := make([]float64, m)

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if !inBand(i, j) {
				curr[j] = inf
				continue
			}
			cost := o.Cost(a[i], b[j])
			if math.IsNaN(cost) || math.IsInf(cost, 0) {
				return 0, ErrNonFinite
			}

			var best float64
			switch {
			case i == 0 && j == 0:
				best = 0
			case i == 0:
				best = curr[j-1] + o.SlopePenalty
			case j == 0:
				best = prev[j] + o.SlopePenalty
			default:
				best = math.Min(prev[j-1], math.Min(prev[j], curr[j-1])+o.SlopePenalty)
			}
			curr[j] = cost + best
		}
		prev, curr = curr, prev
	}

	distance := prev[m-1]
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0, ErrNonFinite
	}
	return distance, nil
}

func checkDims(a, b [][]float64) error {
	dim := len(a[0])
	for _, seq := range [][][]float64{a, b} {
		for i, p := range seq {
			if len(p) != dim {
				return fmt.Errorf("%w: point %d has dimension %d, want %d", ErrBadInput, i, len(p), dim)
			}
		}
	}
	return nil
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
