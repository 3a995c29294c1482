package dtw

import "errors"

// CostFunc is the local distance between two points of equal dimension.
type CostFunc func(a, b []float64) float64

// Options configures DTW.
//
// Window is the Sakoe–Chiba band half-width. Values of 0 or -1 disable the
// band; a positive window narrower than the length difference of the
// inputs is widened so that the end point stays reachable.
type Options struct {
	Window       int
	SlopePenalty float64
	Cost         CostFunc
}

// DefaultOptions returns an unconstrained Euclidean configuration.
func DefaultOptions() Options {
	return Options{Window: -1, Cost: Euclidean}
}

var (
	// ErrEmptyInput indicates one or both inputs are empty.
	ErrEmptyInput = errors.New("dtw: input sequences must be non-empty")

	// ErrBadInput indicates invalid options or ragged point dimensions.
	ErrBadInput = errors.New("dtw: invalid input")

	// ErrNonFinite indicates a NaN or infinite local or accumulated cost.
	ErrNonFinite = errors.New("dtw: non-finite cost")
)
