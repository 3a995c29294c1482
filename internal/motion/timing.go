package motion

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/motion.report/internal/dtw"
	"github.com/banshee-data/motion.report/internal/pose"
)

// timingChannels are the columns fed to DTW: x, y, z of the first landmark.
var timingChannels = []int{0, 1, 2}

// ErrTooNarrow is returned when a sequence has fewer than three columns.
var ErrTooNarrow = errors.New("motion: sequence too narrow for timing alignment")

// TimingAlignment warps the first three channels of user onto ref and maps
// the DTW distance d to 1/(1+d). Any failure, including a panic in the DTW
// kernel, yields 0.0 together with the cause.
func TimingAlignment(user, ref *pose.Sequence, opts dtw.Options) (score float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			score, err = 0, fmt.Errorf("dtw panicked: %v", p)
		}
	}()

	if user.Width < len(timingChannels) || ref.Width < len(timingChannels) {
		return 0, ErrTooNarrow
	}

	if opts.Cost == nil {
		opts.Cost = dtw.Euclidean
	}
	d, err := dtw.DTW(user.Project(timingChannels).Rows, ref.Project(timingChannels).Rows, &opts)
	if err != nil {
		return 0, err
	}

	score = 1 / (1 + d)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, dtw.ErrNonFinite
	}
	return score, nil
}
