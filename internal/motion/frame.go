package motion

import (
	"github.com/banshee-data/motion.report/internal/pose"
	"gonum.org/v1/gonum/stat"
)

// FrameScore is the similarity of one aligned row pair.
type FrameScore struct {
	Frame      int     `json:"frame"`
	Similarity float64 `json:"similarity"`
}

// FrameSimilarity compares rows index by index over the shorter of the two
// sequences; rows past that length are ignored. Pairs where either row has
// a non-finite value are left out of both the trace and the mean. The mean
// is 0.0 when no pair qualifies.
func FrameSimilarity(user, ref *pose.Sequence) ([]FrameScore, float64) {
	n := min(user.Len(), ref.Len())
	trace := make([]FrameScore, 0, n)
	sims := make([]float64, 0, n)

	for i := 0; i < n; i++ {
		u, r := user.Rows[i], ref.Rows[i]
		if len(u) != len(r) || !allFinite(u) || !allFinite(r) {
			continue
		}
		s := CosineSimilarity(u, r)
		trace = append(trace, FrameScore{Frame: i, Similarity: s})
		sims = append(sims, s)
	}

	if len(sims) == 0 {
		return trace, 0
	}
	return trace, stat.Mean(sims, nil)
}
