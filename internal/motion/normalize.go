// Package motion scores how closely a user's movement follows a reference
// movement, given the pose sequences extracted from both recordings.
//
// Scoring runs in three independent passes over scale-normalised rows: a
// frame-synchronous cosine similarity, a DTW-based timing alignment and a
// per-body-region comparison of mean poses. Everything after loading is
// total: degenerate input produces a zero score, never an error.
package motion

import (
	"github.com/banshee-data/motion.report/internal/pose"
	"gonum.org/v1/gonum/floats"
)

// DefaultNormEpsilon keeps all-zero rows from dividing by zero.
const DefaultNormEpsilon = 1e-7

// Normalize returns a new sequence in which every row is divided by its
// Euclidean norm plus eps. All-zero rows stay all-zero; rows with
// non-finite values come out non-finite.
func Normalize(seq *pose.Sequence, eps float64) *pose.Sequence {
	out := &pose.Sequence{
		Width:      seq.Width,
		Rows:       make([][]float64, len(seq.Rows)),
		FrameIndex: append([]int(nil), seq.FrameIndex...),
	}
	for i, row := range seq.Rows {
		d := floats.Norm(row, 2) + eps
		n := make([]float64, len(row))
		for j, v := range row {
			n[j] = v / d
		}
		out.Rows[i] = n
	}
	return out
}
