package motion

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns 1 minus the cosine distance between a and b,
// clipped to [-1, 1]. A zero-norm vector carries no direction and scores
// 0.0. Inputs must have equal length and finite values.
func CosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	s := floats.Dot(a, b) / (na * nb)
	return math.Max(-1, math.Min(1, s))
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
