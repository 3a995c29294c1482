package motion

import (
	"math"

	"github.com/banshee-data/motion.report/internal/pose"
)

// RegionSimilarity compares the mean pose of each body region. For every
// region the region's columns are averaged over all rows, skipping
// non-finite entries (a column with no finite entry averages to 0.0), and
// the two mean vectors are compared by cosine similarity. A region whose
// columns fall outside the sequence width, or whose means are non-finite,
// scores 0.0.
func RegionSimilarity(user, ref *pose.Sequence, topo *pose.Topology) map[string]float64 {
	out := make(map[string]float64, len(pose.Regions))
	if topo == nil {
		return out
	}

	for _, region := range pose.Regions {
		idx, ok := topo.Regions[region]
		if !ok {
			continue
		}
		name := region.String()
		cols := pose.Columns(idx)
		if !fits(cols, user.Width) || !fits(cols, ref.Width) {
			out[name] = 0
			continue
		}

		um, rm := columnMeans(user, cols), columnMeans(ref, cols)
		if !allFinite(um) || !allFinite(rm) {
			out[name] = 0
			continue
		}
		out[name] = CosineSimilarity(um, rm)
	}
	return out
}

func fits(cols []int, width int) bool {
	for _, c := range cols {
		if c < 0 || c >= width {
			return false
		}
	}
	return len(cols) > 0
}

func columnMeans(seq *pose.Sequence, cols []int) []float64 {
	means := make([]float64, len(cols))
	for j, c := range cols {
		sum, n := 0.0, 0
		for _, row := range seq.Rows {
			if v := row[c]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
				n++
			}
		}
		if n > 0 {
			means[j] = sum / float64(n)
		}
	}
	return means
}
