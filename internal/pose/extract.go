package pose

import (
	"fmt"
	"math"
	"strings"
)

// SelectionPolicy decides which pose of a multi-person frame feeds the
// sequence.
type SelectionPolicy int

const (
	// SelectFirst takes the first pose listed in the frame.
	SelectFirst SelectionPolicy = iota
	// SelectMostVisible takes the pose with the highest mean visibility.
	SelectMostVisible
	// SelectLargestExtent takes the pose whose x/y bounding box is largest.
	SelectLargestExtent
)

func (p SelectionPolicy) String() string {
	switch p {
	case SelectFirst:
		return "first"
	case SelectMostVisible:
		return "most_visible"
	case SelectLargestExtent:
		return "largest_extent"
	}
	return fmt.Sprintf("SelectionPolicy(%d)", int(p))
}

// ParseSelectionPolicy parses a policy name. The empty string is SelectFirst.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return SelectFirst, nil
	case "most_visible":
		return SelectMostVisible, nil
	case "largest_extent":
		return SelectLargestExtent, nil
	}
	return SelectFirst, fmt.Errorf("unknown selection policy %q (want first, most_visible or largest_extent)", s)
}

// ExtractOptions configures Extract. The zero value uses BlazePose33 and
// SelectFirst.
type ExtractOptions struct {
	Topology *Topology
	Policy   SelectionPolicy
}

// ExtractStats counts what Extract had to skip or repair.
type ExtractStats struct {
	Rows          int `json:"rows"`
	SkippedFrames int `json:"skipped_frames"`
	// FieldFaults counts numeric fields that decoded to 0.0.
	FieldFaults int `json:"field_faults"`
	// ShapeFaults counts rows whose pose did not have exactly L landmarks.
	ShapeFaults int `json:"shape_faults"`
}

// Extract builds one feature row per frame that has at least one pose.
// Frames without poses are skipped, so rows are dense but still in frame
// order. Faulted fields and missing landmarks are filled with 0.0 and never
// drop the frame.
func Extract(doc *Document, opts ExtractOptions) (*Sequence, ExtractStats) {
	topo := opts.Topology
	if topo == nil {
		topo = BlazePose33
	}
	seq := NewSequence(topo.Width())

	var stats ExtractStats
	if doc == nil {
		return seq, stats
	}

	for i, frame := range doc.Frames {
		if len(frame.Poses) == 0 {
			stats.SkippedFrames++
			continue
		}
		p := selectPose(frame.Poses, opts.Policy)

		row := make([]float64, seq.Width)
		n := len(p.Landmarks)
		if n != topo.Size() {
			stats.ShapeFaults++
		}
		if n > topo.Size() {
			n = topo.Size()
		}
		for j := 0; j < n; j++ {
			lm := p.Landmarks[j]
			base := j * FieldsPerLandmark
			row[base] = lm.X.V
			row[base+1] = lm.Y.V
			row[base+2] = lm.Z.V
			row[base+3] = lm.Visibility.V
			stats.FieldFaults += lm.Faults()
		}
		seq.Append(i, row)
	}
	stats.Rows = seq.Len()
	return seq, stats
}

func selectPose(poses []Pose, policy SelectionPolicy) *Pose {
	best := 0
	switch policy {
	case SelectMostVisible:
		bestScore := math.Inf(-1)
		for i := range poses {
			if s := meanVisibility(poses[i]); s > bestScore {
				best, bestScore = i, s
			}
		}
	case SelectLargestExtent:
		bestScore := math.Inf(-1)
		for i := range poses {
			if s := extent(poses[i]); s > bestScore {
				best, bestScore = i, s
			}
		}
	}
	return &poses[best]
}

func meanVisibility(p Pose) float64 {
	sum, n := 0.0, 0
	for _, lm := range p.Landmarks {
		if v := lm.Visibility.V; !lm.Visibility.Fault && isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func extent(p Pose) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, lm := range p.Landmarks {
		x, y := lm.X.V, lm.Y.V
		if lm.X.Fault || lm.Y.Fault || !isFinite(x) || !isFinite(y) {
			continue
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if minX > maxX {
		return 0
	}
	return (maxX - minX) * (maxY - minY)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
