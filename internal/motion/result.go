package motion

// Messages set on Result.Error when one side has no usable poses.
const (
	ErrMsgNoUserPoses      = "No poses detected in user video"
	ErrMsgNoReferencePoses = "No poses detected in reference video"
)

// Result is the outcome of comparing two sequences. All scores default to
// zero; Error is set only when a side had no poses at all.
type Result struct {
	FrameByFrame      []FrameScore       `json:"frame_by_frame"`
	OverallSimilarity float64            `json:"overall_similarity"`
	TimingAlignment   float64            `json:"timing_alignment"`
	KeyPointsAnalysis map[string]float64 `json:"key_points_analysis"`
	Error             string             `json:"error,omitempty"`
}

// NewResult returns the zero-default result with non-nil collections, so it
// serialises as [] and {} rather than null.
func NewResult() Result {
	return Result{
		FrameByFrame:      []FrameScore{},
		KeyPointsAnalysis: map[string]float64{},
	}
}

// Series returns the frame-by-frame trace as plot coordinates: the aligned
// row index against its similarity.
func (r Result) Series() (x, y []float64) {
	x = make([]float64, len(r.FrameByFrame))
	y = make([]float64, len(r.FrameByFrame))
	for i, f := range r.FrameByFrame {
		x[i] = float64(f.Frame)
		y[i] = f.Similarity
	}
	return x, y
}

// Degraded reports whether the result carries an error message.
func (r Result) Degraded() bool { return r.Error != "" }
