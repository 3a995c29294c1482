package pose

import (
	"fmt"
	"path/filepath"
)

// Diagnostics summarises pose coverage of a loaded document. It is
// informational only; a document with zero coverage still loads.
type Diagnostics struct {
	Source          string   `json:"source"`
	TotalFrames     int      `json:"total_frames"`
	FramesWithPose  int      `json:"frames_with_pose"`
	CoveragePercent float64  `json:"coverage_percent"`
	CoverageDefined bool     `json:"coverage_defined"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Diagnose computes coverage for doc. Coverage is undefined, and reported as
// zero, when the document has no frames at all.
func Diagnose(source string, doc *Document) *Diagnostics {
	d := &Diagnostics{Source: source}
	if doc != nil {
		d.TotalFrames = len(doc.Frames)
		d.FramesWithPose = doc.FramesWithPose()
	}
	if d.TotalFrames > 0 {
		d.CoverageDefined = true
		d.CoveragePercent = float64(d.FramesWithPose) / float64(d.TotalFrames) * 100
	}
	if d.FramesWithPose == 0 {
		d.Warnings = append(d.Warnings, fmt.Sprintf("No poses detected in %s", source))
	}
	return d
}

// Log writes the diagnostics block through logf.
func (d *Diagnostics) Log(logf func(format string, v ...interface{})) {
	if d == nil || logf == nil {
		return
	}
	logf("Diagnostic info for %s:", filepath.Base(d.Source))
	logf("Total frames: %d", d.TotalFrames)
	logf("Frames with poses: %d", d.FramesWithPose)
	if d.CoverageDefined {
		logf("Percentage of frames with poses: %.2f%%", d.CoveragePercent)
	} else {
		logf("Percentage of frames with poses: n/a (no frames)")
	}
	for _, w := range d.Warnings {
		logf("WARNING: %s", w)
	}
}
