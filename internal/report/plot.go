package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.report/internal/motion"
)

// RenderPlotPNG draws the frame-by-frame similarity trace as a 12x6 inch
// PNG line plot.
func RenderPlotPNG(w io.Writer, res motion.Result) error {
	p := plot.New()
	p.Title.Text = "Frame-by-Frame Pose Similarity"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Similarity Score"
	p.Add(plotter.NewGrid())

	xs, ys := res.Series()
	if len(xs) > 0 {
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("similarity line: %w", err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
	} else {
		// an empty plot still needs a valid range
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	}

	wt, err := p.WriterTo(12*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render similarity graph: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write similarity graph: %w", err)
	}
	return nil
}
