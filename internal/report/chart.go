package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/pose"
)

// AssetsHost serves the echarts JavaScript for rendered pages.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderChartHTML renders an HTML page with the similarity trace as a line
// chart and the per-region scores as a bar chart.
func RenderChartHTML(w io.Writer, res motion.Result, subtitle string) error {
	xs, ys := res.Series()
	frames := make([]int, len(xs))
	points := make([]opts.LineData, len(ys))
	for i := range xs {
		frames[i] = int(xs[i])
		points[i] = opts.LineData{Value: ys[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Motion Comparison", Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Frame-by-Frame Pose Similarity",
			Subtitle: fmt.Sprintf("%s overall=%.2f%% timing=%.2f%%", subtitle, res.OverallSimilarity*100, res.TimingAlignment*100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Similarity Score", Max: 1}),
	)
	line.SetXAxis(frames).AddSeries("similarity", points)

	regions := make([]string, 0, len(pose.Regions))
	scores := make([]opts.BarData, 0, len(pose.Regions))
	for _, r := range pose.Regions {
		v, ok := res.KeyPointsAnalysis[r.String()]
		if !ok {
			continue
		}
		regions = append(regions, r.Title())
		scores = append(scores, opts.BarData{Value: v})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Key Points Analysis"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Similarity", Max: 1}),
	)
	bar.SetXAxis(regions).
		AddSeries("regions", scores,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(line, bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
