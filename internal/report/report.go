// Package report renders comparison results as files: the JSON result, a
// PNG similarity graph and an interactive HTML chart.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/motion"
)

// Artifact file names written into the output directory.
const (
	ResultsFile = "comparison_results.json"
	GraphFile   = "similarity_graph.png"
	ChartFile   = "similarity_chart.html"
)

// Artifacts lists the files written by WriteArtifacts.
type Artifacts struct {
	Dir     string
	Results string
	Graph   string
	Chart   string
}

// MarshalResult encodes res with two-space indentation.
func MarshalResult(res motion.Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteArtifacts creates dir if needed and writes the result JSON, the
// similarity graph and the HTML chart into it.
func WriteArtifacts(fsys fsutil.FileSystem, dir string, res motion.Result) (*Artifacts, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	dir = filepath.Clean(dir)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	a := &Artifacts{
		Dir:     dir,
		Results: filepath.Join(dir, ResultsFile),
		Graph:   filepath.Join(dir, GraphFile),
		Chart:   filepath.Join(dir, ChartFile),
	}

	data, err := MarshalResult(res)
	if err != nil {
		return nil, err
	}
	if err := fsys.WriteFile(a.Results, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ResultsFile, err)
	}

	var png bytes.Buffer
	if err := RenderPlotPNG(&png, res); err != nil {
		return nil, err
	}
	if err := fsys.WriteFile(a.Graph, png.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", GraphFile, err)
	}

	var html bytes.Buffer
	if err := RenderChartHTML(&html, res, filepath.Base(dir)); err != nil {
		return nil, err
	}
	if err := fsys.WriteFile(a.Chart, html.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ChartFile, err)
	}

	monitoring.Logf("[report] wrote %s, %s and %s to %s", ResultsFile, GraphFile, ChartFile, dir)
	return a, nil
}
