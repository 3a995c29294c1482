package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/security"
)

func runLocal(fsys fsutil.FileSystem, cfg *config.ComparisonConfig, opts *Options, stdout io.Writer) error {
	engine := motion.NewEngine(cfg.ToEngineOptions())
	rep, err := engine.CompareFiles(fsys, opts.Args[0], opts.Args[1])
	if err != nil {
		return err
	}
	return finish(fsys, rep.Result, opts.Output, stdout)
}

func runRemote(ctx context.Context, fsys fsutil.FileSystem, opts *Options, stdout io.Writer) error {
	user, err := fsys.ReadFile(opts.Args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.Args[0], err)
	}
	ref, err := fsys.ReadFile(opts.Args[1])
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.Args[1], err)
	}

	resp, err := api.NewClient(opts.Server, nil).Compare(ctx, api.CompareRequest{
		UserName:      filepath.Base(opts.Args[0]),
		ReferenceName: filepath.Base(opts.Args[1]),
		User:          user,
		Reference:     ref,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Stored as run %s\n", resp.RunID)
	return finish(fsys, resp.Comparison, opts.Output, stdout)
}

func finish(fsys fsutil.FileSystem, res motion.Result, output string, stdout io.Writer) error {
	printResults(stdout, res)
	if output == "" {
		return nil
	}
	if _, err := report.WriteArtifacts(fsys, output, res); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nDetailed results and visualizations saved to: %s\n", output)
	return nil
}

func printResults(w io.Writer, res motion.Result) {
	fmt.Fprintln(w, "\nComparison Results:")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Overall Similarity: %.2f%%\n", res.OverallSimilarity*100)
	fmt.Fprintf(w, "Timing Alignment: %.2f%%\n", res.TimingAlignment*100)
	fmt.Fprintln(w, "\nKey Points Analysis:")
	for _, region := range pose.Regions {
		if score, ok := res.KeyPointsAnalysis[region.String()]; ok {
			fmt.Fprintf(w, "- %s: %.2f%%\n", region.Title(), score*100)
		}
	}
	if res.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", res.Error)
	}
}

// pairsFile is the batch file layout. Relative paths are resolved against
// the directory holding the file.
type pairsFile struct {
	Pairs []motion.Pair `json:"pairs" yaml:"pairs"`
}

func loadPairs(fsys fsutil.FileSystem, path string) ([]motion.Pair, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var pf pairsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pf)
	default:
		err = json.Unmarshal(data, &pf)
	}
	if err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	if len(pf.Pairs) == 0 {
		return nil, fmt.Errorf("batch file %s lists no pairs", path)
	}

	base := filepath.Dir(path)
	for i := range pf.Pairs {
		p := &pf.Pairs[i]
		if p.User == "" || p.Reference == "" {
			return nil, fmt.Errorf("pair %d: user and reference are required", i)
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("pair-%03d", i+1)
		}
		if !filepath.IsAbs(p.User) {
			p.User = filepath.Join(base, p.User)
		}
		if !filepath.IsAbs(p.Reference) {
			p.Reference = filepath.Join(base, p.Reference)
		}
	}
	return pf.Pairs, nil
}

func runBatch(ctx context.Context, fsys fsutil.FileSystem, cfg *config.ComparisonConfig, opts *Options, stdout io.Writer) error {
	pairs, err := loadPairs(fsys, opts.Batch)
	if err != nil {
		return err
	}

	engine := motion.NewEngine(cfg.ToEngineOptions())
	results := engine.CompareBatch(ctx, fsys, pairs, cfg.GetBatchWorkers())

	fmt.Fprintln(stdout, "\nBatch Results:")
	fmt.Fprintln(stdout, "==================")
	failed := 0
	for _, br := range results {
		if br.Err != nil {
			failed++
			fmt.Fprintf(stdout, "%s: FAILED: %v\n", br.Pair.ID, br.Err)
			continue
		}
		res := br.Report.Result
		fmt.Fprintf(stdout, "%s: overall %.2f%%, timing %.2f%%", br.Pair.ID, res.OverallSimilarity*100, res.TimingAlignment*100)
		if res.Error != "" {
			fmt.Fprintf(stdout, " (%s)", res.Error)
		}
		fmt.Fprintln(stdout)

		if opts.Output != "" {
			dir := filepath.Join(opts.Output, security.SanitizeFilename(br.Pair.ID))
			if _, err := report.WriteArtifacts(fsys, dir, res); err != nil {
				return fmt.Errorf("write artifacts for %s: %w", br.Pair.ID, err)
			}
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(stdout, "\nDetailed results and visualizations saved to: %s\n", opts.Output)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pairs failed", failed, len(results))
	}
	return nil
}
