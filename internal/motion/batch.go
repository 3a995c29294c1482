package motion

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/motion.report/internal/fsutil"
)

// Pair names two documents to compare.
type Pair struct {
	ID        string `json:"id" yaml:"id"`
	User      string `json:"user" yaml:"user"`
	Reference string `json:"reference" yaml:"reference"`
}

// BatchResult is the outcome of one pair. Err is a load error or, for pairs
// never started, the context error.
type BatchResult struct {
	Pair   Pair
	Report Report
	Err    error
}

// CompareBatch compares every pair using at most workers goroutines
// (GOMAXPROCS when workers <= 0). Results are returned in input order and
// each diagnostic line is prefixed with its pair ID.
// Cancelling ctx stops new pairs from starting; pairs already running
// finish.
func (e *Engine) CompareBatch(ctx context.Context, fsys fsutil.FileSystem, pairs []Pair, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]BatchResult, len(pairs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range pairs {
		results[i].Pair = p
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			report, err := e.prefixed("["+p.ID+"] ").CompareFiles(fsys, p.User, p.Reference)
			results[i].Report = report
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// prefixed returns a copy of e whose diagnostics start with prefix, so that
// lines from concurrent pairs can be told apart.
func (e *Engine) prefixed(prefix string) *Engine {
	c := *e
	c.logf = func(format string, v ...interface{}) {
		e.log("%s"+format, append([]interface{}{prefix}, v...)...)
	}
	return &c
}
