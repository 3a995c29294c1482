package motion

import (
	"time"

	"github.com/banshee-data/motion.report/internal/dtw"
	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// Options are the immutable parameters of an Engine.
type Options struct {
	NormEpsilon      float64
	DTW              dtw.Options
	Topology         *pose.Topology
	Policy           pose.SelectionPolicy
	MaxDocumentBytes int64
}

// DefaultOptions reproduces the reference behaviour: eps 1e-7, unconstrained
// Euclidean DTW, BlazePose33 and first-pose selection.
func DefaultOptions() Options {
	return Options{
		NormEpsilon:      DefaultNormEpsilon,
		DTW:              dtw.DefaultOptions(),
		Topology:         pose.BlazePose33,
		Policy:           pose.SelectFirst,
		MaxDocumentBytes: pose.DefaultMaxDocumentBytes,
	}
}

// Engine runs comparisons. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	opts  Options
	clock timeutil.Clock
	logf  func(format string, v ...interface{})
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithClock sets the clock used to time comparisons.
func WithClock(c timeutil.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLogf sets the diagnostics logger. By default the engine logs through
// monitoring.Logf.
func WithLogf(logf func(format string, v ...interface{})) EngineOption {
	return func(e *Engine) { e.logf = logf }
}

// NewEngine builds an engine. Zero-valued fields of opts fall back to
// DefaultOptions.
func NewEngine(opts Options, options ...EngineOption) *Engine {
	def := DefaultOptions()
	if opts.NormEpsilon <= 0 {
		opts.NormEpsilon = def.NormEpsilon
	}
	if opts.Topology == nil {
		opts.Topology = def.Topology
	}
	if opts.DTW.Cost == nil {
		opts.DTW.Cost = dtw.Euclidean
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = def.MaxDocumentBytes
	}

	e := &Engine{opts: opts, clock: timeutil.RealClock{}}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns a copy of the engine's options.
func (e *Engine) Options() Options { return e.opts }

func (e *Engine) log(format string, v ...interface{}) {
	if e.logf != nil {
		e.logf(format, v...)
		return
	}
	monitoring.Logf(format, v...)
}

// Compare scores user against ref. If either sequence is empty the default
// result is returned with Error set and no further work is done.
func (e *Engine) Compare(user, ref *pose.Sequence) Result {
	res := NewResult()

	e.log("Sequence Information:")
	e.log("User sequence shape: %s", user.Shape())
	e.log("Reference sequence shape: %s", ref.Shape())

	if user.Len() == 0 {
		e.log("ERROR: User sequence is empty - no poses detected")
		res.Error = ErrMsgNoUserPoses
		return res
	}
	if ref.Len() == 0 {
		e.log("ERROR: Reference sequence is empty - no poses detected")
		res.Error = ErrMsgNoReferencePoses
		return res
	}

	un := Normalize(user, e.opts.NormEpsilon)
	rn := Normalize(ref, e.opts.NormEpsilon)

	res.FrameByFrame, res.OverallSimilarity = FrameSimilarity(un, rn)

	timing, err := TimingAlignment(un, rn, e.opts.DTW)
	if err != nil {
		e.log("DTW calculation failed: %v", err)
	}
	res.TimingAlignment = timing

	res.KeyPointsAnalysis = RegionSimilarity(un, rn, e.opts.Topology)
	return res
}

// Input is one side of a comparison.
type Input struct {
	Source      string
	Document    *pose.Document
	Diagnostics *pose.Diagnostics
}

// Side summarises how one input was turned into a sequence.
type Side struct {
	Source      string            `json:"source"`
	Diagnostics *pose.Diagnostics `json:"diagnostics"`
	Extract     pose.ExtractStats `json:"extract"`
	Shape       string            `json:"shape"`
}

// Report is a Result together with what was learned about each input.
type Report struct {
	Result    Result        `json:"comparison"`
	User      Side          `json:"user"`
	Reference Side          `json:"reference"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// CompareDocuments extracts and compares two decoded documents.
func (e *Engine) CompareDocuments(user, ref *pose.Document) Report {
	return e.CompareInputs(Input{Source: "user", Document: user}, Input{Source: "reference", Document: ref})
}

// CompareInputs extracts and compares two inputs, keeping any diagnostics
// produced at load time.
func (e *Engine) CompareInputs(user, ref Input) Report {
	start := e.clock.Now()

	us, uside := e.extract(user)
	rs, rside := e.extract(ref)
	res := e.Compare(us, rs)

	elapsed := e.clock.Since(start)
	status := "ok"
	if res.Degraded() {
		status = "degraded"
	}
	monitoring.ObserveComparison(status, elapsed, res.OverallSimilarity)

	return Report{Result: res, User: uside, Reference: rside, Elapsed: elapsed}
}

func (e *Engine) extract(in Input) (*pose.Sequence, Side) {
	seq, stats := pose.Extract(in.Document, pose.ExtractOptions{Topology: e.opts.Topology, Policy: e.opts.Policy})

	e.log("Extracted sequence length: %d", seq.Len())
	if seq.Len() == 0 {
		e.log("WARNING: No valid pose sequences extracted!")
	}
	if stats.FieldFaults > 0 || stats.ShapeFaults > 0 {
		e.log("Repaired %d landmark fields and %d short or long poses in %s", stats.FieldFaults, stats.ShapeFaults, in.Source)
	}

	diag := in.Diagnostics
	if diag == nil {
		diag = pose.Diagnose(in.Source, in.Document)
	}
	return seq, Side{Source: in.Source, Diagnostics: diag, Extract: stats, Shape: seq.Shape()}
}

// Loader returns a document loader configured with the engine's limits.
func (e *Engine) Loader(fsys fsutil.FileSystem) *pose.Loader {
	return &pose.Loader{FS: fsys, MaxBytes: e.opts.MaxDocumentBytes, Logf: e.log}
}

// CompareFiles loads both documents from fsys and compares them. Load
// failures are returned unchanged as *pose.LoadError.
func (e *Engine) CompareFiles(fsys fsutil.FileSystem, userPath, refPath string) (Report, error) {
	loader := e.Loader(fsys)

	userDoc, userDiag, err := loader.Load(userPath)
	if err != nil {
		monitoring.ObserveLoadError(pose.KindOf(err).String())
		return Report{}, err
	}
	refDoc, refDiag, err := loader.Load(refPath)
	if err != nil {
		monitoring.ObserveLoadError(pose.KindOf(err).String())
		return Report{}, err
	}

	return e.CompareInputs(
		Input{Source: userPath, Document: userDoc, Diagnostics: userDiag},
		Input{Source: refPath, Document: refDoc, Diagnostics: refDiag},
	), nil
}
