package motion_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/testutil"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) logf(format string, v ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf(format, v...))
}

func newEngine(t *testing.T) (*motion.Engine, *logSink) {
	t.Helper()
	sink := &logSink{}
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	clock.SetStep(5 * time.Millisecond)
	return motion.NewEngine(motion.DefaultOptions(), motion.WithClock(clock), motion.WithLogf(sink.logf)), sink
}

func singleLandmarkDoc(frames int) *pose.Document {
	fs := make([]pose.Frame, frames)
	for i := range fs {
		fs[i] = testutil.PoseFrame(i, []pose.Landmark{{
			X: pose.Float(1), Y: pose.Float(0), Z: pose.Float(0), Visibility: pose.Float(1),
		}})
	}
	return testutil.Document(fs...)
}

func TestEngine_SingleLandmarkScenario(t *testing.T) {
	e, _ := newEngine(t)
	report := e.CompareDocuments(singleLandmarkDoc(5), singleLandmarkDoc(5))
	res := report.Result

	assert.Empty(t, res.Error)
	require.Len(t, res.FrameByFrame, 5)
	assert.InDelta(t, 1.0, res.OverallSimilarity, 1e-9)
	assert.InDelta(t, 1.0, res.TimingAlignment, 1e-9)
	assert.InDelta(t, 1.0, res.KeyPointsAnalysis["head"], 1e-9)
	// every other region is all zeros on both sides
	assert.Equal(t, 0.0, res.KeyPointsAnalysis["arms"])
	assert.Equal(t, 5, report.User.Extract.ShapeFaults)
	assert.Equal(t, 5*time.Millisecond, report.Elapsed)
}

func TestEngine_IdenticalSynthetic(t *testing.T) {
	e, _ := newEngine(t)
	doc := pose.Synthesize(pose.SynthOptions{Frames: 40, Seed: 3})

	res := e.CompareDocuments(doc, doc).Result
	require.Len(t, res.FrameByFrame, 40)
	for _, f := range res.FrameByFrame {
		assert.InDelta(t, 1.0, f.Similarity, 1e-9)
	}
	assert.InDelta(t, 1.0, res.OverallSimilarity, 1e-9)
	assert.Equal(t, 1.0, res.TimingAlignment)
	for _, r := range pose.Regions {
		assert.InDelta(t, 1.0, res.KeyPointsAnalysis[r.String()], 1e-9, r.String())
	}
}

func TestEngine_PhaseShiftLowersTiming(t *testing.T) {
	e, _ := newEngine(t)
	user := pose.Synthesize(pose.SynthOptions{Frames: 60, Seed: 1})
	ref := pose.Synthesize(pose.SynthOptions{Frames: 60, Seed: 1, Phase: math.Pi / 2, Amplitude: 0.2})

	res := e.CompareDocuments(user, ref).Result
	assert.Less(t, res.TimingAlignment, 1.0)
	assert.Greater(t, res.TimingAlignment, 0.0)
	assert.Less(t, res.OverallSimilarity, 1.0)
}

func TestEngine_EmptySequences(t *testing.T) {
	e, sink := newEngine(t)
	empty := testutil.Document()
	full := singleLandmarkDoc(3)

	tests := []struct {
		name      string
		user, ref *pose.Document
		wantErr   string
	}{
		{"empty user", empty, full, motion.ErrMsgNoUserPoses},
		{"empty reference", full, empty, motion.ErrMsgNoReferencePoses},
		{"both empty", empty, empty, motion.ErrMsgNoUserPoses},
		{"poses missing everywhere", testutil.Document(testutil.EmptyFrame(0)), full, motion.ErrMsgNoUserPoses},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.CompareDocuments(tt.user, tt.ref).Result
			assert.Equal(t, tt.wantErr, res.Error)
			assert.Equal(t, 0.0, res.OverallSimilarity)
			assert.Equal(t, 0.0, res.TimingAlignment)
			assert.NotNil(t, res.KeyPointsAnalysis)
			assert.Empty(t, res.KeyPointsAnalysis)
			assert.True(t, res.Degraded())

			data, err := json.Marshal(res)
			require.NoError(t, err)
			assert.JSONEq(t, fmt.Sprintf(`{
				"frame_by_frame": [],
				"overall_similarity": 0,
				"timing_alignment": 0,
				"key_points_analysis": {},
				"error": %q
			}`, tt.wantErr), string(data))
		})
	}
	assert.Contains(t, sink.lines, "WARNING: No valid pose sequences extracted!")
}

func TestEngine_NonNumericVisibility(t *testing.T) {
	raw := `{"frames": [{"poses": [{"landmarks": [{"x": 0.5, "y": 0.4, "z": 0.1, "visibility": "visible"}]}]}]}`
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteRaw(t, mfs, "/u.json", []byte(raw))
	testutil.WriteRaw(t, mfs, "/r.json", []byte(raw))

	e, _ := newEngine(t)
	report, err := e.CompareFiles(mfs, "/u.json", "/r.json")
	require.NoError(t, err)
	assert.Equal(t, 1, report.User.Extract.Rows)
	assert.Equal(t, 1, report.User.Extract.FieldFaults)
	assert.InDelta(t, 1.0, report.Result.OverallSimilarity, 1e-9)
}

func TestEngine_Idempotent(t *testing.T) {
	e, _ := newEngine(t)
	user := pose.Synthesize(pose.SynthOptions{Frames: 25, Seed: 11, Dropout: 0.2})
	ref := pose.Synthesize(pose.SynthOptions{Frames: 30, Seed: 12, Phase: 1})

	first := e.CompareDocuments(user, ref).Result
	second := e.CompareDocuments(user, ref).Result
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated comparison differs (-first +second):\n%s", diff)
	}
}

func TestEngine_RegionScaleInvariance(t *testing.T) {
	e, _ := newEngine(t)
	ref := pose.Synthesize(pose.SynthOptions{Frames: 20, Seed: 5})
	user := pose.Synthesize(pose.SynthOptions{Frames: 20, Seed: 5, Phase: 0.7})

	scaled := pose.Synthesize(pose.SynthOptions{Frames: 20, Seed: 5, Phase: 0.7})
	for i := range scaled.Frames {
		k := 1.5 + float64(i)
		for j := range scaled.Frames[i].Poses[0].Landmarks {
			lm := &scaled.Frames[i].Poses[0].Landmarks[j]
			lm.X.V *= k
			lm.Y.V *= k
			lm.Z.V *= k
			lm.Visibility.V *= k
		}
	}

	base := e.CompareDocuments(user, ref).Result
	got := e.CompareDocuments(scaled, ref).Result
	for name, v := range base.KeyPointsAnalysis {
		assert.InDelta(t, v, got.KeyPointsAnalysis[name], 1e-6, name)
	}
}

func TestEngine_CompareFilesLoadErrors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteDocument(t, mfs, "/ok.json", singleLandmarkDoc(2))
	testutil.WriteRaw(t, mfs, "/schema.json", []byte(`{"fps": 30}`))

	e, _ := newEngine(t)
	_, err := e.CompareFiles(mfs, "/missing.json", "/ok.json")
	assert.ErrorIs(t, err, pose.ErrNotFound)

	_, err = e.CompareFiles(mfs, "/ok.json", "/schema.json")
	var le *pose.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, pose.KindMissingSchema, le.Kind)
	assert.Equal(t, "/schema.json", le.Source)
}

func TestEngine_ReportCarriesDiagnostics(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteDocument(t, mfs, "/clips/user.json", testutil.Document(
		testutil.PoseFrame(0, testutil.Landmarks(33, 0.5, 0.5, 0, 1)),
		testutil.EmptyFrame(1),
	))
	testutil.WriteDocument(t, mfs, "/clips/ref.json", singleLandmarkDoc(4))

	e, sink := newEngine(t)
	report, err := e.CompareFiles(mfs, "/clips/user.json", "/clips/ref.json")
	require.NoError(t, err)

	assert.Equal(t, "/clips/user.json", report.User.Source)
	assert.Equal(t, 2, report.User.Diagnostics.TotalFrames)
	assert.Equal(t, 1, report.User.Diagnostics.FramesWithPose)
	assert.Equal(t, "(1, 132)", report.User.Shape)
	assert.Equal(t, "(4, 132)", report.Reference.Shape)
	assert.Len(t, report.Result.FrameByFrame, 1)

	assert.Contains(t, sink.lines, "Diagnostic info for user.json:")
	assert.Contains(t, sink.lines, "User sequence shape: (1, 132)")
}

func TestEngine_CompareBatch(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteDocument(t, mfs, "/a.json", singleLandmarkDoc(3))
	testutil.WriteDocument(t, mfs, "/b.json", pose.Synthesize(pose.SynthOptions{Frames: 10, Seed: 2}))

	pairs := []motion.Pair{
		{ID: "same", User: "/a.json", Reference: "/a.json"},
		{ID: "missing", User: "/a.json", Reference: "/nope.json"},
		{ID: "mixed", User: "/a.json", Reference: "/b.json"},
	}

	e, _ := newEngine(t)
	results := e.CompareBatch(context.Background(), mfs, pairs, 2)
	require.Len(t, results, 3)

	assert.Equal(t, "same", results[0].Pair.ID)
	assert.NoError(t, results[0].Err)
	assert.InDelta(t, 1.0, results[0].Report.Result.OverallSimilarity, 1e-9)

	assert.ErrorIs(t, results[1].Err, pose.ErrNotFound)

	assert.NoError(t, results[2].Err)
	assert.Len(t, results[2].Report.Result.FrameByFrame, 3)
}

func TestEngine_CompareBatchPrefixesDiagnostics(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteDocument(t, mfs, "/a.json", singleLandmarkDoc(3))
	testutil.WriteDocument(t, mfs, "/b.json", singleLandmarkDoc(4))

	pairs := []motion.Pair{
		{ID: "first", User: "/a.json", Reference: "/b.json"},
		{ID: "100%", User: "/b.json", Reference: "/a.json"},
	}
	e, sink := newEngine(t)
	results := e.CompareBatch(context.Background(), mfs, pairs, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	seen := map[string]bool{}
	for _, line := range sink.lines {
		switch {
		case strings.HasPrefix(line, "[first] "):
			seen["first"] = true
		case strings.HasPrefix(line, "[100%] "):
			seen["100%"] = true
		default:
			t.Errorf("diagnostic line without pair prefix: %q", line)
		}
	}
	assert.True(t, seen["first"])
	assert.True(t, seen["100%"])
	assert.Contains(t, sink.lines, "[first] Diagnostic info for a.json:")
}

func TestEngine_CompareBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newEngine(t)
	results := e.CompareBatch(ctx, fsutil.NewMemoryFileSystem(), []motion.Pair{{ID: "x"}, {ID: "y"}}, 0)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e, _ := newEngine(t)
	doc := pose.Synthesize(pose.SynthOptions{Frames: 15, Seed: 9})
	want := e.CompareDocuments(doc, doc).Result

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := e.CompareDocuments(doc, doc).Result
			assert.Equal(t, want.OverallSimilarity, got.OverallSimilarity)
		}()
	}
	wg.Wait()
}
