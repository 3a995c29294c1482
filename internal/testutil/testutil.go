// Package testutil provides shared test utilities and fixtures.
//
// This package centralises landmark document builders and HTTP assertions
// so that tests across the loader, engine, store and API build their inputs
// the same way.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/pose"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// Landmarks builds n landmarks that all sit at (x, y, z) with the given
// visibility.
func Landmarks(n int, x, y, z, vis float64) []pose.Landmark {
	lms := make([]pose.Landmark, n)
	for i := range lms {
		lms[i] = pose.Landmark{ID: i, X: pose.Float(x), Y: pose.Float(y), Z: pose.Float(z), Visibility: pose.Float(vis)}
	}
	return lms
}

// LandmarksFromRow turns a 4×L feature row back into landmarks.
func LandmarksFromRow(row []float64) []pose.Landmark {
	lms := make([]pose.Landmark, len(row)/pose.FieldsPerLandmark)
	for i := range lms {
		b := i * pose.FieldsPerLandmark
		lms[i] = pose.Landmark{
			ID:         i,
			X:          pose.Float(row[b]),
			Y:          pose.Float(row[b+1]),
			Z:          pose.Float(row[b+2]),
			Visibility: pose.Float(row[b+3]),
		}
	}
	return lms
}

// PoseFrame builds a frame carrying a single pose.
func PoseFrame(id int, lms []pose.Landmark) pose.Frame {
	return pose.Frame{
		FrameID:   id,
		Timestamp: float64(id) / 30,
		Poses:     []pose.Pose{{PoseID: 0, Landmarks: lms}},
	}
}

// EmptyFrame builds a frame with no detected poses.
func EmptyFrame(id int) pose.Frame {
	return pose.Frame{FrameID: id, Timestamp: float64(id) / 30, Poses: []pose.Pose{}}
}

// Document wraps frames in a document at 30 fps.
func Document(frames ...pose.Frame) *pose.Document {
	if frames == nil {
		frames = []pose.Frame{}
	}
	return &pose.Document{FPS: 30, Frames: frames}
}

// DocumentFromRows builds a document with one single-pose frame per row.
func DocumentFromRows(rows [][]float64) *pose.Document {
	frames := make([]pose.Frame, len(rows))
	for i, row := range rows {
		frames[i] = PoseFrame(i, LandmarksFromRow(row))
	}
	return Document(frames...)
}

// SequenceFromRows builds a sequence whose rows are copies of rows.
func SequenceFromRows(width int, rows ...[]float64) *pose.Sequence {
	seq := pose.NewSequence(width)
	for i, row := range rows {
		seq.Append(i, append([]float64(nil), row...))
	}
	return seq
}

// ConstantRow returns a row of the given width filled with v.
func ConstantRow(width int, v float64) []float64 {
	row := make([]float64, width)
	for i := range row {
		row[i] = v
	}
	return row
}

// MustJSON marshals v or fails the test.
func MustJSON(t testing.TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// WriteDocument stores doc as JSON at path in fsys, creating the parent
// directory.
func WriteDocument(t testing.TB, fsys fsutil.FileSystem, path string, doc *pose.Document) {
	t.Helper()
	WriteRaw(t, fsys, path, MustJSON(t, doc))
}

// WriteRaw stores data verbatim at path in fsys.
func WriteRaw(t testing.TB, fsys fsutil.FileSystem, path string, data []byte) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
