package pose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"unicode/utf8"

	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/monitoring"
)

// DefaultMaxDocumentBytes caps the size of a single landmark document.
const DefaultMaxDocumentBytes int64 = 256 * 1024 * 1024

// Loader reads and validates landmark documents.
type Loader struct {
	// FS is the filesystem documents are read from. Defaults to the OS.
	FS fsutil.FileSystem
	// MaxBytes rejects larger documents as malformed. Zero means
	// DefaultMaxDocumentBytes.
	MaxBytes int64
	// Logf receives the per-document diagnostics block. Defaults to
	// monitoring.Logf.
	Logf func(format string, v ...interface{})
}

// Load reads path from fsys with default limits.
func Load(fsys fsutil.FileSystem, path string) (*Document, *Diagnostics, error) {
	return (&Loader{FS: fsys}).Load(path)
}

// Decode reads a document from r with default limits. name identifies the
// document in diagnostics and errors.
func Decode(r io.Reader, name string) (*Document, *Diagnostics, error) {
	return (&Loader{}).Decode(r, name)
}

func (l *Loader) fs() fsutil.FileSystem {
	if l.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return l.FS
}

func (l *Loader) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxDocumentBytes
	}
	return l.MaxBytes
}

func (l *Loader) logf(format string, v ...interface{}) {
	if l.Logf != nil {
		l.Logf(format, v...)
		return
	}
	monitoring.Logf(format, v...)
}

// Load reads and validates the document at path.
func (l *Loader) Load(path string) (*Document, *Diagnostics, error) {
	clean := filepath.Clean(path)
	fsys := l.fs()

	info, err := fsys.Stat(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, newLoadError(KindNotFound, path, err)
		}
		return nil, nil, newLoadError(KindNotFound, path, fmt.Errorf("failed to stat landmark file: %w", err))
	}
	if info.IsDir() {
		return nil, nil, newLoadError(KindNotFound, path, fmt.Errorf("%s is a directory", clean))
	}
	if limit := l.maxBytes(); info.Size() > limit {
		return nil, nil, newLoadError(KindMalformedEncoding, path,
			fmt.Errorf("landmark file too large: %d bytes (max %d)", info.Size(), limit))
	}

	data, err := fsys.ReadFile(clean)
	if err != nil {
		return nil, nil, newLoadError(KindNotFound, path, fmt.Errorf("failed to read landmark file: %w", err))
	}
	return l.decode(data, path)
}

// Decode reads a document from r.
func (l *Loader) Decode(r io.Reader, name string) (*Document, *Diagnostics, error) {
	limit := l.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, nil, newLoadError(KindMalformedEncoding, name, fmt.Errorf("failed to read landmark document: %w", err))
	}
	if int64(len(data)) > limit {
		return nil, nil, newLoadError(KindMalformedEncoding, name, fmt.Errorf("landmark document exceeds %d bytes", limit))
	}
	return l.decode(data, name)
}

// DecodeBytes validates an in-memory document.
func (l *Loader) DecodeBytes(data []byte, name string) (*Document, *Diagnostics, error) {
	if limit := l.maxBytes(); int64(len(data)) > limit {
		return nil, nil, newLoadError(KindMalformedEncoding, name, fmt.Errorf("landmark document exceeds %d bytes", limit))
	}
	return l.decode(data, name)
}

func (l *Loader) decode(data []byte, source string) (*Document, *Diagnostics, error) {
	if !utf8.Valid(data) {
		return nil, nil, newLoadError(KindMalformedEncoding, source, errors.New("document is not valid UTF-8"))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil, newLoadError(KindMissingSchema, source,
				fmt.Errorf("top-level value is a JSON %s, not an object", typeErr.Value))
		}
		return nil, nil, newLoadError(KindMalformedEncoding, source, err)
	}

	rawFrames, ok := top["frames"]
	if top == nil || !ok || isNull(rawFrames) {
		return nil, nil, newLoadError(KindMissingSchema, source, errors.New("'frames' key missing"))
	}

	var frames []Frame
	if err := json.Unmarshal(rawFrames, &frames); err != nil {
		return nil, nil, newLoadError(KindMalformedEncoding, source, fmt.Errorf("decode frames: %w", err))
	}
	if frames == nil {
		frames = []Frame{}
	}

	doc := &Document{Frames: frames}
	warnings := decodeMetadata(top, doc)
	warnings = append(warnings, identityWarnings(frames)...)

	diag := Diagnose(source, doc)
	diag.Warnings = append(warnings, diag.Warnings...)
	diag.Log(l.logf)

	return doc, diag, nil
}

// decodeMetadata fills the optional fields. They are not used for
// comparison, so a bad value is dropped with a warning rather than failing
// the document.
func decodeMetadata(top map[string]json.RawMessage, doc *Document) []string {
	var warnings []string
	decode := func(key string, dst interface{}) {
		raw, ok := top[key]
		if !ok || isNull(raw) {
			return
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring malformed %s: %v", key, err))
		}
	}

	decode("fps", &doc.FPS)
	decode("video_path", &doc.VideoPath)
	if raw, ok := top["bbox"]; ok && !isNull(raw) {
		doc.BBox = append(json.RawMessage(nil), raw...)
	}
	var dims Dimensions
	if raw, ok := top["dimensions"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &dims); err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring malformed dimensions: %v", err))
		} else {
			doc.Dimensions = &dims
		}
	}
	return warnings
}

// identityWarnings reports frame_id, timestamp and pose_id values that
// were replaced by zero.
func identityWarnings(frames []Frame) []string {
	counts := map[string]int{}
	for _, f := range frames {
		for _, name := range f.Faults {
			counts[name]++
		}
		for _, p := range f.Poses {
			if p.IDFault {
				counts["pose_id"]++
			}
		}
	}

	var warnings []string
	for _, name := range []string{"frame_id", "timestamp", "pose_id"} {
		if n := counts[name]; n > 0 {
			warnings = append(warnings, fmt.Sprintf("ignoring %d malformed %s value(s)", n, name))
		}
	}
	return warnings
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
