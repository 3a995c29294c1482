// Package pose loads landmark documents produced by the pose-detection step
// and turns them into fixed-width per-frame feature sequences.
//
// A document holds frames, each frame holds zero or more detected poses and
// each pose holds one record per landmark of the topology in use. Only the
// frames key is required; everything else is carried through as metadata.
package pose

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Document is a decoded landmark document.
type Document struct {
	FPS        float64         `json:"fps,omitempty"`
	Frames     []Frame         `json:"frames"`
	BBox       json.RawMessage `json:"bbox,omitempty"`
	VideoPath  string          `json:"video_path,omitempty"`
	Dimensions *Dimensions     `json:"dimensions,omitempty"`
}

// Dimensions records the source and processed video sizes.
type Dimensions struct {
	Original  Size `json:"original"`
	Processed Size `json:"processed"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is one video frame and the poses detected in it.
type Frame struct {
	FrameID   int     `json:"frame_id"`
	Timestamp float64 `json:"timestamp"`
	Poses     []Pose  `json:"poses"`

	// Faults names the frame_id or timestamp values that failed to decode.
	Faults []string `json:"-"`
}

// Pose is one detected person.
type Pose struct {
	PoseID    int        `json:"pose_id"`
	Landmarks []Landmark `json:"landmarks"`

	// IDFault is set when pose_id failed to decode.
	IDFault bool `json:"-"`
}

// UnmarshalJSON decodes frame_id and timestamp leniently, like landmark
// fields; neither is used for comparison. The poses array must still decode.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw struct {
		FrameID   json.RawMessage `json:"frame_id"`
		Timestamp json.RawMessage `json:"timestamp"`
		Poses     []Pose          `json:"poses"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Frame{Poses: raw.Poses}
	if id, ok := optionalInt(raw.FrameID); ok {
		f.FrameID = id
	} else {
		f.Faults = append(f.Faults, "frame_id")
	}
	if ts, ok := optionalFloat(raw.Timestamp); ok {
		f.Timestamp = ts
	} else {
		f.Faults = append(f.Faults, "timestamp")
	}
	return nil
}

// UnmarshalJSON decodes pose_id leniently. The landmarks array must still
// decode.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var raw struct {
		PoseID    json.RawMessage `json:"pose_id"`
		Landmarks []Landmark      `json:"landmarks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Pose{Landmarks: raw.Landmarks}
	if id, ok := optionalInt(raw.PoseID); ok {
		p.PoseID = id
	} else {
		p.IDFault = true
	}
	return nil
}

// optionalFloat parses an optional numeric field. Absent and null are not
// faults.
func optionalFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, true
	}
	v := parseValue(raw)
	if v.Fault {
		return 0, false
	}
	return v.V, true
}

// optionalInt is optionalFloat truncated to an int. Non-finite values are
// faults.
func optionalInt(raw json.RawMessage) (int, bool) {
	v, ok := optionalFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(v), true
}

// Landmark is a single keypoint. Coordinates are whatever the detector
// emitted (typically normalised image coordinates) and visibility is a
// confidence in [0, 1].
type Landmark struct {
	ID         int   `json:"landmark_id"`
	X          Value `json:"x"`
	Y          Value `json:"y"`
	Z          Value `json:"z"`
	Visibility Value `json:"visibility"`
}

// Value is a leniently decoded landmark field.
//
// JSON numbers decode as-is, numeric strings are parsed (including "NaN" and
// "Inf"), booleans map to 1 and 0. Anything else decodes to 0 with Fault set.
type Value struct {
	V     float64
	Fault bool
}

// Float returns a valid Value.
func Float(v float64) Value { return Value{V: v} }

// UnmarshalJSON never fails; undecodable input is recorded as a fault.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = parseValue(data)
	return nil
}

// MarshalJSON writes finite values as numbers and non-finite values as the
// strings "NaN", "+Inf" and "-Inf", which decode back to the same value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case math.IsNaN(v.V):
		return []byte(`"NaN"`), nil
	case math.IsInf(v.V, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v.V, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

func parseValue(data []byte) Value {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return Value{Fault: true}
	}
	switch s[0] {
	case 't':
		if s == "true" {
			return Value{V: 1}
		}
	case 'f':
		if s == "false" {
			return Value{V: 0}
		}
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return Value{Fault: true}
		}
		return parseNumber(strings.TrimSpace(str))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return parseNumber(s)
	}
	return Value{Fault: true}
}

func parseNumber(s string) Value {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// out-of-range literals still parse to ±Inf
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Value{V: f}
		}
		return Value{Fault: true}
	}
	return Value{V: f}
}

// UnmarshalJSON decodes a landmark field by field. A landmark that is not a
// JSON object decodes as the origin with every field faulted; a missing field
// is faulted individually.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	*l = Landmark{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		l.X, l.Y, l.Z, l.Visibility = faulted, faulted, faulted, faulted
		return nil
	}

	if msg, ok := raw["landmark_id"]; ok {
		if id := parseValue(msg); !id.Fault && !math.IsNaN(id.V) && !math.IsInf(id.V, 0) {
			l.ID = int(id.V)
		}
	}
	l.X = field(raw, "x")
	l.Y = field(raw, "y")
	l.Z = field(raw, "z")
	l.Visibility = field(raw, "visibility")
	return nil
}

var faulted = Value{Fault: true}

func field(raw map[string]json.RawMessage, key string) Value {
	msg, ok := raw[key]
	if !ok {
		return faulted
	}
	return parseValue(msg)
}

// Faults reports how many of the four numeric fields failed to decode.
func (l Landmark) Faults() int {
	n := 0
	for _, v := range [...]Value{l.X, l.Y, l.Z, l.Visibility} {
		if v.Fault {
			n++
		}
	}
	return n
}

// FramesWithPose counts frames that carry at least one pose.
func (d *Document) FramesWithPose() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, f := range d.Frames {
		if len(f.Poses) > 0 {
			n++
		}
	}
	return n
}
