package pose

import (
	"fmt"
	"sort"
	"strings"
)

// FieldsPerLandmark is the number of feature columns each landmark
// contributes: x, y, z, visibility.
const FieldsPerLandmark = 4

// Region is a named body region used for per-region analysis.
type Region int

const (
	RegionArms Region = iota
	RegionLegs
	RegionTorso
	RegionHead
)

// Regions lists every region in reporting order.
var Regions = []Region{RegionArms, RegionLegs, RegionTorso, RegionHead}

func (r Region) String() string {
	switch r {
	case RegionArms:
		return "arms"
	case RegionLegs:
		return "legs"
	case RegionTorso:
		return "torso"
	case RegionHead:
		return "head"
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

// Title returns the capitalised region name for human-readable output.
func (r Region) Title() string {
	s := r.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Topology describes a landmark layout: how many landmarks a pose has and
// which landmark indices make up each body region.
type Topology struct {
	Name      string
	Landmarks []string
	Regions   map[Region][]int
}

// Size returns the landmark count L.
func (t *Topology) Size() int { return len(t.Landmarks) }

// Width returns the feature row width 4×L.
func (t *Topology) Width() int { return FieldsPerLandmark * len(t.Landmarks) }

// Columns expands the landmark indices of a region to feature columns
// 4i..4i+3, preserving landmark order. Unknown regions yield nil.
func (t *Topology) Columns(r Region) []int {
	return Columns(t.Regions[r])
}

// Columns expands landmark indices to their four feature columns.
func Columns(landmarks []int) []int {
	if len(landmarks) == 0 {
		return nil
	}
	cols := make([]int, 0, len(landmarks)*FieldsPerLandmark)
	for _, idx := range landmarks {
		for f := 0; f < FieldsPerLandmark; f++ {
			cols = append(cols, idx*FieldsPerLandmark+f)
		}
	}
	return cols
}

// BlazePose33 is the 33-point layout emitted by MediaPipe Pose.
var BlazePose33 = &Topology{
	Name: "blazepose33",
	Landmarks: []string{
		"nose",
		"left_eye_inner", "left_eye", "left_eye_outer",
		"right_eye_inner", "right_eye", "right_eye_outer",
		"left_ear", "right_ear",
		"mouth_left", "mouth_right",
		"left_shoulder", "right_shoulder",
		"left_elbow", "right_elbow",
		"left_wrist", "right_wrist",
		"left_pinky", "right_pinky",
		"left_index", "right_index",
		"left_thumb", "right_thumb",
		"left_hip", "right_hip",
		"left_knee", "right_knee",
		"left_ankle", "right_ankle",
		"left_heel", "right_heel",
		"left_foot_index", "right_foot_index",
	},
	Regions: map[Region][]int{
		RegionArms:  {11, 13, 15, 12, 14, 16},
		RegionLegs:  {23, 25, 27, 24, 26, 28},
		RegionTorso: {11, 12, 23, 24},
		RegionHead:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	},
}

// COCO17 is the 17-keypoint COCO layout.
var COCO17 = &Topology{
	Name: "coco17",
	Landmarks: []string{
		"nose",
		"left_eye", "right_eye",
		"left_ear", "right_ear",
		"left_shoulder", "right_shoulder",
		"left_elbow", "right_elbow",
		"left_wrist", "right_wrist",
		"left_hip", "right_hip",
		"left_knee", "right_knee",
		"left_ankle", "right_ankle",
	},
	Regions: map[Region][]int{
		RegionArms:  {5, 7, 9, 6, 8, 10},
		RegionLegs:  {11, 13, 15, 12, 14, 16},
		RegionTorso: {5, 6, 11, 12},
		RegionHead:  {0, 1, 2, 3, 4},
	},
}

var topologies = map[string]*Topology{
	BlazePose33.Name: BlazePose33,
	COCO17.Name:      COCO17,
}

// LookupTopology returns a registered topology by name. The empty name maps
// to BlazePose33.
func LookupTopology(name string) (*Topology, error) {
	if name == "" {
		return BlazePose33, nil
	}
	if t, ok := topologies[strings.ToLower(name)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown topology %q (known: %s)", name, strings.Join(TopologyNames(), ", "))
}

// TopologyNames lists registered topology names, sorted.
func TopologyNames() []string {
	names := make([]string, 0, len(topologies))
	for n := range topologies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
