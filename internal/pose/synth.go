package pose

import (
	"math"
	"math/rand/v2"
)

// SynthOptions configures Synthesize.
type SynthOptions struct {
	Topology *Topology
	Frames   int
	FPS      float64
	// Period is the length of one movement cycle in frames.
	Period float64
	// Phase shifts the movement cycle, in radians.
	Phase float64
	// Scale multiplies all coordinates around the image centre.
	Scale float64
	// Amplitude of the limb swing in normalised image units.
	Amplitude float64
	// Dropout is the probability that a frame has no detected pose.
	Dropout float64
	// Persons is the number of poses per frame. Extra poses are smaller
	// and dimmer copies of the first.
	Persons int
	Seed    uint64
}

func (o SynthOptions) withDefaults() SynthOptions {
	if o.Topology == nil {
		o.Topology = BlazePose33
	}
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.Period <= 0 {
		o.Period = 30
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Amplitude == 0 {
		o.Amplitude = 0.05
	}
	if o.Persons <= 0 {
		o.Persons = 1
	}
	return o
}

// Synthesize generates a deterministic landmark document of a figure
// swinging its limbs. It is used for fixtures and manual testing.
func Synthesize(opts SynthOptions) *Document {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	size := opts.Topology.Size()

	doc := &Document{
		FPS:    opts.FPS,
		Frames: make([]Frame, 0, opts.Frames),
		Dimensions: &Dimensions{
			Original:  Size{Width: 1920, Height: 1080},
			Processed: Size{Width: 1280, Height: 720},
		},
	}

	for f := 0; f < opts.Frames; f++ {
		frame := Frame{FrameID: f, Timestamp: float64(f) / opts.FPS, Poses: []Pose{}}
		if opts.Dropout > 0 && rng.Float64() < opts.Dropout {
			doc.Frames = append(doc.Frames, frame)
			continue
		}

		angle := 2*math.Pi*float64(f)/opts.Period + opts.Phase
		for p := 0; p < opts.Persons; p++ {
			shrink := 1 / float64(p+1)
			lms := make([]Landmark, size)
			for i := 0; i < size; i++ {
				bx, by := restPosition(i, size)
				swing := opts.Amplitude * math.Sin(angle+float64(i)*0.2)
				lms[i] = Landmark{
					ID:         i,
					X:          Float(0.5 + opts.Scale*shrink*(bx+swing)),
					Y:          Float(0.5 + opts.Scale*shrink*(by+0.5*swing)),
					Z:          Float(0.1 * math.Cos(angle+float64(i)*0.2)),
					Visibility: Float(0.95 * shrink),
				}
			}
			frame.Poses = append(frame.Poses, Pose{PoseID: p, Landmarks: lms})
		}
		doc.Frames = append(doc.Frames, frame)
	}
	return doc
}

// restPosition spreads landmarks on an ellipse so no two share a location.
func restPosition(i, n int) (float64, float64) {
	t := 2 * math.Pi * float64(i) / float64(n)
	return 0.2 * math.Cos(t), 0.35 * math.Sin(t)
}
