// Command gen-landmarks generates synthetic landmark documents for testing
// the comparison engine end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/pose"
)

type genOptions struct {
	Output   string
	Topology string
	Synth    pose.SynthOptions
}

func parseFlags(args []string, stderr io.Writer) (*genOptions, error) {
	o := &genOptions{}
	fs := flag.NewFlagSet("gen-landmarks", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Output, "o", "landmarks.json", "output path")
	fs.StringVar(&o.Topology, "topology", "blazepose33", "landmark topology: blazepose33, coco17")
	fs.IntVar(&o.Synth.Frames, "n", 90, "number of frames")
	fs.Float64Var(&o.Synth.FPS, "fps", 30, "frames per second")
	fs.Float64Var(&o.Synth.Period, "period", 30, "frames per movement cycle")
	fs.Float64Var(&o.Synth.Phase, "phase", 0, "phase offset in radians")
	fs.Float64Var(&o.Synth.Scale, "scale", 1, "scale around the image centre")
	fs.Float64Var(&o.Synth.Dropout, "dropout", 0, "probability a frame has no pose")
	fs.IntVar(&o.Synth.Persons, "persons", 1, "poses per frame")
	fs.Uint64Var(&o.Synth.Seed, "seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.Synth.Frames < 0 {
		return nil, fmt.Errorf("-n must be non-negative, got %d", o.Synth.Frames)
	}
	if o.Synth.Dropout < 0 || o.Synth.Dropout > 1 {
		return nil, fmt.Errorf("-dropout must be within [0, 1], got %g", o.Synth.Dropout)
	}
	topo, err := pose.LookupTopology(o.Topology)
	if err != nil {
		return nil, err
	}
	o.Synth.Topology = topo
	return o, nil
}

func generate(fsys fsutil.FileSystem, o *genOptions) (*pose.Document, error) {
	doc := pose.Synthesize(o.Synth)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if err := fsys.WriteFile(o.Output, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", o.Output, err)
	}
	return doc, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatal(err)
	}
	doc, err := generate(fsutil.OSFileSystem{}, o)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("✓ Created: %s (%d frames, %d with pose)", o.Output, len(doc.Frames), doc.FramesWithPose())
}
