// Command compare scores how closely a user's recorded movement matches a
// reference recording, given two landmark documents.
//
//	compare [flags] USER.json REF.json
//	compare [flags] --batch pairs.yaml
//
// Flags may appear before or after the positional arguments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/version"
)

// Options holds the parsed command line.
type Options struct {
	Output      string
	ConfigPath  string
	Policy      string
	Topology    string
	Batch       string
	Server      string
	ShowVersion bool
	Args        []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// parseArgs parses flags interleaved with positional arguments.
func parseArgs(args []string, stderr io.Writer) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Output, "output", "", "Output directory for comparison_results.json and plots")
	fs.StringVar(&opts.ConfigPath, "config", "", "Comparison config file (.json, .yaml or .yml)")
	fs.StringVar(&opts.Policy, "policy", "", "Pose selection policy: first, most_visible, largest_extent")
	fs.StringVar(&opts.Topology, "topology", "", "Landmark topology: blazepose33, coco17")
	fs.StringVar(&opts.Batch, "batch", "", "File listing pairs to compare (.json, .yaml or .yml)")
	fs.StringVar(&opts.Server, "server", "", "Compare on a running motion server instead of locally (e.g. http://localhost:8080)")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: compare [flags] USER.json REF.json\n       compare [flags] --batch pairs.yaml\n\nFlags:\n")
		fs.PrintDefaults()
	}

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		opts.Args = append(opts.Args, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if opts.ShowVersion {
		return opts, nil
	}
	switch {
	case opts.Batch != "" && len(opts.Args) != 0:
		return nil, errors.New("--batch does not take positional arguments")
	case opts.Batch != "" && opts.Server != "":
		return nil, errors.New("--batch cannot be combined with --server")
	case opts.Batch == "" && len(opts.Args) != 2:
		fs.Usage()
		return nil, fmt.Errorf("expected 2 landmark files, got %d", len(opts.Args))
	}
	return opts, nil
}

// loadConfig layers the config file and flag overrides onto the defaults.
func loadConfig(opts *Options) (*config.ComparisonConfig, error) {
	cfg := config.DefaultComparisonConfig()
	if opts.ConfigPath != "" {
		fileCfg, err := config.LoadComparisonConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	overrides := config.EmptyComparisonConfig()
	if opts.Policy != "" {
		overrides.SelectionPolicy = &opts.Policy
	}
	if opts.Topology != "" {
		overrides.Topology = &opts.Topology
	}
	cfg = cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Diagnostics go to standard output alongside the results.
	logger := log.New(stdout, "", 0)
	monitoring.SetLogger(logger.Printf)

	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.ShowVersion {
		fmt.Fprintf(stdout, "compare %s\n", version.String())
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fsys := fsutil.OSFileSystem{}
	switch {
	case opts.Batch != "":
		err = runBatch(ctx, fsys, cfg, opts, stdout)
	case opts.Server != "":
		err = runRemote(ctx, fsys, opts, stdout)
	default:
		err = runLocal(fsys, cfg, opts, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
