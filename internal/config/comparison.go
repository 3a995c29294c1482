package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/pose"
)

// DefaultConfigPath is the path to the canonical comparison defaults file.
const DefaultConfigPath = "config/comparison.defaults.json"

// maxConfigFileSize bounds config files read from disk.
const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// ComparisonConfig holds the tunable parameters of the comparison engine.
// Every field is optional; the Get* methods supply defaults for fields that
// are not set, so partial configs are safe.
type ComparisonConfig struct {
	NormEpsilon      *float64 `json:"norm_epsilon,omitempty" yaml:"norm_epsilon,omitempty"`
	SelectionPolicy  *string  `json:"selection_policy,omitempty" yaml:"selection_policy,omitempty"`
	Topology         *string  `json:"topology,omitempty" yaml:"topology,omitempty"`
	DTWWindow        *int     `json:"dtw_window,omitempty" yaml:"dtw_window,omitempty"`
	DTWSlopePenalty  *float64 `json:"dtw_slope_penalty,omitempty" yaml:"dtw_slope_penalty,omitempty"`
	MaxDocumentBytes *int64   `json:"max_document_bytes,omitempty" yaml:"max_document_bytes,omitempty"`
	BatchWorkers     *int     `json:"batch_workers,omitempty" yaml:"batch_workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyComparisonConfig returns a ComparisonConfig with all fields set to nil.
func EmptyComparisonConfig() *ComparisonConfig {
	return &ComparisonConfig{}
}

// DefaultComparisonConfig returns a config with every field set to its
// default value.
func DefaultComparisonConfig() *ComparisonConfig {
	return &ComparisonConfig{
		NormEpsilon:      ptrFloat64(motion.DefaultNormEpsilon),
		SelectionPolicy:  ptrString(pose.SelectFirst.String()),
		Topology:         ptrString(pose.BlazePose33.Name),
		DTWWindow:        ptrInt(-1),
		DTWSlopePenalty:  ptrFloat64(0),
		MaxDocumentBytes: ptrInt64(pose.DefaultMaxDocumentBytes),
		BatchWorkers:     ptrInt(4),
	}
}

// LoadComparisonConfig loads a ComparisonConfig from a .json, .yaml or .yml
// file. The file must be under 1MB. Fields omitted from the file keep their
// defaults.
func LoadComparisonConfig(path string) (*ComparisonConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyComparisonConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *ComparisonConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/gen-landmarks/
	}
	for _, path := range candidates {
		if cfg, err := LoadComparisonConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ComparisonConfig) Validate() error {
	if c.NormEpsilon != nil && !(*c.NormEpsilon > 0) {
		return fmt.Errorf("norm_epsilon must be positive, got %g", *c.NormEpsilon)
	}
	if c.SelectionPolicy != nil {
		if _, err := pose.ParseSelectionPolicy(*c.SelectionPolicy); err != nil {
			return err
		}
	}
	if c.Topology != nil {
		if _, err := pose.LookupTopology(*c.Topology); err != nil {
			return err
		}
	}
	if c.DTWWindow != nil && *c.DTWWindow < -1 {
		return fmt.Errorf("dtw_window must be -1 (unlimited) or non-negative, got %d", *c.DTWWindow)
	}
	if c.DTWSlopePenalty != nil && *c.DTWSlopePenalty < 0 {
		return fmt.Errorf("dtw_slope_penalty must be non-negative, got %g", *c.DTWSlopePenalty)
	}
	if c.MaxDocumentBytes != nil && *c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("max_document_bytes must be positive, got %d", *c.MaxDocumentBytes)
	}
	if c.BatchWorkers != nil && *c.BatchWorkers < 0 {
		return fmt.Errorf("batch_workers must be non-negative, got %d", *c.BatchWorkers)
	}
	return nil
}

// GetNormEpsilon returns the norm_epsilon value or the default.
func (c *ComparisonConfig) GetNormEpsilon() float64 {
	if c.NormEpsilon == nil {
		return motion.DefaultNormEpsilon
	}
	return *c.NormEpsilon
}

// GetSelectionPolicy returns the parsed selection_policy or SelectFirst.
func (c *ComparisonConfig) GetSelectionPolicy() pose.SelectionPolicy {
	if c.SelectionPolicy == nil {
		return pose.SelectFirst
	}
	p, err := pose.ParseSelectionPolicy(*c.SelectionPolicy)
	if err != nil {
		return pose.SelectFirst // default on parse error
	}
	return p
}

// GetTopology returns the named topology or BlazePose33.
func (c *ComparisonConfig) GetTopology() *pose.Topology {
	if c.Topology == nil {
		return pose.BlazePose33
	}
	t, err := pose.LookupTopology(*c.Topology)
	if err != nil {
		return pose.BlazePose33
	}
	return t
}

// GetDTWWindow returns the dtw_window value or -1 (unlimited).
func (c *ComparisonConfig) GetDTWWindow() int {
	if c.DTWWindow == nil {
		return -1
	}
	return *c.DTWWindow
}

// GetDTWSlopePenalty returns the dtw_slope_penalty value or 0.
func (c *ComparisonConfig) GetDTWSlopePenalty() float64 {
	if c.DTWSlopePenalty == nil {
		return 0
	}
	return *c.DTWSlopePenalty
}

// GetMaxDocumentBytes returns the max_document_bytes value or the default.
func (c *ComparisonConfig) GetMaxDocumentBytes() int64 {
	if c.MaxDocumentBytes == nil {
		return pose.DefaultMaxDocumentBytes
	}
	return *c.MaxDocumentBytes
}

// GetBatchWorkers returns the batch_workers value or 4. Zero means one
// worker per CPU.
func (c *ComparisonConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil {
		return 4
	}
	return *c.BatchWorkers
}

// ToEngineOptions converts the config into engine options.
func (c *ComparisonConfig) ToEngineOptions() motion.Options {
	opts := motion.DefaultOptions()
	opts.NormEpsilon = c.GetNormEpsilon()
	opts.Topology = c.GetTopology()
	opts.Policy = c.GetSelectionPolicy()
	opts.MaxDocumentBytes = c.GetMaxDocumentBytes()
	opts.DTW.Window = c.GetDTWWindow()
	opts.DTW.SlopePenalty = c.GetDTWSlopePenalty()
	return opts
}

// Merge overlays every field set in other onto a copy of c.
func (c *ComparisonConfig) Merge(other *ComparisonConfig) *ComparisonConfig {
	out := *c
	if other == nil {
		return &out
	}
	if other.NormEpsilon != nil {
		out.NormEpsilon = other.NormEpsilon
	}
	if other.SelectionPolicy != nil {
		out.SelectionPolicy = other.SelectionPolicy
	}
	if other.Topology != nil {
		out.Topology = other.Topology
	}
	if other.DTWWindow != nil {
		out.DTWWindow = other.DTWWindow
	}
	if other.DTWSlopePenalty != nil {
		out.DTWSlopePenalty = other.DTWSlopePenalty
	}
	if other.MaxDocumentBytes != nil {
		out.MaxDocumentBytes = other.MaxDocumentBytes
	}
	if other.BatchWorkers != nil {
		out.BatchWorkers = other.BatchWorkers
	}
	return &out
}
