// Package dslconfig holds the compiler's configuration record: explicit
// fields with defaults set at construction, loadable from a TOML file and
// overridable by CLI flags.
package dslconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"
)

// Target names the platform executable container §6's target option
// selects between.
type Target string

const (
	TargetWindowsX64 Target = "windows-x64"
	TargetLinuxX64   Target = "linux-x64"
	TargetMacOSX64   Target = "macos-x64"
)

// Config is the compiler's configuration record: a plain struct with named
// fields, populated by NewConfig's explicit defaults rather than relying on
// per-field zero values (a zero OptimizationLevel and an intentional "O0"
// request are indistinguishable otherwise).
type Config struct {
	// OutputPath is the destination for the emitted artifact.
	OutputPath string

	// Target selects the binary container format.
	Target Target

	// OptimizationLevel is the highest tier of optimization passes enabled
	// (0-3).
	OptimizationLevel int

	// UnrollFactor is the largest compile-time trip count the loop-unrolling
	// pass counts as eligible; that pass copies no loop bodies (see
	// optimize.LoopUnrolling).
	UnrollFactor int

	// ProfilePath, if set, is read by profile-guided passes.
	ProfilePath string

	// EmitDebugInfo is part of the cache key (see dslcache.NewKey). No
	// compile stage reads it, and the artifact carries no source-location
	// tables either way.
	EmitDebugInfo bool

	// Verbose is carried in the record; no compile stage reads it.
	Verbose bool

	// MinToolchainVersion, if set, is the lowest `vX.Y.Z` semantic version
	// of this toolchain the configuration is known to work with; Validate
	// rejects a config whose value isn't a well-formed semver string.
	MinToolchainVersion string
}

// NewConfig returns a Config with every field set to its documented
// default, per Design Note §9's "not implicit per-field initialization"
// requirement.
func NewConfig() Config {
	return Config{
		OutputPath:        "a.out",
		Target:            TargetLinuxX64,
		OptimizationLevel: 0,
		UnrollFactor:      1,
		ProfilePath:       "",
		EmitDebugInfo:     false,
		Verbose:           false,
	}
}

// Load reads a TOML file at path over a fresh NewConfig, so any field the
// file omits keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := NewConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns an error describing the first invalid field found.
func (c Config) Validate() error {
	switch c.Target {
	case TargetWindowsX64, TargetLinuxX64, TargetMacOSX64:
	default:
		return fmt.Errorf("target: unrecognized value %q", c.Target)
	}
	if c.OptimizationLevel < 0 || c.OptimizationLevel > 3 {
		return fmt.Errorf("optimizationLevel: must be 0-3, got %d", c.OptimizationLevel)
	}
	if c.UnrollFactor < 1 {
		return fmt.Errorf("unrollFactor: must be >= 1, got %d", c.UnrollFactor)
	}
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); err != nil {
			return fmt.Errorf("profilePath: %w", err)
		}
	}
	if c.MinToolchainVersion != "" && !semver.IsValid(c.MinToolchainVersion) {
		return fmt.Errorf("minToolchainVersion: not a valid semantic version: %q", c.MinToolchainVersion)
	}
	return nil
}

// SatisfiesToolchain reports whether running's version meets c's
// MinToolchainVersion requirement, if any is set.
func (c Config) SatisfiesToolchain(running string) bool {
	if c.MinToolchainVersion == "" {
		return true
	}
	return semver.Compare(running, c.MinToolchainVersion) >= 0
}
