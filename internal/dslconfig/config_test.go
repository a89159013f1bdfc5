package dslconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewConfig_defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "a.out", cfg.OutputPath)
	assert.Equal(t, TargetLinuxX64, cfg.Target)
	assert.Equal(t, 0, cfg.OptimizationLevel)
	assert.Equal(t, 1, cfg.UnrollFactor)
	assert.Equal(t, "", cfg.ProfilePath)
	assert.False(t, cfg.EmitDebugInfo)
	assert.False(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func Test_Load_overridesOnlyFieldsPresentInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dslc.toml")
	err := os.WriteFile(path, []byte(`
OptimizationLevel = 2
Target = "windows-x64"
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.OptimizationLevel)
	assert.Equal(t, TargetWindowsX64, cfg.Target)
	// Fields absent from the file keep NewConfig's defaults.
	assert.Equal(t, "a.out", cfg.OutputPath)
	assert.Equal(t, 1, cfg.UnrollFactor)
}

func Test_Load_missingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func Test_Validate_rejectsUnrecognizedTarget(t *testing.T) {
	cfg := NewConfig()
	cfg.Target = "amiga-68k"
	assert.Error(t, cfg.Validate())
}

func Test_Validate_rejectsOutOfRangeOptimizationLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.OptimizationLevel = 4
	assert.Error(t, cfg.Validate())
}

func Test_Validate_rejectsUnrollFactorBelowOne(t *testing.T) {
	cfg := NewConfig()
	cfg.UnrollFactor = 0
	assert.Error(t, cfg.Validate())
}

func Test_Validate_rejectsMissingProfilePath(t *testing.T) {
	cfg := NewConfig()
	cfg.ProfilePath = "/does/not/exist.prof"
	assert.Error(t, cfg.Validate())
}

func Test_Validate_rejectsMalformedMinToolchainVersion(t *testing.T) {
	cfg := NewConfig()
	cfg.MinToolchainVersion = "1.2.3" // missing leading "v"
	assert.Error(t, cfg.Validate())
}

func Test_Validate_acceptsWellFormedMinToolchainVersion(t *testing.T) {
	cfg := NewConfig()
	cfg.MinToolchainVersion = "v1.2.3"
	assert.NoError(t, cfg.Validate())
}

func Test_SatisfiesToolchain(t *testing.T) {
	cfg := NewConfig()
	cfg.MinToolchainVersion = "v1.4.0"

	assert.True(t, cfg.SatisfiesToolchain("v1.4.0"))
	assert.True(t, cfg.SatisfiesToolchain("v1.5.0"))
	assert.False(t, cfg.SatisfiesToolchain("v1.3.9"))
}

func Test_SatisfiesToolchain_noMinimumSetAlwaysSatisfied(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.SatisfiesToolchain("v0.0.1"))
}
