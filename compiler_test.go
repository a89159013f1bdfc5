package dslc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekarrin/dslc/internal/dslconfig"
)

func testConfig(t *testing.T) dslconfig.Config {
	t.Helper()
	cfg := dslconfig.NewConfig()
	cfg.OutputPath = filepath.Join(t.TempDir(), "out.bin")
	return cfg
}

func Test_Pipeline_compilesSimpleProgramToFile(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, "")
	require.NoError(t, err)

	result, err := p.Compile([]byte(`Fn add "a,b" { ret a + b }`))
	require.NoError(t, err)
	assert.False(t, result.Diagnostics.HasErrors())
	require.NotNil(t, result.Artifact)
	assert.NotEmpty(t, result.Artifact.Code)

	info, err := os.Stat(cfg.OutputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func Test_Pipeline_lexErrorStopsBeforeCodegen(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, "")
	require.NoError(t, err)

	result, err := p.Compile([]byte("let x = \"unterminated"))
	require.Error(t, err)
	assert.True(t, result.Diagnostics.HasErrors())
	assert.Nil(t, result.Artifact)
}

func Test_Pipeline_parseErrorStopsBeforeLowering(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, "")
	require.NoError(t, err)

	result, err := p.Compile([]byte("let x = ;"))
	require.Error(t, err)
	assert.Nil(t, result.Module)
}

func Test_Pipeline_invalidConfigRejectedAtConstruction(t *testing.T) {
	cfg := dslconfig.NewConfig()
	cfg.OptimizationLevel = 9
	_, err := New(cfg, "")
	assert.Error(t, err)
}

func Test_Pipeline_cachesCompiledArtifact(t *testing.T) {
	cfg := testConfig(t)
	cacheDir := t.TempDir()
	p, err := New(cfg, cacheDir)
	require.NoError(t, err)

	src := []byte(`Fn add "a,b" { ret a + b }`)
	_, err = p.Compile(src)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func Test_Pipeline_parseOnlyReturnsTreeWithoutCompiling(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, "")
	require.NoError(t, err)

	tree, summary, err := p.ParseOnly([]byte(`Fn add "a,b" { ret a + b }`))
	require.NoError(t, err)
	assert.False(t, summary.HasErrors())
	require.NotNil(t, tree)

	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "ParseOnly must not write an output file")
}
