package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 1280, s.Width)
	assert.Equal(t, 720, s.Height)
	assert.False(t, s.Validation)
	assert.NoError(t, s.Validate())
	assert.Equal(t, log.InfoLevel, s.Level())
}

func TestProcessCommandLineArgs(t *testing.T) {
	s := Default()
	err := s.ProcessCommandLineArgs([]string{"--validation", "--data", "/opt/assets", "--pipeline-cache", "cache.bin", "--log-level", "debug"})
	require.NoError(t, err)

	assert.True(t, s.Validation)
	assert.Equal(t, "/opt/assets", s.DataDir)
	assert.Equal(t, "cache.bin", s.PipelineCache)
	assert.Equal(t, log.DebugLevel, s.Level())
	assert.Equal(t, filepath.Join("/opt/assets", "models", "scene.obj"), s.Asset("models", "scene.obj"))
}

func TestProcessCommandLineArgsErrors(t *testing.T) {
	s := Default()
	assert.True(t, errors.Is(s.ProcessCommandLineArgs([]string{"-h"}), ErrHelp))
	assert.Error(t, s.ProcessCommandLineArgs([]string{"--bogus"}))
	assert.Error(t, s.ProcessCommandLineArgs([]string{"--data"}))
	assert.Error(t, s.ProcessCommandLineArgs([]string{"--log-level", "loud"}))
}

func TestConfigFileThenOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
width = 800
height = 600
validation = true
data_dir = "assets"
`), 0o644))

	s := Default()
	require.NoError(t, s.ProcessCommandLineArgs([]string{"--config", path, "--data", "other"}))
	assert.Equal(t, 800, s.Width)
	assert.Equal(t, 600, s.Height)
	assert.True(t, s.Validation)
	assert.Equal(t, "other", s.DataDir)
	assert.Equal(t, "Vulkan Example", s.Title)
}

func TestConfigFileInvalidSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = 0\n"), 0o644))

	s := Default()
	assert.Error(t, s.LoadFile(path))
}
