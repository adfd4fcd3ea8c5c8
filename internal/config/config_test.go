package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, m.Load(), "a missing config file falls back to defaults")

	cfg := m.Get()
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 90, cfg.Engine.MinTrainingObservations)
	assert.Equal(t, 100, cfg.Engine.Trees)
	assert.Equal(t, 256, cfg.Engine.SubSample)
	assert.Equal(t, 0.10, cfg.Engine.Contamination)
	assert.Equal(t, 5, cfg.Engine.TopServices)
	assert.Equal(t, 0.20, cfg.Engine.Headroom)
	assert.Equal(t, 720.0, cfg.Engine.HoursPerMonth)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
logging:
  level: debug
engine:
  min_training_observations: 30
  headroom: 0.35
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30, cfg.Engine.MinTrainingObservations)
	assert.Equal(t, 0.35, cfg.Engine.Headroom)
	// Unset keys keep defaults.
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Engine.Trees)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COSTLENS_SERVER_PORT", "7070")
	t.Setenv("COSTLENS_LOGGING_LEVEL", "warn")

	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate(), "defaults must validate clean")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Logging.Level = "verbose"
	cfg.Engine.Contamination = 1.5
	cfg.Engine.Headroom = -0.1

	errs := cfg.Validate()
	assert.Len(t, errs, 4)
}

func TestManagerValidate_CombinedError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load())

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}
