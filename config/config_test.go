package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsalvador/gdsim/config"
)

func TestLoadDefaults(t *testing.T) {
	// Point XDG_CONFIG_HOME at an empty dir so a developer's real config
	// file cannot leak into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, "miniaudio", cfg.AudioBackend)
	assert.Equal(t, 1000, cfg.MinClipBytes)
	assert.Equal(t, 2, cfg.Rounds)
	assert.Equal(t, "You", cfg.HumanName)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GDSIM_BACKEND_URL", "http://backend:9000")
	t.Setenv("GDSIM_AUDIO_BACKEND", "none")
	t.Setenv("GDSIM_MIN_CLIP_BYTES", "2048")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, "none", cfg.AudioBackend)
	assert.Equal(t, 2048, cfg.MinClipBytes)
}

func TestBadIntEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GDSIM_MIN_CLIP_BYTES", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MinClipBytes)
}
