package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
definitions: /etc/upkeep/definitions.yaml
spinner_interval: 250ms
color: never
assume_yes: true
mode: replay
replay_file: session.yaml
`))
	require.NoError(t, err)
	assert.Equal(t, "/etc/upkeep/definitions.yaml", cfg.Definitions)
	assert.Equal(t, 250*time.Millisecond, cfg.SpinnerInterval)
	assert.Equal(t, "never", cfg.Color)
	assert.True(t, cfg.AssumeYes)
	assert.Equal(t, ModeReplay, cfg.Mode)
	assert.Equal(t, 80, cfg.LineWidth, "unset keys keep defaults")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "colour: never\n"))
	assert.ErrorContains(t, err, "colour")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "color: rainbow\nmode: replay\nline_width: 5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color must be")
	assert.Contains(t, err.Error(), "replay_file")
	assert.Contains(t, err.Error(), "line_width")
}

func TestPath(t *testing.T) {
	t.Setenv("UPKEEP_CONFIG", "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", Path())

	t.Setenv("UPKEEP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "upkeep", "config.yaml"), Path())
}
