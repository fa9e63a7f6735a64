package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvoyaz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_stack: 4096\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.MaxStack)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().MaxFrames, cfg.MaxFrames)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dvoyaz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_stack: [unterminated\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
