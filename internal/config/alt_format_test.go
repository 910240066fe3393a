package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTOMLRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DBPath = "toml.db"
	cfg.ConsensusAlpha = 0.2

	require.NoError(t, cfg.SaveTOML(dir))

	loaded, err := LoadTOML(dir)
	require.NoError(t, err)
	require.Equal(t, "toml.db", loaded.DBPath)
	require.Equal(t, 0.2, loaded.ConsensusAlpha)
}

func TestTOMLMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadTOML(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestYAMLRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DBPath = "yaml.db"
	cfg.CheckpointWindow = 500

	require.NoError(t, cfg.SaveYAML(dir))

	loaded, err := LoadYAML(dir)
	require.NoError(t, err)
	require.Equal(t, "yaml.db", loaded.DBPath)
	require.Equal(t, 500, loaded.CheckpointWindow)
}

func TestYAMLMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadYAML(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
