package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "cortex.db", cfg.DBPath)
	require.True(t, cfg.AutoEmbed)
	require.Equal(t, "local", cfg.EmbeddingProvider)
	require.Equal(t, 0.1, cfg.ConsensusAlphaOrDefault())
}

func TestLoadSaveRoundtrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.DBPath = "custom.db"
	cfg.VerifiedThreshold = 1.7

	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "custom.db", loaded.DBPath)
	require.Equal(t, 1.7, loaded.VerifiedThreshold)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestConsensusAlphaOrDefault(t *testing.T) {
	cfg := Default()
	cfg.ConsensusAlpha = 0
	require.Equal(t, 0.1, cfg.ConsensusAlphaOrDefault())

	cfg.ConsensusAlpha = 0.25
	require.Equal(t, 0.25, cfg.ConsensusAlphaOrDefault())
}
