// Package config loads CORTEX's on-disk engine configuration: a single
// JSON file holding the knobs spec §6 names. The load/save/path shape
// mirrors the teacher's internal/configfile package; the field set is
// CORTEX's own.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cortexdb/cortex/internal/model"
)

// FileName is the config file CORTEX looks for inside its data directory.
const FileName = "cortex.json"

// EngineConfig holds every knob spec §6 names. Default() fills every
// field. A config a caller constructs by hand is used as given: zero
// fields are not replaced by defaults, except that
// ConsensusAlphaOrDefault substitutes 0.1 for an unset alpha.
type EngineConfig struct {
	DBPath string `json:"db_path" toml:"db_path" yaml:"db_path"`

	AutoEmbed             bool   `json:"auto_embed" toml:"auto_embed" yaml:"auto_embed"`
	EmbeddingProvider     string `json:"embedding_provider" toml:"embedding_provider" yaml:"embedding_provider"`
	EmbeddingEndpoint     string `json:"embedding_endpoint" toml:"embedding_endpoint" yaml:"embedding_endpoint"`
	EmbeddingAPIKey       string `json:"embedding_api_key" toml:"embedding_api_key" yaml:"embedding_api_key"`
	EmbeddingModel        string `json:"embedding_model" toml:"embedding_model" yaml:"embedding_model"`
	EmbeddingHalflifeDays int    `json:"embedding_halflife_days" toml:"embedding_halflife_days" yaml:"embedding_halflife_days"`

	CheckpointWindow       int `json:"checkpoint_window" toml:"checkpoint_window" yaml:"checkpoint_window"`
	CheckpointMinAgeSecond int `json:"checkpoint_min_age_seconds" toml:"checkpoint_min_age_seconds" yaml:"checkpoint_min_age_seconds"`

	ConsensusMinWeight    float64 `json:"consensus_min_weight" toml:"consensus_min_weight" yaml:"consensus_min_weight"`
	ConsensusHalflifeDays float64 `json:"consensus_halflife_days" toml:"consensus_halflife_days" yaml:"consensus_halflife_days"`
	ConsensusAlpha        float64 `json:"consensus_alpha" toml:"consensus_alpha" yaml:"consensus_alpha"`

	VerifiedThreshold float64 `json:"verified_threshold" toml:"verified_threshold" yaml:"verified_threshold"`
	DisputedThreshold float64 `json:"disputed_threshold" toml:"disputed_threshold" yaml:"disputed_threshold"`
	ContestedVariance float64 `json:"contested_variance" toml:"contested_variance" yaml:"contested_variance"`
}

// Default returns the configuration spec §6 names as defaults.
func Default() *EngineConfig {
	return &EngineConfig{
		DBPath:                 "cortex.db",
		AutoEmbed:              true,
		EmbeddingProvider:      "local",
		EmbeddingHalflifeDays:  30,
		CheckpointWindow:       1024,
		CheckpointMinAgeSecond: 60,
		ConsensusMinWeight:     5.0,
		ConsensusHalflifeDays:  30,
		ConsensusAlpha:         0.1,
		VerifiedThreshold:      model.DefaultVerifiedThreshold,
		DisputedThreshold:      model.DefaultDisputedThreshold,
		ContestedVariance:      model.DefaultContestedVariance,
	}
}

// Path joins dir with the config file name.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and parses the config file under dir. A missing file is not
// an error: it returns Default().
func Load(dir string) (*EngineConfig, error) {
	path := Path(dir)
	data, err := os.ReadFile(path) // #nosec G304 -- dir is operator-controlled, not request input
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to dir as indented JSON.
func (c *EngineConfig) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(Path(dir), data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// ConsensusAlphaOrDefault returns c.ConsensusAlpha, falling back to the
// spec-fixed 0.1 when unset (spec §5's reputation update uses alpha=0.1).
func (c *EngineConfig) ConsensusAlphaOrDefault() float64 {
	if c.ConsensusAlpha <= 0 {
		return 0.1
	}
	return c.ConsensusAlpha
}
