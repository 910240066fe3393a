package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TOMLFileName is the alternate-format config file some adapters prefer
// over cortex.json (SPEC_FULL.md's DOMAIN STACK wires BurntSushi/toml in
// for exactly this).
const TOMLFileName = "cortex.toml"

// LoadTOML reads dir/cortex.toml if present, falling back to Default()
// when absent, mirroring Load's JSON tolerance for a missing file.
func LoadTOML(dir string) (*EngineConfig, error) {
	path := filepath.Join(dir, TOMLFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode toml %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTOML writes cfg to dir/cortex.toml.
func (c *EngineConfig) SaveTOML(dir string) error {
	path := filepath.Join(dir, TOMLFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("config: open toml %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode toml %s: %w", path, err)
	}
	return nil
}
