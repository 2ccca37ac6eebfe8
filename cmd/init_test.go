package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestInitCommand(t *testing.T) {
	dir := setupTestEnv(t)
	defer dir.Cleanup()

	initConfigDir = filepath.Join(dir.Path, "config")
	defer func() { initConfigDir = "" }()

	if err := runInit(nil, []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	configPath := filepath.Join(initConfigDir, "config.toml")
	var cfg fileConfig
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if cfg.Cache.WIPTTL != "1m0s" {
		t.Errorf("expected wip_ttl 1m0s, got %q", cfg.Cache.WIPTTL)
	}
	if cfg.Cache.UnreleasedTTL != "24h0m0s" {
		t.Errorf("expected unreleased_ttl 24h0m0s, got %q", cfg.Cache.UnreleasedTTL)
	}
	if len(cfg.Freeze.ReservedNames) != 2 {
		t.Errorf("expected 2 reserved names, got %v", cfg.Freeze.ReservedNames)
	}

	if _, err := os.Stat(filepath.Join(dir.Path, "db")); err != nil {
		t.Errorf("store directory was not created: %v", err)
	}
}

func TestInitKeepsExistingConfig(t *testing.T) {
	dir := setupTestEnv(t)
	defer dir.Cleanup()

	initConfigDir = filepath.Join(dir.Path, "config")
	defer func() { initConfigDir = "" }()

	if err := os.MkdirAll(initConfigDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configPath := filepath.Join(initConfigDir, "config.toml")
	existing := "[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(configPath, []byte(existing), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := runInit(nil, []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(content) != existing {
		t.Error("existing config was overwritten")
	}
}
