package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// IngestToken gates collector ingestion. Empty disables the check.
	IngestToken string `json:"ingestToken" yaml:"ingestToken"`
	// UIToken gates viewer-side administrative calls (block, purge, audit).
	// Empty disables the check.
	UIToken string `json:"uiToken" yaml:"uiToken"`
	// MaxBatchBytes caps the serialized size of one ingestion call.
	MaxBatchBytes int `json:"maxBatchBytes" yaml:"maxBatchBytes"`
	// SubscriberBuf is the per-subscriber live queue capacity.
	SubscriberBuf int `json:"subscriberBuf" yaml:"subscriberBuf"`
	// RetentionSeconds is the age horizon for the sweeper, against event ts.
	RetentionSeconds int64 `json:"retentionSeconds" yaml:"retentionSeconds"`
	// SweepIntervalSeconds is the sweeper cadence.
	SweepIntervalSeconds int64 `json:"sweepIntervalSeconds" yaml:"sweepIntervalSeconds"`
	// BlockCommand is the executable invoked with the target as its sole
	// argument when a block action is accepted. Empty disables execution.
	BlockCommand string `json:"blockCommand" yaml:"blockCommand"`
	// BlockTimeoutSeconds bounds one block command run.
	BlockTimeoutSeconds int64 `json:"blockTimeoutSeconds" yaml:"blockTimeoutSeconds"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:             ":5050",
		MaxBatchBytes:        2 << 20,
		SubscriberBuf:        1024,
		RetentionSeconds:     3600,
		SweepIntervalSeconds: 60,
		BlockTimeoutSeconds:  10,
	}
}

// RetentionHorizon returns the sweep horizon as a duration.
func (c Config) RetentionHorizon() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

// SweepInterval returns the sweeper cadence as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// BlockTimeout returns the block command deadline as a duration.
func (c Config) BlockTimeout() time.Duration {
	return time.Duration(c.BlockTimeoutSeconds) * time.Second
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
