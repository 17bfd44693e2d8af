package config

import (
	"os"
	"strconv"
)

// FromEnv overlays INSOC_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("INSOC_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("INSOC_INGEST_TOKEN"); v != "" {
		cfg.IngestToken = v
	}
	if v := os.Getenv("INSOC_UI_TOKEN"); v != "" {
		cfg.UIToken = v
	}
	if v := os.Getenv("INSOC_MAX_BATCH_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxBatchBytes = n
		}
	}
	if v := os.Getenv("INSOC_SUB_BUF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubscriberBuf = n
		}
	}
	if v := os.Getenv("INSOC_RETENTION_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.RetentionSeconds = n
		}
	}
	if v := os.Getenv("INSOC_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.SweepIntervalSeconds = n
		}
	}
	if v := os.Getenv("INSOC_BLOCK_COMMAND"); v != "" {
		cfg.BlockCommand = v
	}
	if v := os.Getenv("INSOC_BLOCK_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.BlockTimeoutSeconds = n
		}
	}
}
