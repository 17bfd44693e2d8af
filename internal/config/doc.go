// Package config provides loading and environment overlay for InSOC
// runtime configuration. It exposes a Default() baseline, JSON/YAML file
// loading, and an INSOC_* env var overlay applied on top.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/insoc.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
