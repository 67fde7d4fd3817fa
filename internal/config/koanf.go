// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tollgate/internal/challenge"
	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/riskprofile"
	"github.com/tomtom215/tollgate/internal/supervisor"
	"github.com/tomtom215/tollgate/internal/vpn"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tollgate/config.yaml",
	"/etc/tollgate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default applied. The component
// packages own their defaults; this only copies them into koanf sections.
func defaultConfig() *Config {
	limiter := ratelimit.DefaultConfig()
	chal := challenge.DefaultConfig()
	risk := riskprofile.DefaultConfig()
	tree := supervisor.DefaultTreeConfig()

	return &Config{
		Limiter: LimiterConfig{
			Window:           limiter.Window,
			MaxAttempts:      limiter.MaxAttempts,
			BlockDuration:    limiter.BlockDuration,
			ProgressiveDelay: limiter.ProgressiveDelay,
			Ladder:           limiter.Ladder,
			IPBlockDuration:  limiter.IPBlockDuration,
			MetricsRetention: limiter.MetricsRetention,
			FanoutWindow:     limiter.FanoutWindow,
			MaxTrackedKeys:   limiter.MaxTrackedKeys,
			SweepInterval:    5 * time.Minute,
		},
		Challenge: ChallengeConfig{
			TTL:               chal.TTL,
			MaxVerifyAttempts: chal.MaxVerifyAttempts,
			SweepInterval:     5 * time.Minute,
		},
		Risk: RiskConfig{
			Backend:                 risk.Backend,
			DeviceRetention:         risk.DeviceRetention,
			InconsistencyGap:        risk.InconsistencyGap,
			SuspectTimezones:        risk.SuspectTimezones,
			HeadlessResolutions:     risk.HeadlessResolutions,
			AutomationAgents:        []string{},
			VPNAgents:               []string{},
			SweepInterval:           time.Hour,
			BreakerMaxRequests:      risk.Breaker.MaxRequests,
			BreakerInterval:         risk.Breaker.Interval,
			BreakerTimeout:          risk.Breaker.Timeout,
			BreakerFailureThreshold: risk.Breaker.FailureThreshold,
		},
		VPN: vpn.DefaultConfig(),
		Server: ServerConfig{
			Port:              8790,
			Host:              "0.0.0.0",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			OperatorTokenTTL:  12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: tree.FailureThreshold,
			FailureDecay:     tree.FailureDecay,
			FailureBackoff:   tree.FailureBackoff,
			ShutdownTimeout:  tree.ShutdownTimeout,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// LIMITER_MAX_ATTEMPTS -> limiter.max_attempts
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"limiter.ladder",
	"risk.suspect_timezones",
	"risk.headless_resolutions",
	"risk.automation_agents",
	"risk.vpn_agents",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (defaults or YAML)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot pollute
// the configuration.
var envMappings = map[string]string{
	// Limiter
	"limiter_window":            "limiter.window",
	"limiter_max_attempts":      "limiter.max_attempts",
	"limiter_block_duration":    "limiter.block_duration",
	"limiter_progressive_delay": "limiter.progressive_delay",
	"limiter_ladder":            "limiter.ladder",
	"limiter_ip_block_duration": "limiter.ip_block_duration",
	"limiter_metrics_retention": "limiter.metrics_retention",
	"limiter_fanout_window":     "limiter.fanout_window",
	"limiter_max_tracked_keys":  "limiter.max_tracked_keys",
	"limiter_sweep_interval":    "limiter.sweep_interval",

	// Challenge
	"challenge_ttl":                 "challenge.ttl",
	"challenge_max_verify_attempts": "challenge.max_verify_attempts",
	"challenge_sweep_interval":      "challenge.sweep_interval",

	// Risk
	"risk_backend":                   "risk.backend",
	"risk_badger_dir":                "risk.badger_dir",
	"risk_device_retention":          "risk.device_retention",
	"risk_inconsistency_gap":         "risk.inconsistency_gap",
	"risk_suspect_timezones":         "risk.suspect_timezones",
	"risk_headless_resolutions":      "risk.headless_resolutions",
	"risk_automation_agents":         "risk.automation_agents",
	"risk_vpn_agents":                "risk.vpn_agents",
	"risk_sweep_interval":            "risk.sweep_interval",
	"risk_breaker_max_requests":      "risk.breaker_max_requests",
	"risk_breaker_interval":          "risk.breaker_interval",
	"risk_breaker_timeout":           "risk.breaker_timeout",
	"risk_breaker_failure_threshold": "risk.breaker_failure_threshold",

	// VPN lookup
	"vpn_enabled":         "vpn.enabled",
	"vpn_data_file":       "vpn.data_file",
	"vpn_auto_update":     "vpn.auto_update",
	"vpn_source_url":      "vpn.source_url",
	"vpn_update_interval": "vpn.update_interval",
	"vpn_http_timeout":    "vpn.http_timeout",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",
	"operator_jwt_secret":   "server.operator_jwt_secret",
	"operator_token_ttl":    "server.operator_token_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LIMITER_MAX_ATTEMPTS -> limiter.max_attempts
//   - RISK_BACKEND -> risk.backend
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
