// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tollgate/internal/riskprofile"
)

// isolate points CONFIG_PATH at nothing so a config.yaml in the working
// directory or /etc cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	return path
}

// TestDefaultConfig verifies that defaultConfig() mirrors the component defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Limiter.Window != 15*time.Minute {
		t.Errorf("Limiter.Window = %v, want 15m", cfg.Limiter.Window)
	}
	if cfg.Limiter.MaxAttempts != 5 {
		t.Errorf("Limiter.MaxAttempts = %d, want 5", cfg.Limiter.MaxAttempts)
	}
	wantLadder := []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour, 24 * time.Hour}
	if !reflect.DeepEqual(cfg.Limiter.Ladder, wantLadder) {
		t.Errorf("Limiter.Ladder = %v, want %v", cfg.Limiter.Ladder, wantLadder)
	}
	if cfg.Challenge.TTL != 5*time.Minute {
		t.Errorf("Challenge.TTL = %v, want 5m", cfg.Challenge.TTL)
	}
	if cfg.Challenge.MaxVerifyAttempts != 3 {
		t.Errorf("Challenge.MaxVerifyAttempts = %d, want 3", cfg.Challenge.MaxVerifyAttempts)
	}
	if cfg.Limiter.SweepInterval != 5*time.Minute || cfg.Challenge.SweepInterval != 5*time.Minute {
		t.Errorf("sweep intervals = %v/%v, want 5m/5m", cfg.Limiter.SweepInterval, cfg.Challenge.SweepInterval)
	}
	if cfg.Risk.Backend != riskprofile.BackendMemory {
		t.Errorf("Risk.Backend = %q, want memory", cfg.Risk.Backend)
	}
	if cfg.Server.Port != 8790 {
		t.Errorf("Server.Port = %d, want 8790", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.Supervisor.FailureThreshold != 5 {
		t.Errorf("Supervisor.FailureThreshold = %v, want 5", cfg.Supervisor.FailureThreshold)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestEnvTransformFunc verifies environment variable name mapping
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"LIMITER_MAX_ATTEMPTS", "limiter.max_attempts"},
		{"LIMITER_LADDER", "limiter.ladder"},
		{"CHALLENGE_TTL", "challenge.ttl"},
		{"RISK_BACKEND", "risk.backend"},
		{"RISK_BREAKER_FAILURE_THRESHOLD", "risk.breaker_failure_threshold"},
		{"VPN_ENABLED", "vpn.enabled"},
		{"HTTP_PORT", "server.port"},
		{"DISABLE_RATE_LIMIT", "server.rate_limit_disabled"},
		{"LOG_LEVEL", "logging.level"},
		{"SUPERVISOR_SHUTDOWN_TIMEOUT", "supervisor.shutdown_timeout"},
		{"log_format", "logging.format"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := envTransformFunc(tt.input); result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	isolate(t)

	t.Run("no config file exists", func(t *testing.T) {
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		if err := os.WriteFile("config.yaml", []byte("logging:\n  level: warn\n"), 0o600); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove("config.yaml")

		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		custom := writeConfig(t, "logging:\n  level: warn\n")
		t.Setenv(ConfigPathEnvVar, custom)

		if result := findConfigFile(); result != custom {
			t.Errorf("findConfigFile() = %q, want %q", result, custom)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")

		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LIMITER_MAX_ATTEMPTS", "10")
	t.Setenv("LIMITER_WINDOW", "30m")
	t.Setenv("LIMITER_LADDER", "1m, 10m")
	t.Setenv("RISK_SUSPECT_TIMEZONES", "UTC,Etc/GMT")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Limiter.MaxAttempts != 10 {
		t.Errorf("Limiter.MaxAttempts = %d, want 10", cfg.Limiter.MaxAttempts)
	}
	if cfg.Limiter.Window != 30*time.Minute {
		t.Errorf("Limiter.Window = %v, want 30m", cfg.Limiter.Window)
	}
	if want := []time.Duration{time.Minute, 10 * time.Minute}; !reflect.DeepEqual(cfg.Limiter.Ladder, want) {
		t.Errorf("Limiter.Ladder = %v, want %v", cfg.Limiter.Ladder, want)
	}
	if want := []string{"UTC", "Etc/GMT"}; !reflect.DeepEqual(cfg.Risk.SuspectTimezones, want) {
		t.Errorf("Risk.SuspectTimezones = %v, want %v", cfg.Risk.SuspectTimezones, want)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("Server.CORSOrigins = %v, want 2 origins", cfg.Server.CORSOrigins)
	}

	// Defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Challenge.MaxVerifyAttempts != 3 {
		t.Errorf("Challenge.MaxVerifyAttempts = %d, want 3 (default)", cfg.Challenge.MaxVerifyAttempts)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
limiter:
  max_attempts: 8
  ladder: [2m, 20m]
risk:
  backend: badger
  headless_resolutions: ["1024x768"]
server:
  port: 8888
  host: "127.0.0.1"
logging:
  level: warn
`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Limiter.MaxAttempts != 8 {
		t.Errorf("Limiter.MaxAttempts = %d, want 8", cfg.Limiter.MaxAttempts)
	}
	if want := []time.Duration{2 * time.Minute, 20 * time.Minute}; !reflect.DeepEqual(cfg.Limiter.Ladder, want) {
		t.Errorf("Limiter.Ladder = %v, want %v", cfg.Limiter.Ladder, want)
	}
	if cfg.Risk.Backend != riskprofile.BackendBadger {
		t.Errorf("Risk.Backend = %q, want badger", cfg.Risk.Backend)
	}
	if cfg.Server.Addr() != "127.0.0.1:8888" {
		t.Errorf("Server.Addr() = %q, want 127.0.0.1:8888", cfg.Server.Addr())
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Limiter.Window != 15*time.Minute {
		t.Errorf("Limiter.Window = %v, want 15m (default)", cfg.Limiter.Window)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
server:
  port: 8888
logging:
  level: warn
`)
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
}

// TestLoadWithKoanfValidation tests that validation runs after loading
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "valid configuration",
			envVars: map[string]string{"LIMITER_MAX_ATTEMPTS": "3"},
		},
		{
			name:    "limiter needs attempts",
			envVars: map[string]string{"LIMITER_MAX_ATTEMPTS": "0"},
			errMsg:  "limiter",
		},
		{
			name:    "challenge ttl must be positive",
			envVars: map[string]string{"CHALLENGE_TTL": "0s"},
			errMsg:  "challenge",
		},
		{
			name:    "unknown risk backend",
			envVars: map[string]string{"RISK_BACKEND": "redis"},
			errMsg:  "risk",
		},
		{
			name:    "sweep interval too small",
			envVars: map[string]string{"RISK_SWEEP_INTERVAL": "10ms"},
			errMsg:  "RISK_SWEEP_INTERVAL",
		},
		{
			name:    "port out of range",
			envVars: map[string]string{"HTTP_PORT": "70000"},
			errMsg:  "HTTP_PORT",
		},
		{
			name:    "rate limit too high",
			envVars: map[string]string{"RATE_LIMIT_REQUESTS": "1000000"},
			errMsg:  "RATE_LIMIT_REQUESTS",
		},
		{
			name:    "rate limit ignored when disabled",
			envVars: map[string]string{"RATE_LIMIT_REQUESTS": "1000000", "DISABLE_RATE_LIMIT": "true"},
		},
		{
			name:    "operator secret too short",
			envVars: map[string]string{"OPERATOR_JWT_SECRET": "short"},
			errMsg:  "OPERATOR_JWT_SECRET",
		},
		{
			name:    "operator secret accepted",
			envVars: map[string]string{"OPERATOR_JWT_SECRET": "0123456789abcdef0123456789abcdef"},
		},
		{
			name:    "bad log level",
			envVars: map[string]string{"LOG_LEVEL": "verbose"},
			errMsg:  "LOG_LEVEL",
		},
		{
			name:    "vpn auto update needs url",
			envVars: map[string]string{"VPN_AUTO_UPDATE": "true", "VPN_SOURCE_URL": "ftp://example.com/list"},
			errMsg:  "VPN_SOURCE_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("LoadWithKoanf() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("LoadWithKoanf() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestConfigConversions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Limiter.MaxAttempts = 7
	cfg.Risk.BreakerFailureThreshold = 9
	cfg.Logging.Level = "debug"
	cfg.Supervisor.ShutdownTimeout = 3 * time.Second

	engine := cfg.Engine()
	if engine.Limiter.MaxAttempts != 7 {
		t.Errorf("Engine().Limiter.MaxAttempts = %d, want 7", engine.Limiter.MaxAttempts)
	}
	if engine.Risk.Breaker.FailureThreshold != 9 {
		t.Errorf("Engine().Risk.Breaker.FailureThreshold = %d, want 9", engine.Risk.Breaker.FailureThreshold)
	}

	// The ladder is copied, not shared.
	engine.Limiter.Ladder[0] = time.Hour
	if cfg.Limiter.Ladder[0] != time.Minute {
		t.Error("Engine() shares the ladder slice with Config")
	}

	if got := cfg.LoggingOptions().Level; got != "debug" {
		t.Errorf("LoggingOptions().Level = %q, want debug", got)
	}
	if got := cfg.Tree().ShutdownTimeout; got != 3*time.Second {
		t.Errorf("Tree().ShutdownTimeout = %v, want 3s", got)
	}
	if !cfg.HasWildcardCORS() {
		t.Error("default CORS should be the wildcard")
	}
}
