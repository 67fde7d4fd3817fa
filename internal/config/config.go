// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/tollgate/internal/challenge"
	"github.com/tomtom215/tollgate/internal/guard"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/riskprofile"
	"github.com/tomtom215/tollgate/internal/supervisor"
	"github.com/tomtom215/tollgate/internal/vpn"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Limiter    LimiterConfig    `koanf:"limiter"`
	Challenge  ChallengeConfig  `koanf:"challenge"`
	Risk       RiskConfig       `koanf:"risk"`
	VPN        vpn.Config       `koanf:"vpn"` // Optional: source-IP VPN lookup
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// LimiterConfig holds rate limiter settings.
//
// Environment Variables:
//   - LIMITER_WINDOW: Attempt counting window (default: 15m)
//   - LIMITER_MAX_ATTEMPTS: Attempts allowed per window (default: 5)
//   - LIMITER_BLOCK_DURATION: Flat block duration (default: 5m)
//   - LIMITER_PROGRESSIVE_DELAY: Use the escalating ladder (default: true)
//   - LIMITER_LADDER: Comma-separated block ladder (default: 1m,5m,15m,1h,24h)
//   - LIMITER_IP_BLOCK_DURATION: Source IP block duration, 0 = until unblocked (default: 24h)
//   - LIMITER_SWEEP_INTERVAL: Idle state sweep interval (default: 5m)
type LimiterConfig struct {
	Window           time.Duration   `koanf:"window"`
	MaxAttempts      int             `koanf:"max_attempts"`
	BlockDuration    time.Duration   `koanf:"block_duration"`
	ProgressiveDelay bool            `koanf:"progressive_delay"`
	Ladder           []time.Duration `koanf:"ladder"`
	IPBlockDuration  time.Duration   `koanf:"ip_block_duration"`
	MetricsRetention time.Duration   `koanf:"metrics_retention"`
	FanoutWindow     time.Duration   `koanf:"fanout_window"`
	MaxTrackedKeys   int             `koanf:"max_tracked_keys"`
	SweepInterval    time.Duration   `koanf:"sweep_interval"`
}

// ChallengeConfig holds challenge manager settings.
type ChallengeConfig struct {
	TTL               time.Duration `koanf:"ttl"`
	MaxVerifyAttempts int           `koanf:"max_verify_attempts"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
}

// RiskConfig holds risk assessor and device registry settings.
//
// Environment Variables:
//   - RISK_BACKEND: Device registry backend, memory or badger (default: memory)
//   - RISK_BADGER_DIR: Badger data directory, empty = in-memory (default: "")
//   - RISK_DEVICE_RETENTION: Trusted/flagged device lifetime (default: 2160h)
//   - RISK_SUSPECT_TIMEZONES: Comma-separated suspect timezones
type RiskConfig struct {
	Backend             string        `koanf:"backend"`
	BadgerDir           string        `koanf:"badger_dir"`
	DeviceRetention     time.Duration `koanf:"device_retention"`
	InconsistencyGap    time.Duration `koanf:"inconsistency_gap"`
	SuspectTimezones    []string      `koanf:"suspect_timezones"`
	HeadlessResolutions []string      `koanf:"headless_resolutions"`
	AutomationAgents    []string      `koanf:"automation_agents"`
	VPNAgents           []string      `koanf:"vpn_agents"`
	SweepInterval       time.Duration `koanf:"sweep_interval"`

	// Circuit breaker around registry reads
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Global per-IP request limit of the HTTP API (httprate)
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`

	// HS256 secret for operator route tokens. Empty leaves operator
	// routes unauthenticated.
	OperatorJWTSecret string        `koanf:"operator_jwt_secret"`
	OperatorTokenTTL  time.Duration `koanf:"operator_token_ttl"`
}

// OperatorAuthEnabled reports whether operator routes require a token.
func (s ServerConfig) OperatorAuthEnabled() bool {
	return s.OperatorJWTSecret != ""
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds suture tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from, in increasing priority:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Engine converts the component sections into the engine configuration.
func (c *Config) Engine() guard.Config {
	ladder := make([]time.Duration, len(c.Limiter.Ladder))
	copy(ladder, c.Limiter.Ladder)

	return guard.Config{
		Limiter: ratelimit.Config{
			Window:           c.Limiter.Window,
			MaxAttempts:      c.Limiter.MaxAttempts,
			BlockDuration:    c.Limiter.BlockDuration,
			ProgressiveDelay: c.Limiter.ProgressiveDelay,
			Ladder:           ladder,
			IPBlockDuration:  c.Limiter.IPBlockDuration,
			MetricsRetention: c.Limiter.MetricsRetention,
			FanoutWindow:     c.Limiter.FanoutWindow,
			MaxTrackedKeys:   c.Limiter.MaxTrackedKeys,
		},
		Challenge: challenge.Config{
			TTL:               c.Challenge.TTL,
			MaxVerifyAttempts: c.Challenge.MaxVerifyAttempts,
		},
		Risk: riskprofile.Config{
			Backend:             c.Risk.Backend,
			BadgerDir:           c.Risk.BadgerDir,
			DeviceRetention:     c.Risk.DeviceRetention,
			InconsistencyGap:    c.Risk.InconsistencyGap,
			SuspectTimezones:    c.Risk.SuspectTimezones,
			HeadlessResolutions: c.Risk.HeadlessResolutions,
			AutomationAgents:    c.Risk.AutomationAgents,
			VPNAgents:           c.Risk.VPNAgents,
			Breaker: riskprofile.BreakerConfig{
				MaxRequests:      c.Risk.BreakerMaxRequests,
				Interval:         c.Risk.BreakerInterval,
				Timeout:          c.Risk.BreakerTimeout,
				FailureThreshold: c.Risk.BreakerFailureThreshold,
			},
		},
	}
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// Tree converts the supervisor section.
func (c *Config) Tree() supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: c.Supervisor.FailureThreshold,
		FailureDecay:     c.Supervisor.FailureDecay,
		FailureBackoff:   c.Supervisor.FailureBackoff,
		ShutdownTimeout:  c.Supervisor.ShutdownTimeout,
	}
}

// String renders a one-line summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("addr=%s limiter=%d/%s challenge_ttl=%s risk_backend=%s vpn=%t operator_auth=%t",
		c.Server.Addr(), c.Limiter.MaxAttempts, c.Limiter.Window, c.Challenge.TTL, c.Risk.Backend, c.VPN.Enabled,
		c.Server.OperatorAuthEnabled())
}
