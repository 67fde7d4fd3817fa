// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New when the configuration cannot work.
var ErrInvalidConfig = errors.New("invalid risk profile configuration")

// DefaultSuspectTimezones are zones typical of VPN exits and scripted clients.
var DefaultSuspectTimezones = []string{"UTC", "Etc/UTC", "GMT", "Etc/GMT", "Etc/Unknown"}

// DefaultHeadlessResolutions are default window sizes of headless browsers.
var DefaultHeadlessResolutions = []string{"800x600", "1024x768", "1280x720"}

// BreakerConfig configures the circuit breaker in front of registry reads.
type BreakerConfig struct {
	MaxRequests      uint32        `json:"max_requests"`
	Interval         time.Duration `json:"interval"`
	Timeout          time.Duration `json:"timeout"`
	FailureThreshold uint32        `json:"failure_threshold"`
}

// Registry backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config holds assessor configuration.
type Config struct {
	// Backend selects the registry implementation: "memory" or "badger".
	Backend string `json:"backend"`

	// BadgerDir is the badger data directory. Empty runs badger in memory.
	BadgerDir string `json:"badger_dir,omitempty"`

	// DeviceRetention is how long registry entries live.
	DeviceRetention time.Duration `json:"device_retention"`

	// InconsistencyGap gates device_inconsistencies: the last-known device must
	// be older than this.
	InconsistencyGap time.Duration `json:"inconsistency_gap"`

	SuspectTimezones    []string `json:"suspect_timezones"`
	HeadlessResolutions []string `json:"headless_resolutions"`

	// AutomationAgents and VPNAgents replace the default agent patterns when
	// non-empty.
	AutomationAgents []string `json:"automation_agents,omitempty"`
	VPNAgents        []string `json:"vpn_agents,omitempty"`

	Breaker BreakerConfig `json:"breaker"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Backend:             BackendMemory,
		DeviceRetention:     90 * 24 * time.Hour,
		InconsistencyGap:    24 * time.Hour,
		SuspectTimezones:    append([]string(nil), DefaultSuspectTimezones...),
		HeadlessResolutions: append([]string(nil), DefaultHeadlessResolutions...),
		Breaker: BreakerConfig{
			MaxRequests:      3,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBadger:
	default:
		return fmt.Errorf("%w: unknown registry backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.DeviceRetention <= 0 {
		return fmt.Errorf("%w: device_retention must be positive, got %s", ErrInvalidConfig, c.DeviceRetention)
	}
	if c.InconsistencyGap < 0 {
		return fmt.Errorf("%w: inconsistency_gap must not be negative", ErrInvalidConfig)
	}
	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("%w: breaker failure_threshold must be positive", ErrInvalidConfig)
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("%w: breaker timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
