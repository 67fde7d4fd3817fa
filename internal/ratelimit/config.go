// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by New when the configuration cannot work.
var ErrInvalidConfig = errors.New("invalid rate limiter configuration")

// DefaultLadder is the progressive block ladder. The n-th threshold breach of
// an identifier is blocked for DefaultLadder[min(n-1, len-1)].
var DefaultLadder = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	24 * time.Hour,
}

// Suspicious-activity thresholds.
const (
	rapidWindow       = 30 * time.Second
	rapidThreshold    = 3   // more than this many attempts in rapidWindow
	failureRatioLimit = 0.8 // failed/total above this ...
	failureMinimum    = 10  // ... with more than this many failures
	fanoutThreshold   = 5   // more than this many identifiers from one IP
	ipSuspicionLimit  = 3   // IP is blocked once its suspicion count exceeds this
	recentActivity    = 5 * time.Minute
)

// Config holds rate limiter configuration.
type Config struct {
	// Window is the attempt counting window.
	Window time.Duration `json:"window"`

	// MaxAttempts is the number of attempts allowed per window.
	MaxAttempts int `json:"max_attempts"`

	// BlockDuration is the flat block applied when ProgressiveDelay is false.
	BlockDuration time.Duration `json:"block_duration"`

	// ProgressiveDelay selects block durations from Ladder by breach count.
	ProgressiveDelay bool `json:"progressive_delay"`

	// Ladder is the escalating block duration list. Must be non-decreasing.
	Ladder []time.Duration `json:"ladder"`

	// IPBlockDuration is how long a source IP stays in the blocked set.
	// Zero keeps it until UnblockIP.
	IPBlockDuration time.Duration `json:"ip_block_duration"`

	// MetricsRetention is the inactivity period after which per-identifier
	// security metrics and per-IP suspicion are dropped.
	MetricsRetention time.Duration `json:"metrics_retention"`

	// FanoutWindow is how long an (ip, identifier) pair counts toward fan-out.
	FanoutWindow time.Duration `json:"fanout_window"`

	// MaxTrackedKeys bounds the rapid-attempt and fan-out stores. 0 = unlimited.
	MaxTrackedKeys int `json:"max_tracked_keys"`
}

// DefaultConfig returns the documented defaults: 5 attempts per 15 minutes,
// 5 minute flat block, progressive ladder enabled.
func DefaultConfig() Config {
	ladder := make([]time.Duration, len(DefaultLadder))
	copy(ladder, DefaultLadder)

	return Config{
		Window:           15 * time.Minute,
		MaxAttempts:      5,
		BlockDuration:    5 * time.Minute,
		ProgressiveDelay: true,
		Ladder:           ladder,
		IPBlockDuration:  24 * time.Hour,
		MetricsRetention: 24 * time.Hour,
		FanoutWindow:     24 * time.Hour,
		MaxTrackedKeys:   100_000,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if !c.ProgressiveDelay && c.BlockDuration <= 0 {
		return fmt.Errorf("%w: block_duration must be positive, got %s", ErrInvalidConfig, c.BlockDuration)
	}
	if c.ProgressiveDelay {
		if len(c.Ladder) == 0 {
			return fmt.Errorf("%w: progressive ladder is empty", ErrInvalidConfig)
		}
		for i, d := range c.Ladder {
			if d <= 0 {
				return fmt.Errorf("%w: ladder[%d] must be positive, got %s", ErrInvalidConfig, i, d)
			}
			if i > 0 && d < c.Ladder[i-1] {
				return fmt.Errorf("%w: ladder must be non-decreasing at index %d", ErrInvalidConfig, i)
			}
		}
	}
	if c.IPBlockDuration < 0 {
		return fmt.Errorf("%w: ip_block_duration must not be negative", ErrInvalidConfig)
	}
	if c.MetricsRetention <= 0 {
		return fmt.Errorf("%w: metrics_retention must be positive", ErrInvalidConfig)
	}
	if c.FanoutWindow <= 0 {
		return fmt.Errorf("%w: fanout_window must be positive", ErrInvalidConfig)
	}
	if c.MaxTrackedKeys < 0 {
		return fmt.Errorf("%w: max_tracked_keys must not be negative", ErrInvalidConfig)
	}
	return nil
}

// blockDuration returns the block for the given breach count (1-based).
func (c *Config) blockDuration(breaches int) time.Duration {
	if !c.ProgressiveDelay {
		return c.BlockDuration
	}
	idx := breaches - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.Ladder)-1 {
		idx = len(c.Ladder) - 1
	}
	return c.Ladder[idx]
}
