// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package challenge

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by NewManager when the configuration cannot work.
var ErrInvalidConfig = errors.New("invalid challenge configuration")

// Config holds challenge manager configuration.
type Config struct {
	// TTL is the fixed lifetime of every challenge.
	TTL time.Duration `json:"ttl"`

	// MaxVerifyAttempts is the number of verify calls a challenge accepts.
	// The next call reports EXHAUSTED without checking the answer.
	MaxVerifyAttempts int `json:"max_verify_attempts"`
}

// DefaultConfig returns a 5 minute TTL and 3 verify attempts.
func DefaultConfig() Config {
	return Config{
		TTL:               5 * time.Minute,
		MaxVerifyAttempts: 3,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	}
	if c.MaxVerifyAttempts <= 0 {
		return fmt.Errorf("%w: max_verify_attempts must be positive, got %d", ErrInvalidConfig, c.MaxVerifyAttempts)
	}
	return nil
}
