// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks that configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}

	if err := c.validateSweeps(); err != nil {
		return err
	}

	if err := c.validateVPN(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateEngine runs the component validators against the converted
// sections so the rules live in one place.
func (c *Config) validateEngine() error {
	engine := c.Engine()
	if err := engine.Limiter.Validate(); err != nil {
		return fmt.Errorf("limiter: %w", err)
	}
	if err := engine.Challenge.Validate(); err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	if err := engine.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return nil
}

// validateSweeps validates the sweep intervals
func (c *Config) validateSweeps() error {
	intervals := map[string]time.Duration{
		"LIMITER_SWEEP_INTERVAL":   c.Limiter.SweepInterval,
		"CHALLENGE_SWEEP_INTERVAL": c.Challenge.SweepInterval,
		"RISK_SWEEP_INTERVAL":      c.Risk.SweepInterval,
	}
	for name, d := range intervals {
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s, got %v", name, d)
		}
	}
	return nil
}

// validateVPN validates VPN lookup configuration (only if auto update is on)
func (c *Config) validateVPN() error {
	if !c.VPN.Enabled || !c.VPN.AutoUpdate {
		return nil
	}
	u, err := url.Parse(c.VPN.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("VPN_SOURCE_URL must be an http(s) URL when VPN_AUTO_UPDATE=true")
	}
	if c.VPN.UpdateInterval < time.Minute {
		return fmt.Errorf("VPN_UPDATE_INTERVAL must be at least 1m")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.OperatorAuthEnabled() && len(c.Server.OperatorJWTSecret) < minOperatorSecretLength {
		return fmt.Errorf("OPERATOR_JWT_SECRET must be at least %d characters", minOperatorSecretLength)
	}
	if c.Server.OperatorTokenTTL <= 0 {
		return fmt.Errorf("OPERATOR_TOKEN_TTL must be positive")
	}
	return nil
}

const minOperatorSecretLength = 32

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates the HTTP API rate limit bounds.
func (c *Config) validateRateLimits() error {
	if c.Server.RateLimitDisabled {
		return nil
	}

	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// HasWildcardCORS reports whether CORS allows any origin. The API carries no
// credentials, so this is logged rather than rejected.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
