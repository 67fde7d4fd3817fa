// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tollgate/internal/challenge"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/riskprofile"
)

// Config groups the configuration of the three components.
type Config struct {
	Limiter   ratelimit.Config   `json:"limiter"`
	Challenge challenge.Config   `json:"challenge"`
	Risk      riskprofile.Config `json:"risk"`
}

// DefaultConfig returns the defaults of every component.
func DefaultConfig() Config {
	return Config{
		Limiter:   ratelimit.DefaultConfig(),
		Challenge: challenge.DefaultConfig(),
		Risk:      riskprofile.DefaultConfig(),
	}
}

// Engine owns one Limiter, one challenge Manager and one risk Assessor. The
// components share no state; the Engine only passes values between them.
type Engine struct {
	limiter    *ratelimit.Limiter
	challenges *challenge.Manager
	risk       *riskprofile.Assessor
}

type options struct {
	now      func() time.Time
	rng      challenge.Rand
	security *logging.SecurityLogger
	registry riskprofile.Registry
	vpn      riskprofile.VPNChecker
}

// Option configures an Engine.
type Option func(*options)

// WithClock replaces the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRand replaces the challenge random source.
func WithRand(rng challenge.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithSecurityLogger replaces the security event logger of every component.
func WithSecurityLogger(s *logging.SecurityLogger) Option {
	return func(o *options) { o.security = s }
}

// WithRegistry replaces the device registry.
func WithRegistry(r riskprofile.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithVPNChecker enables the source-IP VPN trigger of the risk assessor.
func WithVPNChecker(v riskprofile.VPNChecker) Option {
	return func(o *options) { o.vpn = v }
}

// New builds an Engine. Any invalid component configuration fails.
func New(cfg Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}

	limiter, err := ratelimit.New(cfg.Limiter,
		ratelimit.WithClock(o.now),
		ratelimit.WithSecurityLogger(o.security),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	challengeOpts := []challenge.Option{
		challenge.WithClock(o.now),
		challenge.WithSecurityLogger(o.security),
	}
	if o.rng != nil {
		challengeOpts = append(challengeOpts, challenge.WithRand(o.rng))
	}
	challenges, err := challenge.NewManager(cfg.Challenge, challengeOpts...)
	if err != nil {
		return nil, fmt.Errorf("challenge manager: %w", err)
	}

	riskOpts := []riskprofile.Option{
		riskprofile.WithClock(o.now),
		riskprofile.WithSecurityLogger(o.security),
		riskprofile.WithRegistry(o.registry),
	}
	if o.vpn != nil {
		riskOpts = append(riskOpts, riskprofile.WithVPNChecker(o.vpn))
	}
	risk, err := riskprofile.New(cfg.Risk, riskOpts...)
	if err != nil {
		return nil, fmt.Errorf("risk assessor: %w", err)
	}

	return &Engine{
		limiter:    limiter,
		challenges: challenges,
		risk:       risk,
	}, nil
}

// Limiter returns the rate limiter.
func (e *Engine) Limiter() *ratelimit.Limiter { return e.limiter }

// Challenges returns the challenge manager.
func (e *Engine) Challenges() *challenge.Manager { return e.challenges }

// Risk returns the risk assessor.
func (e *Engine) Risk() *riskprofile.Assessor { return e.risk }

// IsAllowed reports whether identifier may attempt the guarded action.
func (e *Engine) IsAllowed(identifier, sourceIP string) ratelimit.Decision {
	return e.limiter.IsAllowed(identifier, sourceIP)
}

// RecordAttempt records the outcome of the guarded action.
func (e *Engine) RecordAttempt(identifier string, success bool, sourceIP string) {
	e.limiter.RecordAttempt(identifier, success, sourceIP)
}

// Reset clears identifier's attempt history and block.
func (e *Engine) Reset(identifier string) {
	e.limiter.Reset(identifier)
}

// SecurityStatus summarizes identifier's limiter state.
func (e *Engine) SecurityStatus(identifier string) ratelimit.Status {
	return e.limiter.SecurityStatus(identifier)
}

// GenerateChallenge issues a challenge.
func (e *Engine) GenerateChallenge(difficulty challenge.Difficulty) challenge.Challenge {
	return e.challenges.Generate(difficulty)
}

// VerifyChallenge checks an answer.
func (e *Engine) VerifyChallenge(id, answer string, clientStart time.Time) challenge.Result {
	return e.challenges.Verify(id, answer, clientStart)
}

// BuildFingerprint derives a device fingerprint.
func (e *Engine) BuildFingerprint(signals riskprofile.Signals) riskprofile.Fingerprint {
	return e.risk.BuildFingerprint(signals)
}

// AssessRisk scores a fingerprint.
func (e *Engine) AssessRisk(ctx context.Context, fp riskprofile.Fingerprint, subject riskprofile.Subject) riskprofile.Assessment {
	return e.risk.Assess(ctx, fp, subject)
}

// RegisterTrusted marks fp as a trusted device of owner.
func (e *Engine) RegisterTrusted(ctx context.Context, fp riskprofile.Fingerprint, owner string) error {
	return e.risk.RegisterTrusted(ctx, fp, owner)
}

// FlagSuspicious adds fp to the suspicious set.
func (e *Engine) FlagSuspicious(ctx context.Context, fp riskprofile.Fingerprint, reason string) error {
	return e.risk.FlagSuspicious(ctx, fp, reason)
}

// BlockedIPs lists blocked source IPs.
func (e *Engine) BlockedIPs() []ratelimit.BlockedIP {
	return e.limiter.BlockedIPs()
}

// UnblockIP lifts a source IP block.
func (e *Engine) UnblockIP(ip string) bool {
	return e.limiter.UnblockIP(ip)
}

// Close releases the device registry.
func (e *Engine) Close() error {
	return e.risk.Close()
}
