// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/tollgate/internal/cache"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
)

// Level is the risk classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Factor names a triggered risk rule.
type Factor string

const (
	FactorUnknownDevice   Factor = "unknown_device"
	FactorFlaggedDevice   Factor = "flagged_device"
	FactorAutomation      Factor = "automation_detected"
	FactorVPNProxy        Factor = "vpn_proxy_detected"
	FactorInconsistencies Factor = "device_inconsistencies"
)

// Points returns the weight of f.
func (f Factor) Points() int {
	switch f {
	case FactorUnknownDevice:
		return 30
	case FactorFlaggedDevice:
		return 50
	case FactorAutomation:
		return 40
	case FactorVPNProxy:
		return 25
	case FactorInconsistencies:
		return 35
	default:
		return 0
	}
}

const (
	highThreshold   = 70
	mediumThreshold = 40
	minCanvasLength = 16
)

// Assessment is a computed risk classification. It is never stored.
type Assessment struct {
	Level                Level    `json:"level"`
	Factors              []Factor `json:"factors"`
	Score                int      `json:"score"`
	RequiresVerification bool     `json:"requires_verification"`
}

// Has reports whether f fired.
func (a Assessment) Has(f Factor) bool {
	for _, got := range a.Factors {
		if got == f {
			return true
		}
	}
	return false
}

// Subject identifies who presented a fingerprint. Both fields are optional.
type Subject struct {
	// Identifier is the account or action key. It selects the last-known
	// device used for the inconsistency check.
	Identifier string

	// SourceIP is checked against the VPN lookup when one is configured.
	SourceIP string
}

// VPNChecker reports whether an address belongs to a VPN provider.
// *vpn.Service satisfies it.
type VPNChecker interface {
	IsVPN(ip string) bool
}

// Assessor builds fingerprints and scores them against the device registry.
type Assessor struct {
	cfg        Config
	now        func() time.Time
	registry   Registry
	classifier *cache.AgentClassifier
	vpn        VPNChecker
	security   *logging.SecurityLogger

	suspectZones map[string]struct{}
	headless     map[string]struct{}

	// failureLog throttles the fail-open warning while the registry is down.
	failureLog rate.Sometimes
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Assessor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRegistry replaces the registry selected by Config.Backend. The registry
// is used as given; wrap it in a BreakerRegistry for breaker protection.
func WithRegistry(r Registry) Option {
	return func(a *Assessor) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithVPNChecker enables the source-IP VPN trigger.
func WithVPNChecker(v VPNChecker) Option {
	return func(a *Assessor) {
		a.vpn = v
	}
}

// WithSecurityLogger replaces the security event logger.
func WithSecurityLogger(s *logging.SecurityLogger) Option {
	return func(a *Assessor) {
		if s != nil {
			a.security = s
		}
	}
}

// New creates an Assessor. Without WithRegistry it opens the backend named by
// cfg.Backend behind a circuit breaker.
func New(cfg Config, opts ...Option) (*Assessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Assessor{
		cfg:          cfg,
		now:          time.Now,
		classifier:   cache.NewAgentClassifier(nilIfEmpty(cfg.AutomationAgents), nilIfEmpty(cfg.VPNAgents)),
		security:     logging.NewSecurityLogger(),
		suspectZones: lowerSet(cfg.SuspectTimezones),
		headless:     lowerSet(cfg.HeadlessResolutions),
		failureLog:   rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		var inner Registry
		switch cfg.Backend {
		case BackendBadger:
			r, err := OpenBadgerRegistry(cfg.BadgerDir, a.now)
			if err != nil {
				return nil, err
			}
			inner = r
		default:
			inner = NewMemoryRegistry(a.now)
		}
		a.registry = NewBreakerRegistry(inner, cfg.Breaker)
	}

	return a, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

// BuildFingerprint derives an immutable Fingerprint from signals.
func (a *Assessor) BuildFingerprint(signals Signals) Fingerprint {
	return newFingerprint(signals, a.now())
}

// Assess scores fp. Every factor is evaluated; none short-circuits another.
// Registry failures fail open: the device is treated as unknown and not
// flagged.
func (a *Assessor) Assess(ctx context.Context, fp Fingerprint, subject Subject) Assessment {
	now := a.now()
	var factors []Factor

	if _, err := a.registry.Device(ctx, fp.ID); err != nil {
		a.registryFailure(ctx, "device", err)
		factors = append(factors, FactorUnknownDevice)
	}

	flagged, err := a.registry.Flagged(ctx, fp.ID)
	if err != nil {
		a.registryFailure(ctx, "flagged", err)
	} else if flagged {
		factors = append(factors, FactorFlaggedDevice)
	}

	class := a.classifier.Classify(fp.UserAgent)
	if a.automationSignals(fp, class.Automation) >= 2 {
		factors = append(factors, FactorAutomation)
	}
	if a.vpnDetected(fp, class.VPN, subject.SourceIP) {
		factors = append(factors, FactorVPNProxy)
	}

	if subject.Identifier != "" {
		last, err := a.registry.OwnerDevice(ctx, subject.Identifier)
		if err != nil {
			a.registryFailure(ctx, "owner_device", err)
		} else if now.Sub(last.RegisteredAt) > a.cfg.InconsistencyGap && mismatches(fp, last.Fingerprint) >= 2 {
			factors = append(factors, FactorInconsistencies)
		}
	}

	assessment := classify(factors)

	names := make([]string, len(factors))
	for i, f := range factors {
		names[i] = string(f)
	}
	metrics.RecordRiskAssessment(string(assessment.Level), names)

	if assessment.Level == LevelHigh {
		logging.Ctx(ctx).Info().
			Str("fingerprint_id", fp.ID).
			Int("score", assessment.Score).
			Strs("factors", names).
			Msg("High risk fingerprint")
	}

	return assessment
}

// registryFailure logs err unless it is ErrNotFound.
func (a *Assessor) registryFailure(ctx context.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	metrics.RecordRegistryError(op)
	a.failureLog.Do(func() {
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Msg("Device registry unavailable, failing open")
	})
}

// classify sums factor points into an Assessment.
func classify(factors []Factor) Assessment {
	a := Assessment{Factors: factors, Level: LevelLow}
	if a.Factors == nil {
		a.Factors = []Factor{}
	}
	for _, f := range factors {
		a.Score += f.Points()
	}

	switch {
	case a.Score >= highThreshold:
		a.Level = LevelHigh
	case a.Score >= mediumThreshold:
		a.Level = LevelMedium
	}
	a.RequiresVerification = a.Level == LevelHigh || a.Has(FactorUnknownDevice)
	return a
}

// automationSignals counts automation indicators.
func (a *Assessor) automationSignals(fp Fingerprint, agentMatch bool) int {
	n := 0
	if len(fp.CanvasHash) < minCanvasLength {
		n++
	}
	if fp.WebGLHash == "" {
		n++
	}
	if len(fp.Plugins) == 0 {
		n++
	}
	if agentMatch {
		n++
	}
	if _, ok := a.headless[resolution(fp.Screen)]; ok {
		n++
	}
	return n
}

func (a *Assessor) vpnDetected(fp Fingerprint, agentMatch bool, sourceIP string) bool {
	if agentMatch {
		return true
	}
	if _, ok := a.suspectZones[strings.ToLower(strings.TrimSpace(fp.Timezone))]; ok {
		return true
	}
	return a.vpn != nil && sourceIP != "" && a.vpn.IsVPN(sourceIP)
}

// mismatches counts differing platform, language, timezone and screen.
func mismatches(current, last Fingerprint) int {
	n := 0
	if current.Platform != last.Platform {
		n++
	}
	if current.Language != last.Language {
		n++
	}
	if current.Timezone != last.Timezone {
		n++
	}
	if current.Screen != last.Screen {
		n++
	}
	return n
}

// RegisterTrusted adds fp to the known-device registry and records it as
// owner's last-known device.
func (a *Assessor) RegisterTrusted(ctx context.Context, fp Fingerprint, owner string) error {
	now := a.now()
	err := a.registry.PutDevice(ctx, Device{
		Fingerprint:  fp,
		Owner:        owner,
		RegisteredAt: now,
		ExpiresAt:    now.Add(a.cfg.DeviceRetention),
	})
	if err != nil {
		metrics.RecordRegistryError("put_device")
		return err
	}
	a.security.LogDeviceTrusted(fp.ID, owner)
	return nil
}

// FlagSuspicious adds fp to the suspicious set.
func (a *Assessor) FlagSuspicious(ctx context.Context, fp Fingerprint, reason string) error {
	now := a.now()
	err := a.registry.PutFlag(ctx, Flag{
		DeviceID:  fp.ID,
		Reason:    reason,
		FlaggedAt: now,
		ExpiresAt: now.Add(a.cfg.DeviceRetention),
	})
	if err != nil {
		metrics.RecordRegistryError("put_flag")
		return err
	}
	a.security.LogDeviceFlagged(fp.ID, reason)
	return nil
}

// Name implements the sweeper interface.
func (a *Assessor) Name() string {
	return "devices"
}

// SweepOnce removes expired registry entries.
func (a *Assessor) SweepOnce(ctx context.Context) error {
	start := time.Now()
	removed, err := a.registry.Cleanup(ctx, a.now())
	if err != nil {
		return err
	}
	metrics.RecordSweep(a.Name(), time.Since(start), map[string]int{"devices": removed})
	if removed > 0 {
		log := logging.WithComponent(a.Name())
		log.Debug().Int("removed", removed).Msg("Device registry sweep completed")
	}
	return nil
}

// RegistryState reports the registry circuit breaker state ("closed",
// "half-open", "open"), or "unguarded" when the registry has no breaker.
func (a *Assessor) RegistryState() string {
	if b, ok := a.registry.(*BreakerRegistry); ok {
		return b.State().String()
	}
	return "unguarded"
}

// Close releases the registry.
func (a *Assessor) Close() error {
	return a.registry.Close()
}
