// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/tomtom215/tollgate/internal/cache"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
)

// Reason explains a refused decision.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonBlockedByIP Reason = "BLOCKED_BY_IP"
	ReasonRateLimited Reason = "RATE_LIMITED"
)

// Decision is the result of IsAllowed.
type Decision struct {
	Allowed           bool   `json:"allowed"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Reason            Reason `json:"reason,omitempty"`
}

// AttemptRecord is the per-identifier window state.
type AttemptRecord struct {
	Count          int       `json:"count"`
	WindowStart    time.Time `json:"window_start"`
	LastAttempt    time.Time `json:"last_attempt"`
	Blocked        bool      `json:"blocked"`
	BlockExpiresAt time.Time `json:"block_expires_at,omitempty"`

	// Breaches counts threshold crossings since the record was created. It
	// survives window resets so the progressive ladder never steps down.
	Breaches int `json:"breaches"`
}

// activeBlock reports whether an unexpired block is in place.
func (r *AttemptRecord) activeBlock(now time.Time) bool {
	return r.Blocked && now.Before(r.BlockExpiresAt)
}

// SecurityMetrics is the per-identifier activity summary. It lives
// independently of the AttemptRecord.
type SecurityMetrics struct {
	TotalAttempts           int       `json:"total_attempts"`
	FailedAttempts          int       `json:"failed_attempts"`
	BlockedAttempts         int       `json:"blocked_attempts"`
	SuspiciousActivityCount int       `json:"suspicious_activity_count"`
	LastActivityAt          time.Time `json:"last_activity_at"`
}

// failureRatio returns failed/total, 0 when there were no attempts.
func (m *SecurityMetrics) failureRatio() float64 {
	if m.TotalAttempts == 0 {
		return 0
	}
	return float64(m.FailedAttempts) / float64(m.TotalAttempts)
}

// BlockEvent is passed to the OnBlock callback.
type BlockEvent struct {
	Identifier string
	SourceIP   string
	Duration   time.Duration
	ExpiresAt  time.Time
	Breaches   int
}

// SuspiciousEvent is passed to the OnSuspicious callback.
type SuspiciousEvent struct {
	Identifier string
	SourceIP   string
	Rules      []Rule

	// IPSuspicion is the source IP's suspicion count after this event.
	IPSuspicion int
	IPBlocked   bool
}

type ipState struct {
	suspicion  int
	lastSeen   time.Time
	blocked    bool
	blockedAt  time.Time
	blockUntil time.Time // zero when the block has no expiry
}

// Limiter is the sliding-window attempt limiter with progressive blocking and
// suspicious-activity detection. A single mutex guards all maps so that
// check, increment and block happen atomically per call.
type Limiter struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	records map[string]*AttemptRecord
	metrics map[string]*SecurityMetrics
	ips     map[string]*ipState

	rapid  *cache.SlidingWindowStore // identifier -> attempts in the last 30s
	fanout *cache.UniqueValueStore   // ip -> identifiers seen

	security *logging.SecurityLogger

	onBlock      func(BlockEvent)
	onSuspicious func(SuspiciousEvent)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSecurityLogger replaces the security event logger.
func WithSecurityLogger(s *logging.SecurityLogger) Option {
	return func(l *Limiter) {
		if s != nil {
			l.security = s
		}
	}
}

// New creates a limiter. It fails fast on invalid configuration.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ladder := make([]time.Duration, len(cfg.Ladder))
	copy(ladder, cfg.Ladder)
	cfg.Ladder = ladder

	l := &Limiter{
		cfg:      cfg,
		now:      time.Now,
		records:  make(map[string]*AttemptRecord),
		metrics:  make(map[string]*SecurityMetrics),
		ips:      make(map[string]*ipState),
		rapid:    cache.NewSlidingWindowStore(rapidWindow, 30, cfg.MaxTrackedKeys),
		fanout:   cache.NewUniqueValueStore(cfg.FanoutWindow, 24, cfg.MaxTrackedKeys),
		security: logging.NewSecurityLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns a copy of the configuration.
func (l *Limiter) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg := l.cfg
	cfg.Ladder = append([]time.Duration(nil), l.cfg.Ladder...)
	return cfg
}

// SetOnBlock sets a callback invoked when an identifier gets blocked.
func (l *Limiter) SetOnBlock(fn func(BlockEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onBlock = fn
}

// SetOnSuspicious sets a callback invoked when suspicious activity is detected.
func (l *Limiter) SetOnSuspicious(fn func(SuspiciousEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSuspicious = fn
}

// IsAllowed reports whether identifier may attempt an action now. A blocked
// source IP refuses before identifier state is consulted. When the attempt
// count has reached MaxAttempts without an active block, the block is applied
// here.
func (l *Limiter) IsAllowed(identifier, sourceIP string) Decision {
	now := l.now()

	l.mu.Lock()
	decision, blocked := l.isAllowedLocked(identifier, sourceIP, now)
	onBlock := l.onBlock
	l.mu.Unlock()

	metrics.RecordDecision(string(decision.Reason))
	if blocked != nil {
		l.reportBlock(blocked, onBlock)
	}
	return decision
}

func (l *Limiter) isAllowedLocked(identifier, sourceIP string, now time.Time) (Decision, *BlockEvent) {
	if sourceIP != "" {
		if retry, ok := l.ipBlockedLocked(sourceIP, now); ok {
			if m, exists := l.metrics[identifier]; exists {
				m.BlockedAttempts++
			}
			return Decision{Allowed: false, RetryAfterSeconds: retry, Reason: ReasonBlockedByIP}, nil
		}
	}

	rec := l.recordLocked(identifier, now)

	if rec.activeBlock(now) {
		l.metricsLocked(identifier, now).BlockedAttempts++
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfter(rec.BlockExpiresAt.Sub(now)),
			Reason:            ReasonRateLimited,
		}, nil
	}

	if rec.Count >= l.cfg.MaxAttempts {
		ev := l.applyBlockLocked(identifier, sourceIP, rec, now)
		l.metricsLocked(identifier, now).BlockedAttempts++
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfter(ev.Duration),
			Reason:            ReasonRateLimited,
		}, &ev
	}

	return Decision{Allowed: true}, nil
}

// RecordAttempt records the outcome of an attempt. Success deletes the
// identifier's AttemptRecord. Failure feeds the suspicious-activity detector;
// the block is applied as soon as the count reaches MaxAttempts.
func (l *Limiter) RecordAttempt(identifier string, success bool, sourceIP string) {
	now := l.now()

	l.mu.Lock()
	rec := l.recordLocked(identifier, now)
	rec.Count++
	rec.LastAttempt = now

	m := l.metricsLocked(identifier, now)
	m.TotalAttempts++
	m.LastActivityAt = now

	l.rapid.Increment(identifier, now)
	if sourceIP != "" {
		l.fanout.Add(sourceIP, identifier, now)
		l.ipStateLocked(sourceIP).lastSeen = now
	}

	if success {
		delete(l.records, identifier)
		l.mu.Unlock()
		metrics.RecordAttempt(true)
		return
	}

	m.FailedAttempts++

	var blocked *BlockEvent
	if rec.Count >= l.cfg.MaxAttempts && !rec.activeBlock(now) {
		ev := l.applyBlockLocked(identifier, sourceIP, rec, now)
		blocked = &ev
	}

	suspicious := l.detectLocked(identifier, sourceIP, m, now)

	onBlock := l.onBlock
	onSuspicious := l.onSuspicious
	l.mu.Unlock()

	metrics.RecordAttempt(false)
	if blocked != nil {
		l.reportBlock(blocked, onBlock)
	}
	if suspicious != nil {
		l.reportSuspicious(suspicious, onSuspicious)
	}
}

// Reset clears all state for identifier (admin action).
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	delete(l.records, identifier)
	delete(l.metrics, identifier)
	l.mu.Unlock()

	l.rapid.Remove(identifier)
	logging.Info().Str("identifier", logging.SanitizeIdentifier(identifier)).Msg("Rate limit state reset")
}

// recordLocked returns the record for identifier, creating it lazily and
// applying window and block-expiry resets. Must be called with mu held.
func (l *Limiter) recordLocked(identifier string, now time.Time) *AttemptRecord {
	rec, ok := l.records[identifier]
	if !ok {
		rec = &AttemptRecord{WindowStart: now}
		l.records[identifier] = rec
		return rec
	}

	if rec.activeBlock(now) {
		return rec
	}

	if rec.Blocked {
		// Block served: start a fresh cycle, keep the breach history.
		rec.Blocked = false
		rec.BlockExpiresAt = time.Time{}
		rec.Count = 0
		rec.WindowStart = now
		return rec
	}

	if now.Sub(rec.WindowStart) > l.cfg.Window {
		rec.Count = 0
		rec.WindowStart = now
	}
	return rec
}

// metricsLocked returns the SecurityMetrics for identifier, creating it lazily.
func (l *Limiter) metricsLocked(identifier string, now time.Time) *SecurityMetrics {
	m, ok := l.metrics[identifier]
	if !ok {
		m = &SecurityMetrics{LastActivityAt: now}
		l.metrics[identifier] = m
	}
	return m
}

func (l *Limiter) ipStateLocked(ip string) *ipState {
	st, ok := l.ips[ip]
	if !ok {
		st = &ipState{}
		l.ips[ip] = st
	}
	return st
}

// ipBlockedLocked reports whether ip is blocked and the retry-after seconds.
// Expired IP blocks are released lazily.
func (l *Limiter) ipBlockedLocked(ip string, now time.Time) (int, bool) {
	st, ok := l.ips[ip]
	if !ok || !st.blocked {
		return 0, false
	}
	if st.blockUntil.IsZero() {
		return 0, true
	}
	if !now.Before(st.blockUntil) {
		st.blocked = false
		st.suspicion = 0
		return 0, false
	}
	return retryAfter(st.blockUntil.Sub(now)), true
}

// applyBlockLocked blocks rec and returns the event to report.
func (l *Limiter) applyBlockLocked(identifier, sourceIP string, rec *AttemptRecord, now time.Time) BlockEvent {
	rec.Breaches++
	d := l.cfg.blockDuration(rec.Breaches)
	rec.Blocked = true
	rec.BlockExpiresAt = now.Add(d)

	return BlockEvent{
		Identifier: identifier,
		SourceIP:   sourceIP,
		Duration:   d,
		ExpiresAt:  rec.BlockExpiresAt,
		Breaches:   rec.Breaches,
	}
}

func (l *Limiter) reportBlock(ev *BlockEvent, fn func(BlockEvent)) {
	metrics.RecordBlock(ev.Duration)
	l.security.LogAttemptBlocked(ev.Identifier, ev.SourceIP, ev.Duration, ev.Breaches)
	if fn != nil {
		go fn(*ev)
	}
}

// retryAfter converts a remaining duration into whole seconds, rounding up.
func retryAfter(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
