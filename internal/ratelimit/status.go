// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package ratelimit

import "time"

// Level is an identifier risk level.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Status is the security summary returned by SecurityStatus.
type Status struct {
	IsBlocked         bool      `json:"is_blocked"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	NextResetAt       time.Time `json:"next_reset_at"`
	RiskLevel         Level     `json:"risk_level"`
	RequiresCaptcha   bool      `json:"requires_captcha"`
}

// SecurityStatus summarizes identifier's state without modifying it.
func (l *Limiter) SecurityStatus(identifier string) Status {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	status := Status{
		AttemptsRemaining: l.cfg.MaxAttempts,
		NextResetAt:       now,
	}

	if rec, ok := l.records[identifier]; ok {
		switch {
		case rec.activeBlock(now):
			status.IsBlocked = true
			status.AttemptsRemaining = 0
			status.NextResetAt = rec.BlockExpiresAt
		case rec.Blocked, now.Sub(rec.WindowStart) > l.cfg.Window:
			// Served block or elapsed window: the next call starts fresh.
		default:
			status.AttemptsRemaining = max(0, l.cfg.MaxAttempts-rec.Count)
			status.NextResetAt = rec.WindowStart.Add(l.cfg.Window)
		}
	}

	status.RiskLevel = riskLevel(l.metrics[identifier], now)
	status.RequiresCaptcha = status.RiskLevel == LevelHigh || status.AttemptsRemaining <= 2
	return status
}

// riskLevel derives the identifier risk level from its metrics.
func riskLevel(m *SecurityMetrics, now time.Time) Level {
	if m == nil {
		return LevelLow
	}
	ratio := m.failureRatio()
	switch {
	case m.SuspiciousActivityCount > 2 || ratio > 0.7:
		return LevelHigh
	case m.SuspiciousActivityCount > 0 || ratio > 0.5 || now.Sub(m.LastActivityAt) < recentActivity:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Stats counts the entries the limiter is tracking.
type Stats struct {
	Records    int `json:"records"`
	Metrics    int `json:"metrics"`
	BlockedIPs int `json:"blocked_ips"`
	TrackedIPs int `json:"tracked_ips"`

	// FanoutIPs is the number of source IPs with a live fan-out window.
	FanoutIPs int `json:"fanout_ips"`
}

// Stats returns the current tracked-entry counts.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statsLocked()
}

func (l *Limiter) statsLocked() Stats {
	s := Stats{
		Records:    len(l.records),
		Metrics:    len(l.metrics),
		TrackedIPs: len(l.ips),
		FanoutIPs:  l.fanout.Len(),
	}
	for _, st := range l.ips {
		if st.blocked {
			s.BlockedIPs++
		}
	}
	return s
}
