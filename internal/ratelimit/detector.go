// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package ratelimit

import (
	"sort"
	"time"

	"github.com/tomtom215/tollgate/internal/metrics"
)

// Rule names a suspicious-activity rule.
type Rule string

const (
	RuleRapidAttempts    Rule = "rapid_attempts"
	RuleHighFailureRate  Rule = "high_failure_rate"
	RuleIdentifierFanout Rule = "identifier_fanout"
)

// detectLocked evaluates every rule for a failed attempt. All firing rules are
// collected; each one raises the identifier's and the source IP's suspicion.
// Returns nil when nothing fired. Must be called with mu held.
func (l *Limiter) detectLocked(identifier, sourceIP string, m *SecurityMetrics, now time.Time) *SuspiciousEvent {
	var rules []Rule

	if l.rapid.Count(identifier, now) > rapidThreshold {
		rules = append(rules, RuleRapidAttempts)
	}
	if m.FailedAttempts > failureMinimum && m.failureRatio() > failureRatioLimit {
		rules = append(rules, RuleHighFailureRate)
	}
	if sourceIP != "" && l.fanout.CountUnique(sourceIP, now) > fanoutThreshold {
		rules = append(rules, RuleIdentifierFanout)
	}

	if len(rules) == 0 {
		return nil
	}

	m.SuspiciousActivityCount += len(rules)
	ev := &SuspiciousEvent{
		Identifier: identifier,
		SourceIP:   sourceIP,
		Rules:      rules,
	}

	if sourceIP == "" {
		return ev
	}

	st := l.ipStateLocked(sourceIP)
	st.suspicion += len(rules)
	st.lastSeen = now
	ev.IPSuspicion = st.suspicion
	if st.suspicion > ipSuspicionLimit && !st.blocked {
		st.blocked = true
		st.blockedAt = now
		st.blockUntil = time.Time{}
		if l.cfg.IPBlockDuration > 0 {
			st.blockUntil = now.Add(l.cfg.IPBlockDuration)
		}
		ev.IPBlocked = true
	}
	return ev
}

func (l *Limiter) reportSuspicious(ev *SuspiciousEvent, fn func(SuspiciousEvent)) {
	names := make([]string, len(ev.Rules))
	for i, r := range ev.Rules {
		names[i] = string(r)
		metrics.RecordSuspicious(string(r))
	}
	l.security.LogSuspiciousActivity(ev.Identifier, ev.SourceIP, names)

	if ev.IPBlocked {
		metrics.RecordIPBlock()
		l.security.LogIPBlocked(ev.SourceIP, ev.IPSuspicion)
	}
	if fn != nil {
		go fn(*ev)
	}
}

// BlockedIP describes an entry of the blocked-IP set.
type BlockedIP struct {
	IP        string    `json:"ip"`
	BlockedAt time.Time `json:"blocked_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero = until unblocked
	Suspicion int       `json:"suspicion"`

	// Identifiers are the distinct identifiers tried from the IP within the
	// fan-out window.
	Identifiers []string `json:"identifiers,omitempty"`
}

// BlockedIPs returns the currently blocked source IPs.
func (l *Limiter) BlockedIPs() []BlockedIP {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []BlockedIP
	for ip, st := range l.ips {
		if !st.blocked {
			continue
		}
		if !st.blockUntil.IsZero() && !now.Before(st.blockUntil) {
			continue
		}
		identifiers := l.fanout.GetUnique(ip, now)
		sort.Strings(identifiers)
		out = append(out, BlockedIP{
			IP:          ip,
			BlockedAt:   st.blockedAt,
			ExpiresAt:   st.blockUntil,
			Suspicion:   st.suspicion,
			Identifiers: identifiers,
		})
	}
	return out
}

// UnblockIP removes ip from the blocked set and clears its suspicion.
// Returns false when the IP was not blocked.
func (l *Limiter) UnblockIP(ip string) bool {
	l.mu.Lock()
	st, ok := l.ips[ip]
	if !ok || !st.blocked {
		l.mu.Unlock()
		return false
	}
	st.blocked = false
	st.suspicion = 0
	st.blockUntil = time.Time{}
	l.mu.Unlock()

	l.security.LogIPUnblocked(ip, "admin")
	return true
}
