// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package ratelimit

import (
	"context"
	"time"

	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
)

// SweepResult counts what a sweep removed.
type SweepResult struct {
	Records    int `json:"records"`
	Metrics    int `json:"metrics"`
	IPBlocks   int `json:"ip_blocks"`
	IPs        int `json:"ips"`
	RapidKeys  int `json:"rapid_keys"`
	FanoutKeys int `json:"fanout_keys"`
}

// Total returns the number of removed entries.
func (r SweepResult) Total() int {
	return r.Records + r.Metrics + r.IPBlocks + r.IPs + r.RapidKeys + r.FanoutKeys
}

// Sweep removes idle state as of now:
//   - attempt records idle past 2 x Window, unless a block is still active;
//     records with breaches are kept for MetricsRetention after their last
//     block ended so a returning identifier resumes its ladder step
//   - security metrics idle past MetricsRetention
//   - expired IP blocks, and IP suspicion idle past MetricsRetention
//   - empty rapid-attempt and fan-out windows
//
// Each map is swept in its own short critical section.
func (l *Limiter) Sweep(now time.Time) SweepResult {
	var res SweepResult

	l.mu.Lock()
	for id, rec := range l.records {
		if rec.activeBlock(now) {
			continue
		}
		if now.Sub(rec.lastActivity()) > l.recordRetention(rec) {
			delete(l.records, id)
			res.Records++
		}
	}
	l.mu.Unlock()

	l.mu.Lock()
	for id, m := range l.metrics {
		if now.Sub(m.LastActivityAt) > l.cfg.MetricsRetention {
			delete(l.metrics, id)
			res.Metrics++
		}
	}
	l.mu.Unlock()

	var unblocked []string
	l.mu.Lock()
	for ip, st := range l.ips {
		if st.blocked && !st.blockUntil.IsZero() && !now.Before(st.blockUntil) {
			st.blocked = false
			st.suspicion = 0
			res.IPBlocks++
			unblocked = append(unblocked, ip)
		}
		if !st.blocked && now.Sub(st.lastSeen) > l.cfg.MetricsRetention {
			delete(l.ips, ip)
			res.IPs++
		}
	}
	l.mu.Unlock()

	res.RapidKeys = l.rapid.CleanupInactive(now)
	res.FanoutKeys = l.fanout.CleanupInactive(now)

	l.mu.Lock()
	stats := l.statsLocked()
	l.mu.Unlock()

	for _, ip := range unblocked {
		l.security.LogIPUnblocked(ip, "expired")
	}
	metrics.UpdateLimiterGauges(stats.Records, stats.Metrics, stats.BlockedIPs, stats.FanoutIPs)
	return res
}

// lastActivity is the latest of the last attempt, the window start and the
// end of the last block.
func (r *AttemptRecord) lastActivity() time.Time {
	last := r.LastAttempt
	if r.WindowStart.After(last) {
		last = r.WindowStart
	}
	if r.BlockExpiresAt.After(last) {
		last = r.BlockExpiresAt
	}
	return last
}

// recordRetention is how long rec may stay idle before it is swept.
func (l *Limiter) recordRetention(rec *AttemptRecord) time.Duration {
	idle := 2 * l.cfg.Window
	if rec.Breaches > 0 && l.cfg.MetricsRetention > idle {
		return l.cfg.MetricsRetention
	}
	return idle
}

// Name identifies the limiter sweep to the supervisor.
func (l *Limiter) Name() string {
	return "limiter"
}

// SweepOnce runs Sweep at the current time and records metrics. It satisfies
// the supervisor's Sweeper interface.
func (l *Limiter) SweepOnce(_ context.Context) error {
	start := time.Now()
	res := l.Sweep(l.now())

	metrics.RecordSweep(l.Name(), time.Since(start), map[string]int{
		"records":     res.Records,
		"metrics":     res.Metrics,
		"ip_blocks":   res.IPBlocks,
		"ips":         res.IPs,
		"rapid_keys":  res.RapidKeys,
		"fanout_keys": res.FanoutKeys,
	})

	if res.Total() > 0 {
		log := logging.WithComponent(l.Name())
		log.Debug().
			Int("records", res.Records).
			Int("metrics", res.Metrics).
			Int("ip_blocks", res.IPBlocks).
			Msg("Rate limiter sweep removed idle state")
	}
	return nil
}
