// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tollgate/internal/logging"
)

// Sweeper removes expired state in one pass.
//
// Satisfied by *ratelimit.Limiter, *challenge.Manager and
// *riskprofile.Assessor.
type Sweeper interface {
	Name() string
	SweepOnce(ctx context.Context) error
}

// SweepService runs a Sweeper on a fixed interval as a supervised service.
//
// A failed pass is logged and the loop continues; only maxConsecutive
// failures in a row return an error, handing the restart decision to suture.
type SweepService struct {
	sweeper        Sweeper
	interval       time.Duration
	maxConsecutive int
	name           string
}

// NewSweepService creates a sweep loop. A non-positive interval falls back
// to one minute.
func NewSweepService(sweeper Sweeper, interval time.Duration) *SweepService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepService{
		sweeper:        sweeper,
		interval:       interval,
		maxConsecutive: 3,
		name:           "sweep-" + sweeper.Name(),
	}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweeper.SweepOnce(ctx); err != nil {
				failures++
				logging.Warn().Err(err).
					Str("sweeper", s.sweeper.Name()).
					Int("consecutive_failures", failures).
					Msg("Sweep failed")
				if failures >= s.maxConsecutive {
					return fmt.Errorf("%s: %d consecutive sweep failures: %w", s.name, failures, err)
				}
				continue
			}
			failures = 0
		}
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *SweepService) String() string {
	return s.name
}
