// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
)

// BreakerRegistry wraps a Registry with a circuit breaker. ErrNotFound counts
// as a success; any other error counts toward tripping the breaker. While the
// breaker is open calls fail immediately with gobreaker.ErrOpenState.
//
// The breaker measures its interval and timeout in real time.
type BreakerRegistry struct {
	inner Registry
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerRegistry wraps inner.
func NewBreakerRegistry(inner Registry, cfg BreakerConfig) *BreakerRegistry {
	metrics.SetRegistryBreakerState(0)

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "device-registry",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening device registry circuit")
			}
			return trip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetRegistryBreakerState(stateToInt(to))
		},
	})

	return &BreakerRegistry{inner: inner, cb: cb}
}

// State returns the breaker state.
func (b *BreakerRegistry) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerRegistry) execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Device implements Registry.
func (b *BreakerRegistry) Device(ctx context.Context, id string) (*Device, error) {
	return castResult[*Device](b.execute(func() (any, error) {
		return b.inner.Device(ctx, id)
	}))
}

// OwnerDevice implements Registry.
func (b *BreakerRegistry) OwnerDevice(ctx context.Context, owner string) (*Device, error) {
	return castResult[*Device](b.execute(func() (any, error) {
		return b.inner.OwnerDevice(ctx, owner)
	}))
}

// PutDevice implements Registry.
func (b *BreakerRegistry) PutDevice(ctx context.Context, d Device) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.PutDevice(ctx, d)
	})
	return err
}

// Flagged implements Registry.
func (b *BreakerRegistry) Flagged(ctx context.Context, id string) (bool, error) {
	return castResult[bool](b.execute(func() (any, error) {
		return b.inner.Flagged(ctx, id)
	}))
}

// PutFlag implements Registry.
func (b *BreakerRegistry) PutFlag(ctx context.Context, f Flag) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.PutFlag(ctx, f)
	})
	return err
}

// Cleanup implements Registry. It bypasses the breaker.
func (b *BreakerRegistry) Cleanup(ctx context.Context, now time.Time) (int, error) {
	return b.inner.Cleanup(ctx, now)
}

// Close implements Registry.
func (b *BreakerRegistry) Close() error {
	return b.inner.Close()
}

func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
