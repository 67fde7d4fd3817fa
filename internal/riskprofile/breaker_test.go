// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

var errBackend = errors.New("backend unavailable")

// failingRegistry fails every call while down is set.
type failingRegistry struct {
	*MemoryRegistry
	down  atomic.Bool
	calls atomic.Int32
}

func (f *failingRegistry) Device(ctx context.Context, id string) (*Device, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return nil, errBackend
	}
	return f.MemoryRegistry.Device(ctx, id)
}

func (f *failingRegistry) Flagged(ctx context.Context, id string) (bool, error) {
	f.calls.Add(1)
	if f.down.Load() {
		return false, errBackend
	}
	return f.MemoryRegistry.Flagged(ctx, id)
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
}

func TestBreakerRegistry_NotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	b := NewBreakerRegistry(NewMemoryRegistry(nil), testBreakerConfig())
	for i := 0; i < 10; i++ {
		if _, err := b.Device(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Device() error = %v, want ErrNotFound", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreakerRegistry_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	inner := &failingRegistry{MemoryRegistry: NewMemoryRegistry(nil)}
	inner.down.Store(true)
	b := NewBreakerRegistry(inner, testBreakerConfig())

	for i := 0; i < 3; i++ {
		if _, err := b.Device(context.Background(), "x"); !errors.Is(err, errBackend) {
			t.Fatalf("call %d error = %v, want errBackend", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	before := inner.calls.Load()
	if _, err := b.Device(context.Background(), "x"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error = %v, want ErrOpenState", err)
	}
	if inner.calls.Load() != before {
		t.Error("open breaker reached the backend")
	}
}

func TestAssess_FailsOpenWhenRegistryDown(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	inner := &failingRegistry{MemoryRegistry: NewMemoryRegistry(clock.Now)}
	a, _ := newTestAssessor(t, WithRegistry(NewBreakerRegistry(inner, testBreakerConfig())))
	ctx := context.Background()

	fp := a.BuildFingerprint(desktop())
	if err := a.FlagSuspicious(ctx, fp, "known bad"); err != nil {
		t.Fatal(err)
	}
	inner.down.Store(true)

	// Enough calls to trip the breaker, then some against the open circuit.
	for i := 0; i < 4; i++ {
		got := a.Assess(ctx, fp, Subject{})
		if !got.Has(FactorUnknownDevice) {
			t.Errorf("call %d: factors = %v, want unknown_device", i, got.Factors)
		}
		if got.Has(FactorFlaggedDevice) {
			t.Errorf("call %d: flagged_device must fail open", i)
		}
	}
}

func TestAssessor_RegistryState(t *testing.T) {
	t.Parallel()

	guarded, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got := guarded.RegistryState(); got != "closed" {
		t.Errorf("RegistryState() = %q, want closed", got)
	}

	bare, err := New(DefaultConfig(), WithRegistry(NewMemoryRegistry(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if got := bare.RegistryState(); got != "unguarded" {
		t.Errorf("RegistryState() = %q, want unguarded", got)
	}
}
