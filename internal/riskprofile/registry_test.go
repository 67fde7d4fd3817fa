// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type registryFactory func(t *testing.T, now func() time.Time) Registry

func registryBackends() map[string]registryFactory {
	return map[string]registryFactory{
		"memory": func(t *testing.T, now func() time.Time) Registry {
			return NewMemoryRegistry(now)
		},
		"badger": func(t *testing.T, now func() time.Time) Registry {
			t.Helper()
			r, err := OpenBadgerRegistry("", now)
			if err != nil {
				t.Fatalf("OpenBadgerRegistry() error = %v", err)
			}
			return r
		},
	}
}

func testDevice(clock *fakeClock, owner string, s Signals) Device {
	now := clock.Now()
	return Device{
		Fingerprint:  newFingerprint(s, now),
		Owner:        owner,
		RegisteredAt: now,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func TestRegistry_Devices(t *testing.T) {
	for name, factory := range registryBackends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			reg := factory(t, clock.Now)
			defer reg.Close()
			ctx := context.Background()

			d := testDevice(clock, "alice", desktop())
			if _, err := reg.Device(ctx, d.Fingerprint.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Device() on empty registry error = %v, want ErrNotFound", err)
			}

			if err := reg.PutDevice(ctx, d); err != nil {
				t.Fatalf("PutDevice() error = %v", err)
			}

			got, err := reg.Device(ctx, d.Fingerprint.ID)
			if err != nil {
				t.Fatalf("Device() error = %v", err)
			}
			if got.Owner != "alice" || got.Fingerprint.Platform != "Linux x86_64" || len(got.Fingerprint.Fonts) != 2 {
				t.Errorf("unexpected device %+v", got)
			}

			owned, err := reg.OwnerDevice(ctx, "alice")
			if err != nil || owned.Fingerprint.ID != d.Fingerprint.ID {
				t.Errorf("OwnerDevice() = %+v, %v", owned, err)
			}
			if _, err := reg.OwnerDevice(ctx, "bob"); !errors.Is(err, ErrNotFound) {
				t.Errorf("OwnerDevice(bob) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRegistry_OwnerTracksLatestDevice(t *testing.T) {
	for name, factory := range registryBackends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			reg := factory(t, clock.Now)
			defer reg.Close()
			ctx := context.Background()

			first := testDevice(clock, "alice", desktop())
			laptop := desktop()
			laptop.Screen = "1440x900"
			second := testDevice(clock, "alice", laptop)

			for _, d := range []Device{first, second} {
				if err := reg.PutDevice(ctx, d); err != nil {
					t.Fatal(err)
				}
			}

			owned, err := reg.OwnerDevice(ctx, "alice")
			if err != nil || owned.Fingerprint.ID != second.Fingerprint.ID {
				t.Errorf("OwnerDevice() = %+v, %v; want latest device", owned, err)
			}
			if _, err := reg.Device(ctx, first.Fingerprint.ID); err != nil {
				t.Errorf("first device lost: %v", err)
			}
		})
	}
}

func TestRegistry_Flags(t *testing.T) {
	for name, factory := range registryBackends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			reg := factory(t, clock.Now)
			defer reg.Close()
			ctx := context.Background()

			flagged, err := reg.Flagged(ctx, "dev-1")
			if err != nil || flagged {
				t.Fatalf("Flagged() = %v, %v; want false, nil", flagged, err)
			}

			err = reg.PutFlag(ctx, Flag{
				DeviceID:  "dev-1",
				Reason:    "scripted",
				FlaggedAt: clock.Now(),
				ExpiresAt: clock.Now().Add(time.Hour),
			})
			if err != nil {
				t.Fatalf("PutFlag() error = %v", err)
			}

			if flagged, err := reg.Flagged(ctx, "dev-1"); err != nil || !flagged {
				t.Errorf("Flagged() = %v, %v; want true, nil", flagged, err)
			}
		})
	}
}

func TestRegistry_ExpiryAndCleanup(t *testing.T) {
	for name, factory := range registryBackends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			reg := factory(t, clock.Now)
			defer reg.Close()
			ctx := context.Background()

			d := testDevice(clock, "alice", desktop())
			if err := reg.PutDevice(ctx, d); err != nil {
				t.Fatal(err)
			}
			if err := reg.PutFlag(ctx, Flag{DeviceID: "dev-1", FlaggedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}); err != nil {
				t.Fatal(err)
			}

			clock.Advance(30 * time.Minute)
			if n, err := reg.Cleanup(ctx, clock.Now()); err != nil || n != 0 {
				t.Errorf("Cleanup() before expiry = %d, %v; want 0", n, err)
			}

			clock.Advance(time.Hour)
			if _, err := reg.Device(ctx, d.Fingerprint.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("expired device error = %v, want ErrNotFound", err)
			}
			if flagged, _ := reg.Flagged(ctx, "dev-1"); flagged {
				t.Error("expired flag still reported")
			}

			n, err := reg.Cleanup(ctx, clock.Now())
			if err != nil {
				t.Fatalf("Cleanup() error = %v", err)
			}
			if n != 2 {
				t.Errorf("Cleanup() removed %d, want 2", n)
			}
		})
	}
}

func TestRegistry_Closed(t *testing.T) {
	for name, factory := range registryBackends() {
		t.Run(name, func(t *testing.T) {
			reg := factory(t, nil)
			if err := reg.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if _, err := reg.Device(context.Background(), "x"); !errors.Is(err, ErrRegistryClosed) {
				t.Errorf("Device() after Close error = %v, want ErrRegistryClosed", err)
			}
		})
	}
}

func TestBadgerRegistry_SharedDB(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	defer db.Close()

	clock := newFakeClock()
	reg := NewBadgerRegistry(db, clock.Now)
	if err := reg.PutDevice(context.Background(), testDevice(clock, "", desktop())); err != nil {
		t.Fatal(err)
	}

	// Close leaves a caller-owned database open.
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	if db.IsClosed() {
		t.Error("registry closed a database it does not own")
	}
}
