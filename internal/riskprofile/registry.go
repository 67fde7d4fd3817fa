// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Registry errors.
var (
	ErrNotFound       = errors.New("device not found")
	ErrRegistryClosed = errors.New("device registry is closed")
)

// Device is a trusted device entry.
type Device struct {
	Fingerprint  Fingerprint `json:"fingerprint"`
	Owner        string      `json:"owner"`
	RegisteredAt time.Time   `json:"registered_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// Flag is a suspicious-set entry.
type Flag struct {
	DeviceID  string    `json:"device_id"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Registry stores trusted devices, the last-known device of each owner and
// the suspicious set.
type Registry interface {
	// Device returns the trusted device with id, or ErrNotFound.
	Device(ctx context.Context, id string) (*Device, error)

	// OwnerDevice returns the owner's most recently registered device, or
	// ErrNotFound.
	OwnerDevice(ctx context.Context, owner string) (*Device, error)

	// PutDevice stores d by fingerprint ID and as its owner's last-known device.
	PutDevice(ctx context.Context, d Device) error

	// Flagged reports whether id is in the suspicious set.
	Flagged(ctx context.Context, id string) (bool, error)

	// PutFlag adds f to the suspicious set.
	PutFlag(ctx context.Context, f Flag) error

	// Cleanup removes entries expired as of now and returns how many.
	Cleanup(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// MemoryRegistry is a map-backed Registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	now     func() time.Time
	devices map[string]*Device
	owners  map[string]*Device
	flags   map[string]*Flag
	closed  bool
}

// NewMemoryRegistry creates an empty in-memory registry. now is used for
// lazy expiry; nil means time.Now.
func NewMemoryRegistry(now func() time.Time) *MemoryRegistry {
	if now == nil {
		now = time.Now
	}
	return &MemoryRegistry{
		now:     now,
		devices: make(map[string]*Device),
		owners:  make(map[string]*Device),
		flags:   make(map[string]*Flag),
	}
}

// Device implements Registry.
func (r *MemoryRegistry) Device(_ context.Context, id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.live(r.devices[id])
}

// OwnerDevice implements Registry.
func (r *MemoryRegistry) OwnerDevice(_ context.Context, owner string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.live(r.owners[owner])
}

func (r *MemoryRegistry) live(d *Device) (*Device, error) {
	if d == nil || !r.now().Before(d.ExpiresAt) {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// PutDevice implements Registry.
func (r *MemoryRegistry) PutDevice(_ context.Context, d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	stored := d
	r.devices[d.Fingerprint.ID] = &stored
	if d.Owner != "" {
		r.owners[d.Owner] = &stored
	}
	return nil
}

// Flagged implements Registry.
func (r *MemoryRegistry) Flagged(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false, ErrRegistryClosed
	}
	f, ok := r.flags[id]
	return ok && r.now().Before(f.ExpiresAt), nil
}

// PutFlag implements Registry.
func (r *MemoryRegistry) PutFlag(_ context.Context, f Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.flags[f.DeviceID] = &f
	return nil
}

// Cleanup implements Registry.
func (r *MemoryRegistry) Cleanup(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}

	removed := 0
	for id, d := range r.devices {
		if !now.Before(d.ExpiresAt) {
			delete(r.devices, id)
			removed++
		}
	}
	for owner, d := range r.owners {
		if !now.Before(d.ExpiresAt) {
			delete(r.owners, owner)
		}
	}
	for id, f := range r.flags {
		if !now.Before(f.ExpiresAt) {
			delete(r.flags, id)
			removed++
		}
	}
	return removed, nil
}

// Close implements Registry.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.devices, r.owners, r.flags = nil, nil, nil
	return nil
}
