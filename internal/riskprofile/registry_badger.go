// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	deviceKeyPrefix = "dev:"
	ownerKeyPrefix  = "own:"
	flagKeyPrefix   = "flag:"
)

// BadgerRegistry implements Registry on BadgerDB. Entries carry a Badger TTL
// matching their ExpiresAt; reads also compare ExpiresAt against the
// registry clock so that expiry follows an injected clock in tests.
type BadgerRegistry struct {
	db     *badger.DB
	now    func() time.Time
	ownsDB bool
}

// NewBadgerRegistry wraps an open database. The caller keeps ownership of db.
func NewBadgerRegistry(db *badger.DB, now func() time.Time) *BadgerRegistry {
	if now == nil {
		now = time.Now
	}
	return &BadgerRegistry{db: db, now: now}
}

// OpenBadgerRegistry opens a database at dir, or an in-memory one when dir
// is empty. The registry closes it on Close.
func OpenBadgerRegistry(dir string, now func() time.Time) (*BadgerRegistry, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open device registry: %w", err)
	}
	r := NewBadgerRegistry(db, now)
	r.ownsDB = true
	return r, nil
}

// Device implements Registry.
func (r *BadgerRegistry) Device(_ context.Context, id string) (*Device, error) {
	return r.getDevice([]byte(deviceKeyPrefix + id))
}

// OwnerDevice implements Registry.
func (r *BadgerRegistry) OwnerDevice(_ context.Context, owner string) (*Device, error) {
	return r.getDevice([]byte(ownerKeyPrefix + owner))
}

func (r *BadgerRegistry) getDevice(key []byte) (*Device, error) {
	var device Device

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get device: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &device)
		})
	})
	if err != nil {
		return nil, r.mapErr(err)
	}

	if !r.now().Before(device.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &device, nil
}

// PutDevice implements Registry.
func (r *BadgerRegistry) PutDevice(_ context.Context, d Device) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}
	ttl := d.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(deviceKeyPrefix+d.Fingerprint.ID), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set device: %w", err)
		}

		if d.Owner != "" {
			entry := badger.NewEntry([]byte(ownerKeyPrefix+d.Owner), data).WithTTL(ttl)
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("set owner device: %w", err)
			}
		}
		return nil
	})
	return r.mapErr(err)
}

// Flagged implements Registry.
func (r *BadgerRegistry) Flagged(_ context.Context, id string) (bool, error) {
	var flag Flag

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(flagKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &flag)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, r.mapErr(fmt.Errorf("get flag: %w", err))
	}
	return r.now().Before(flag.ExpiresAt), nil
}

// PutFlag implements Registry.
func (r *BadgerRegistry) PutFlag(_ context.Context, f Flag) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flag: %w", err)
	}
	ttl := f.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(flagKeyPrefix+f.DeviceID), data).WithTTL(ttl))
	})
	return r.mapErr(err)
}

// Cleanup implements Registry. Badger drops entries whose TTL passed on its
// own; this removes entries that are expired by the registry clock.
func (r *BadgerRegistry) Cleanup(_ context.Context, now time.Time) (int, error) {
	var expired [][]byte

	err := r.db.View(func(txn *badger.Txn) error {
		for _, prefix := range []string{deviceKeyPrefix, ownerKeyPrefix, flagKeyPrefix} {
			keys, err := expiredKeys(txn, []byte(prefix), now)
			if err != nil {
				return err
			}
			expired = append(expired, keys...)
		}
		return nil
	})
	if err != nil {
		return 0, r.mapErr(err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	removed := 0
	err = r.db.Update(func(txn *badger.Txn) error {
		for _, key := range expired {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			// Owner entries mirror device entries and are not counted twice.
			if !strings.HasPrefix(string(key), ownerKeyPrefix) {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, r.mapErr(err)
	}
	return removed, nil
}

// expiry is the field shared by Device and Flag values.
type expiry struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func expiredKeys(txn *badger.Txn, prefix []byte, now time.Time) ([][]byte, error) {
	var keys [][]byte

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var exp expiry
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &exp) }); err != nil {
			return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
		}

		if !now.Before(exp.ExpiresAt) {
			keys = append(keys, item.KeyCopy(nil))
		}
	}
	return keys, nil
}

func (r *BadgerRegistry) mapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrRegistryClosed
	}
	return err
}

// Close implements Registry.
func (r *BadgerRegistry) Close() error {
	if !r.ownsDB {
		return nil
	}
	return r.db.Close()
}
