// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package cache

import (
	"sync"
	"time"
)

// SlidingWindowCounter is a bucketed sliding window counter. Time is divided
// into numBuckets buckets and the count is the sum of all live buckets.
//
// Every operation takes the current time explicitly so callers can drive the
// window from their own clock.
//
// Complexity:
//   - Increment: O(1) amortized
//   - Count: O(k) where k = number of buckets
//   - Memory: O(k) per counter
type SlidingWindowCounter struct {
	mu         sync.Mutex
	buckets    []int64       // circular buffer of bucket counts
	bucketSize time.Duration // duration of each bucket
	windowSize time.Duration // total window duration
	numBuckets int
	current    int       // current bucket index
	lastUpdate time.Time // start of the current bucket
	lastTouch  time.Time // last Increment
}

// NewSlidingWindowCounter creates a counter whose first bucket starts at now.
//
// Example: NewSlidingWindowCounter(30*time.Second, 30, now) creates a
// 30-second window with 1-second buckets.
func NewSlidingWindowCounter(windowSize time.Duration, numBuckets int, now time.Time) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if windowSize <= 0 {
		windowSize = 5 * time.Minute
	}
	bucketSize := windowSize / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = 1
	}

	return &SlidingWindowCounter{
		buckets:    make([]int64, numBuckets),
		bucketSize: bucketSize,
		windowSize: windowSize,
		numBuckets: numBuckets,
		lastUpdate: now,
		lastTouch:  now,
	}
}

// Increment adds delta to the bucket containing now.
func (sw *SlidingWindowCounter) Increment(delta int64, now time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance(now)
	sw.buckets[sw.current] += delta
	if now.After(sw.lastTouch) {
		sw.lastTouch = now
	}
}

// Count returns the sum of all buckets in the window ending at now.
func (sw *SlidingWindowCounter) Count(now time.Time) int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.advance(now)

	var total int64
	for _, count := range sw.buckets {
		total += count
	}
	return total
}

// LastTouched returns the time of the most recent Increment.
func (sw *SlidingWindowCounter) LastTouched() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.lastTouch
}

// advance rotates the ring forward to the bucket containing now. Times
// earlier than the current bucket land in the current bucket.
// Must be called with lock held.
func (sw *SlidingWindowCounter) advance(now time.Time) {
	bucketsElapsed := int(now.Sub(sw.lastUpdate) / sw.bucketSize)
	if bucketsElapsed <= 0 {
		return
	}

	if bucketsElapsed >= sw.numBuckets {
		for i := range sw.buckets {
			sw.buckets[i] = 0
		}
		sw.current = 0
		sw.lastUpdate = now
		return
	}

	for i := 0; i < bucketsElapsed; i++ {
		sw.current = (sw.current + 1) % sw.numBuckets
		sw.buckets[sw.current] = 0
	}
	// Keep bucket boundaries aligned so partial buckets are not lost.
	sw.lastUpdate = sw.lastUpdate.Add(time.Duration(bucketsElapsed) * sw.bucketSize)
}

// SlidingWindowStore manages sliding window counters by key.
//
//	store := NewSlidingWindowStore(30*time.Second, 30, 0)
//	store.Increment("alice", now)
//	n := store.Count("alice", now)
type SlidingWindowStore struct {
	mu         sync.RWMutex
	counters   map[string]*SlidingWindowCounter
	windowSize time.Duration
	numBuckets int
	maxKeys    int // maximum number of keys (0 = unlimited)
}

// NewSlidingWindowStore creates a new store for sliding window counters.
func NewSlidingWindowStore(windowSize time.Duration, numBuckets, maxKeys int) *SlidingWindowStore {
	return &SlidingWindowStore{
		counters:   make(map[string]*SlidingWindowCounter),
		windowSize: windowSize,
		numBuckets: numBuckets,
		maxKeys:    maxKeys,
	}
}

// Increment adds 1 to the counter for key.
func (s *SlidingWindowStore) Increment(key string, now time.Time) {
	s.IncrementBy(key, 1, now)
}

// IncrementBy adds delta to the counter for key.
func (s *SlidingWindowStore) IncrementBy(key string, delta int64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, exists := s.counters[key]
	if !exists {
		if s.maxKeys > 0 && len(s.counters) >= s.maxKeys {
			s.evictOldest()
		}
		counter = NewSlidingWindowCounter(s.windowSize, s.numBuckets, now)
		s.counters[key] = counter
	}

	counter.Increment(delta, now)
}

// Count returns the count for key within the window ending at now.
func (s *SlidingWindowStore) Count(key string, now time.Time) int64 {
	s.mu.RLock()
	counter, exists := s.counters[key]
	s.mu.RUnlock()

	if !exists {
		return 0
	}
	return counter.Count(now)
}

// Remove removes the counter for key.
func (s *SlidingWindowStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
}

// Len returns the number of counters in the store.
func (s *SlidingWindowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters)
}

// CleanupInactive removes counters with nothing left in their window.
// Returns the number of counters removed.
func (s *SlidingWindowStore) CleanupInactive(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		if counter.Count(now) == 0 {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the least recently incremented counter.
// Must be called with lock held.
func (s *SlidingWindowStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, counter := range s.counters {
		touched := counter.LastTouched()
		if !found || touched.Before(oldest) {
			oldestKey, oldest, found = key, touched, true
		}
	}
	if found {
		delete(s.counters, oldestKey)
	}
}

// UniqueValueCounter tracks distinct values within a sliding window.
type UniqueValueCounter struct {
	mu         sync.Mutex
	buckets    []map[string]struct{} // circular buffer of value sets
	bucketSize time.Duration
	numBuckets int
	current    int
	lastUpdate time.Time
	lastTouch  time.Time
}

// NewUniqueValueCounter creates a new unique value counter starting at now.
func NewUniqueValueCounter(windowSize time.Duration, numBuckets int, now time.Time) *UniqueValueCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if windowSize <= 0 {
		windowSize = 5 * time.Minute
	}
	bucketSize := windowSize / time.Duration(numBuckets)
	if bucketSize <= 0 {
		bucketSize = 1
	}

	buckets := make([]map[string]struct{}, numBuckets)
	for i := range buckets {
		buckets[i] = make(map[string]struct{})
	}

	return &UniqueValueCounter{
		buckets:    buckets,
		bucketSize: bucketSize,
		numBuckets: numBuckets,
		lastUpdate: now,
		lastTouch:  now,
	}
}

// Add records value in the bucket containing now.
func (u *UniqueValueCounter) Add(value string, now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.advance(now)
	u.buckets[u.current][value] = struct{}{}
	if now.After(u.lastTouch) {
		u.lastTouch = now
	}
}

// CountUnique returns the number of distinct values in the window.
func (u *UniqueValueCounter) CountUnique(now time.Time) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.advance(now)
	return len(u.merged())
}

// GetUnique returns the distinct values in the window.
func (u *UniqueValueCounter) GetUnique(now time.Time) []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.advance(now)
	merged := u.merged()
	values := make([]string, 0, len(merged))
	for value := range merged {
		values = append(values, value)
	}
	return values
}

// LastTouched returns the time of the most recent Add.
func (u *UniqueValueCounter) LastTouched() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastTouch
}

// merged unions all buckets. Must be called with lock held.
func (u *UniqueValueCounter) merged() map[string]struct{} {
	merged := make(map[string]struct{})
	for _, bucket := range u.buckets {
		for value := range bucket {
			merged[value] = struct{}{}
		}
	}
	return merged
}

// advance moves the window forward to now. Must be called with lock held.
func (u *UniqueValueCounter) advance(now time.Time) {
	bucketsElapsed := int(now.Sub(u.lastUpdate) / u.bucketSize)
	if bucketsElapsed <= 0 {
		return
	}

	if bucketsElapsed >= u.numBuckets {
		for i := range u.buckets {
			u.buckets[i] = make(map[string]struct{})
		}
		u.current = 0
		u.lastUpdate = now
		return
	}

	for i := 0; i < bucketsElapsed; i++ {
		u.current = (u.current + 1) % u.numBuckets
		u.buckets[u.current] = make(map[string]struct{})
	}
	u.lastUpdate = u.lastUpdate.Add(time.Duration(bucketsElapsed) * u.bucketSize)
}

// UniqueValueStore manages unique value counters by key, for example the set
// of identifiers seen per source IP.
type UniqueValueStore struct {
	mu         sync.RWMutex
	counters   map[string]*UniqueValueCounter
	windowSize time.Duration
	numBuckets int
	maxKeys    int
}

// NewUniqueValueStore creates a new store for unique value counters.
func NewUniqueValueStore(windowSize time.Duration, numBuckets, maxKeys int) *UniqueValueStore {
	return &UniqueValueStore{
		counters:   make(map[string]*UniqueValueCounter),
		windowSize: windowSize,
		numBuckets: numBuckets,
		maxKeys:    maxKeys,
	}
}

// Add records value for key.
func (s *UniqueValueStore) Add(key, value string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, exists := s.counters[key]
	if !exists {
		if s.maxKeys > 0 && len(s.counters) >= s.maxKeys {
			s.evictOldest()
		}
		counter = NewUniqueValueCounter(s.windowSize, s.numBuckets, now)
		s.counters[key] = counter
	}

	counter.Add(value, now)
}

// CountUnique returns the number of distinct values for key.
func (s *UniqueValueStore) CountUnique(key string, now time.Time) int {
	s.mu.RLock()
	counter, exists := s.counters[key]
	s.mu.RUnlock()

	if !exists {
		return 0
	}
	return counter.CountUnique(now)
}

// GetUnique returns the distinct values for key.
func (s *UniqueValueStore) GetUnique(key string, now time.Time) []string {
	s.mu.RLock()
	counter, exists := s.counters[key]
	s.mu.RUnlock()

	if !exists {
		return nil
	}
	return counter.GetUnique(now)
}

// Remove removes the counter for key.
func (s *UniqueValueStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
}

// Len returns the number of counters in the store.
func (s *UniqueValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.counters)
}

// CleanupInactive removes counters whose window is empty at now.
func (s *UniqueValueStore) CleanupInactive(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		if counter.CountUnique(now) == 0 {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// evictOldest removes the least recently touched counter.
func (s *UniqueValueStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, counter := range s.counters {
		touched := counter.LastTouched()
		if !found || touched.Before(oldest) {
			oldestKey, oldest, found = key, touched, true
		}
	}
	if found {
		delete(s.counters, oldestKey)
	}
}
