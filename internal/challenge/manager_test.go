// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tollgate/internal/logging"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T, rng Rand) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts := []Option{
		WithClock(clock.Now),
		WithSecurityLogger(logging.NewSecurityLoggerWithLogger(zerolog.Nop())),
	}
	if rng != nil {
		opts = append(opts, WithRand(rng))
	}
	m, err := NewManager(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, clock
}

// easyMath draws an easy math challenge "What is a + b?".
func easyMath(a, b int) Rand {
	return &seqRand{vals: []int{0, a, b}}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{TTL: 0, MaxVerifyAttempts: 3},
		{TTL: time.Minute, MaxVerifyAttempts: 0},
	} {
		if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("NewManager(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t, easyMath(3, 4))

	ch := m.Generate(DifficultyEasy)
	if ch.Kind != KindMath || ch.Prompt != "What is 3 + 4?" {
		t.Errorf("unexpected challenge %+v", ch)
	}
	if ch.ID == "" {
		t.Error("challenge has no ID")
	}
	if !ch.ExpiresAt.Equal(clock.Now().Add(5 * time.Minute)) {
		t.Errorf("expires at %s, want created + 5m", ch.ExpiresAt)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}
}

func TestGenerate_DefaultsToMedium(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, nil)
	if ch := m.Generate(""); ch.Difficulty != DifficultyMedium {
		t.Errorf("difficulty = %s, want medium", ch.Difficulty)
	}
}

func TestGenerate_UnknownDifficultyIsMedium(t *testing.T) {
	t.Parallel()

	// Medium math: kind 0, operands 10 and 10, addition.
	m, _ := newTestManager(t, &seqRand{vals: []int{0, 0, 0, 0}})

	ch := m.Generate(Difficulty("extreme"))
	if ch.Difficulty != DifficultyMedium {
		t.Fatalf("difficulty = %q, want medium", ch.Difficulty)
	}
	if ch.Prompt != "What is 10 + 10?" {
		t.Fatalf("prompt = %q, want the medium math prompt", ch.Prompt)
	}

	m.Verify(ch.ID, "1", time.Time{})
	m.Verify(ch.ID, "2", time.Time{})
	res := m.Verify(ch.ID, "20", time.Time{})

	// 100 - 2 retries + quick bonus + medium bonus
	if !res.Success || res.Score != 75 {
		t.Errorf("result = %+v, want success with score 75", res)
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, nil)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ch := m.Generate(DifficultyHard)
		if seen[ch.ID] {
			t.Fatalf("duplicate challenge ID %s", ch.ID)
		}
		seen[ch.ID] = true
	}
}

func TestVerify_WorkedExample(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t, easyMath(3, 4))
	ch := m.Generate(DifficultyEasy)
	started := clock.Now()
	clock.Advance(15 * time.Second)

	wrong := m.Verify(ch.ID, "8", started)
	if wrong.Success || wrong.Score != 0 || wrong.Outcome != OutcomeIncorrect {
		t.Errorf("wrong answer result %+v", wrong)
	}

	// Second attempt, 15s elapsed: 100 - 20, no speed adjustment, no bonus.
	right := m.Verify(ch.ID, "7", started)
	if !right.Success || right.Outcome != OutcomeSolved {
		t.Fatalf("correct answer result %+v", right)
	}
	if right.Score != 80 {
		t.Errorf("score = %d, want 80", right.Score)
	}
	if right.TimeToSolveMs != 15000 {
		t.Errorf("time to solve = %d, want 15000", right.TimeToSolveMs)
	}

	again := m.Verify(ch.ID, "7", started)
	if again.Success || again.Outcome != OutcomeUnknown {
		t.Errorf("consumed challenge must not verify again: %+v", again)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t, easyMath(1, 1))
	ch := m.Generate(DifficultyEasy)
	clock.Advance(5*time.Minute + time.Millisecond)

	res := m.Verify(ch.ID, "2", time.Time{})
	if res.Success || res.Score != 0 || res.Outcome != OutcomeExpired {
		t.Errorf("expired result %+v", res)
	}
	if m.Pending() != 0 {
		t.Error("expired challenge should be deleted")
	}
	if res := m.Verify(ch.ID, "2", time.Time{}); res.Outcome != OutcomeUnknown {
		t.Errorf("second verify after expiry = %s, want UNKNOWN_CHALLENGE", res.Outcome)
	}
}

func TestVerify_ExactlyAtExpiryStillValid(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t, easyMath(2, 2))
	ch := m.Generate(DifficultyEasy)
	clock.Advance(5 * time.Minute)

	if res := m.Verify(ch.ID, "4", time.Time{}); !res.Success {
		t.Errorf("verify at expiresAt should still succeed: %+v", res)
	}
}

func TestVerify_Exhausted(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, easyMath(5, 5))
	ch := m.Generate(DifficultyEasy)

	for i := 1; i <= 3; i++ {
		if res := m.Verify(ch.ID, "0", time.Time{}); res.Outcome != OutcomeIncorrect {
			t.Fatalf("attempt %d outcome = %s, want incorrect", i, res.Outcome)
		}
	}

	// The fourth call fails before the answer is checked.
	res := m.Verify(ch.ID, "10", time.Time{})
	if res.Success || res.Outcome != OutcomeExhausted {
		t.Errorf("fourth attempt result %+v, want EXHAUSTED", res)
	}
	if m.Pending() != 0 {
		t.Error("exhausted challenge should be deleted")
	}
}

func TestVerify_ThirdAttemptCanSucceed(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, easyMath(5, 5))
	ch := m.Generate(DifficultyEasy)
	m.Verify(ch.ID, "1", time.Time{})
	m.Verify(ch.ID, "2", time.Time{})

	res := m.Verify(ch.ID, "10", time.Time{})
	if !res.Success {
		t.Fatalf("third attempt should succeed: %+v", res)
	}
	// 100 - 40 + 10 (instant) + 0
	if res.Score != 70 {
		t.Errorf("score = %d, want 70", res.Score)
	}
}

func TestVerify_Slider(t *testing.T) {
	t.Parallel()

	// Medium, slider, target 42, tolerance 5.
	m, _ := newTestManager(t, &seqRand{vals: []int{2, 41}})
	ch := m.Generate(DifficultyMedium)
	if ch.Kind != KindSlider {
		t.Fatalf("kind = %s, want slider", ch.Kind)
	}

	if res := m.Verify(ch.ID, "48", time.Time{}); res.Success {
		t.Error("48 is outside 42 +/- 5")
	}
	if res := m.Verify(ch.ID, "47", time.Time{}); !res.Success {
		t.Errorf("47 is inside 42 +/- 5: %+v", res)
	}
}

func TestVerify_Unknown(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, nil)
	res := m.Verify("does-not-exist", "x", time.Time{})
	if res.Success || res.Outcome != OutcomeUnknown || res.ChallengeID != "does-not-exist" {
		t.Errorf("unknown result %+v", res)
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		attempts   int
		elapsed    time.Duration
		difficulty Difficulty
		want       int
	}{
		{"first try quick easy clamps", 1, 5 * time.Second, DifficultyEasy, 100},
		{"first try normal easy", 1, 20 * time.Second, DifficultyEasy, 100},
		{"first try normal medium clamps", 1, 20 * time.Second, DifficultyMedium, 100},
		{"second try normal medium", 2, 20 * time.Second, DifficultyMedium, 85},
		{"second try quick hard", 2, 3 * time.Second, DifficultyHard, 100},
		{"slow by 12s", 1, 42 * time.Second, DifficultyEasy, 88},
		{"slow penalty capped", 1, 10 * time.Minute, DifficultyEasy, 70},
		{"third try slow", 3, 2 * time.Minute, DifficultyEasy, 30},
		{"boundary 30s no penalty", 2, 30 * time.Second, DifficultyEasy, 80},
		{"boundary 10s no bonus", 2, 10 * time.Second, DifficultyEasy, 80},
		{"deep retries clamp at zero", 8, 10 * time.Minute, DifficultyEasy, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := score(tt.attempts, tt.elapsed, tt.difficulty); got != tt.want {
				t.Errorf("score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSweep(t *testing.T) {
	t.Parallel()

	m, clock := newTestManager(t, nil)
	m.Generate(DifficultyEasy)
	clock.Advance(3 * time.Minute)
	keep := m.Generate(DifficultyEasy)
	clock.Advance(2*time.Minute + time.Second)

	if removed := m.Sweep(clock.Now()); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}
	if _, ok := m.challenges[keep.ID]; !ok {
		t.Error("unexpired challenge was swept")
	}

	clock.Advance(5 * time.Minute)
	if err := m.SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() after SweepOnce = %d, want 0", m.Pending())
	}
}

func TestVerify_Concurrent(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, easyMath(4, 4))
	ch := m.Generate(DifficultyEasy)

	var wg sync.WaitGroup
	var mu sync.Mutex
	solved := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := m.Verify(ch.ID, "8", time.Time{})
			if res.Success {
				mu.Lock()
				solved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if solved != 1 {
		t.Errorf("challenge solved %d times, want exactly 1", solved)
	}
}
