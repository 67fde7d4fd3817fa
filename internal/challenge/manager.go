// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
)

// Scoring constants.
const (
	baseScore       = 100
	retryPenalty    = 20
	slowThreshold   = 30 * time.Second
	maxSlowPenalty  = 30
	quickThreshold  = 10 * time.Second
	quickSolveBonus = 10
)

type entry struct {
	challenge Challenge
	answer    answer
	attempts  int
}

// Manager issues and verifies challenges. Expiry is lazy on Verify plus Sweep;
// there is no timer per challenge.
type Manager struct {
	mu         sync.Mutex
	cfg        Config
	now        func() time.Time
	rng        Rand
	newID      func() string
	challenges map[string]*entry
	security   *logging.SecurityLogger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRand replaces the random source.
func WithRand(rng Rand) Option {
	return func(m *Manager) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// WithSecurityLogger replaces the security event logger.
func WithSecurityLogger(s *logging.SecurityLogger) Option {
	return func(m *Manager) {
		if s != nil {
			m.security = s
		}
	}
}

// NewManager creates a challenge manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:        cfg,
		now:        time.Now,
		rng:        NewLockedRand(time.Now().UnixNano()),
		newID:      uuid.NewString,
		challenges: make(map[string]*entry),
		security:   logging.NewSecurityLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Generate issues a new challenge. Empty or unknown difficulties mean medium.
func (m *Manager) Generate(difficulty Difficulty) Challenge {
	difficulty = difficulty.normalize()
	kind := Select(difficulty, m.rng)
	prompt, ans := generate(kind, difficulty, m.rng)

	now := m.now()
	ch := Challenge{
		ID:         m.newID(),
		Kind:       kind,
		Prompt:     prompt,
		Difficulty: difficulty,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.cfg.TTL),
	}

	m.mu.Lock()
	m.challenges[ch.ID] = &entry{challenge: ch, answer: ans}
	m.mu.Unlock()

	metrics.RecordChallengeIssued(string(kind), string(difficulty))
	logging.Debug().
		Str("challenge_id", ch.ID).
		Str("kind", string(kind)).
		Str("difficulty", string(difficulty)).
		Msg("Challenge issued")
	return ch
}

// Verify checks response against challenge id. clientStart is when the
// client began solving; the zero time means the challenge creation time.
// Verify never fails: unknown, expired and exhausted challenges are reported
// through Result.Outcome.
func (m *Manager) Verify(id, response string, clientStart time.Time) Result {
	now := m.now()
	res := Result{ChallengeID: id}

	m.mu.Lock()
	e, ok := m.challenges[id]
	switch {
	case !ok:
		res.Outcome = OutcomeUnknown

	case now.After(e.challenge.ExpiresAt):
		delete(m.challenges, id)
		res.Outcome = OutcomeExpired

	default:
		e.attempts++
		if e.attempts > m.cfg.MaxVerifyAttempts {
			delete(m.challenges, id)
			res.Outcome = OutcomeExhausted
			break
		}

		start := clientStart
		if start.IsZero() {
			start = e.challenge.CreatedAt
		}
		elapsed := max(now.Sub(start), 0)
		res.TimeToSolveMs = elapsed.Milliseconds()

		if !e.answer.check(e.challenge.Kind, response) {
			res.Outcome = OutcomeIncorrect
			break
		}

		delete(m.challenges, id)
		res.Success = true
		res.Outcome = OutcomeSolved
		res.Score = score(e.attempts, elapsed, e.challenge.Difficulty)
	}
	m.mu.Unlock()

	metrics.RecordChallengeVerification(string(res.Outcome), res.Outcome.terminal(),
		res.Score, time.Duration(res.TimeToSolveMs)*time.Millisecond)
	m.security.LogChallengeVerified(id, string(res.Outcome), res.Success, res.Score)
	return res
}

// score computes the score of a correct answer on the given attempt.
func score(attempts int, elapsed time.Duration, difficulty Difficulty) int {
	s := baseScore - retryPenalty*(attempts-1)

	if elapsed > slowThreshold {
		s -= min(maxSlowPenalty, int((elapsed-slowThreshold)/time.Second))
	}
	if elapsed < quickThreshold {
		s += quickSolveBonus
	}
	s += difficulty.bonus()

	return min(max(s, 0), 100)
}

// Pending returns the number of live challenges.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.challenges)
}

// Sweep deletes challenges expired as of now and returns how many it removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.challenges {
		if now.After(e.challenge.ExpiresAt) {
			delete(m.challenges, id)
			removed++
		}
	}
	metrics.SetChallengesPending(len(m.challenges))
	return removed
}

// Name identifies the challenge sweep to the supervisor.
func (m *Manager) Name() string {
	return "challenges"
}

// SweepOnce runs Sweep at the current time and records metrics.
func (m *Manager) SweepOnce(_ context.Context) error {
	start := time.Now()
	removed := m.Sweep(m.now())
	metrics.RecordSweep(m.Name(), time.Since(start), map[string]int{"challenges": removed})

	if removed > 0 {
		log := logging.WithComponent(m.Name())
		log.Debug().Int("removed", removed).Msg("Expired challenges swept")
	}
	return nil
}
