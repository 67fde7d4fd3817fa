// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package challenge

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the challenge type.
type Kind string

const (
	KindMath   Kind = "math"
	KindText   Kind = "text"
	KindSlider Kind = "slider"
)

// Difficulty is the challenge difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts s to a Difficulty. The empty string is medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// normalize maps unknown difficulties to medium.
func (d Difficulty) normalize() Difficulty {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

// bonus is the score bonus for solving at this difficulty.
func (d Difficulty) bonus() int {
	switch d {
	case DifficultyMedium:
		return 5
	case DifficultyHard:
		return 10
	default:
		return 0
	}
}

// sliderTolerance is the inclusive distance from the target a slider accepts.
func (d Difficulty) sliderTolerance() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyHard:
		return 2
	default:
		return 5
	}
}

// ErrUnknownDifficulty is returned by ParseDifficulty.
var ErrUnknownDifficulty = errors.New("unknown challenge difficulty")

// Challenge is an issued challenge as seen by the caller. The expected answer
// is never part of it.
type Challenge struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Prompt     string     `json:"prompt"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// answer is the withheld solution of a challenge.
type answer struct {
	text      string // math and text
	target    int    // slider
	tolerance int    // slider
}

// Outcome is the result of a verify call.
type Outcome string

const (
	OutcomeSolved    Outcome = "solved"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeUnknown   Outcome = "UNKNOWN_CHALLENGE"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeExhausted Outcome = "EXHAUSTED"
)

// terminal reports whether the outcome removed the challenge.
func (o Outcome) terminal() bool {
	return o == OutcomeSolved || o == OutcomeExpired || o == OutcomeExhausted
}

// Result is returned by Verify.
type Result struct {
	Success       bool    `json:"success"`
	ChallengeID   string  `json:"challenge_id"`
	Score         int     `json:"score"`
	TimeToSolveMs int64   `json:"time_to_solve_ms"`
	Outcome       Outcome `json:"outcome"`
}
