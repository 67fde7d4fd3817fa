// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package challenge

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

// Rand is the random source used for challenge selection and generation.
type Rand interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// LockedRand is a math/rand source safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand returns a LockedRand seeded with seed.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // challenges are not secrets
}

// Intn implements Rand.
func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// candidates lists the kinds each difficulty may produce. Math is the weakest
// kind and is excluded at hard.
var candidates = map[Difficulty][]Kind{
	DifficultyEasy:   {KindMath, KindText},
	DifficultyMedium: {KindMath, KindText, KindSlider},
	DifficultyHard:   {KindText, KindSlider},
}

// Select picks a challenge kind uniformly from the difficulty's candidate set.
func Select(difficulty Difficulty, rng Rand) Kind {
	set, ok := candidates[difficulty]
	if !ok {
		set = candidates[DifficultyMedium]
	}
	return set[rng.Intn(len(set))]
}

// Words are the tiered text-challenge word lists.
var Words = map[Difficulty][]string{
	DifficultyEasy:   {"cat", "dog", "sun", "car", "book"},
	DifficultyMedium: {"garden", "window", "silver", "rocket", "planet", "bridge"},
	DifficultyHard:   {"labyrinth", "chrysalis", "rhythm", "quartz", "juxtapose", "zephyr"},
}

// generate builds the prompt and answer for kind at difficulty.
func generate(kind Kind, difficulty Difficulty, rng Rand) (string, answer) {
	switch kind {
	case KindText:
		return generateText(difficulty, rng)
	case KindSlider:
		return generateSlider(difficulty, rng)
	default:
		return generateMath(difficulty, rng)
	}
}

func generateMath(difficulty Difficulty, rng Rand) (string, answer) {
	switch difficulty {
	case DifficultyEasy:
		a, b := rng.Intn(10), rng.Intn(10)
		return fmt.Sprintf("What is %d + %d?", a, b), answer{text: strconv.Itoa(a + b)}

	case DifficultyHard:
		a, b := 2+rng.Intn(12), 2+rng.Intn(12)
		return fmt.Sprintf("What is %d x %d?", a, b), answer{text: strconv.Itoa(a * b)}

	default:
		a, b := 10+rng.Intn(90), 10+rng.Intn(90)
		if rng.Intn(2) == 0 {
			return fmt.Sprintf("What is %d + %d?", a, b), answer{text: strconv.Itoa(a + b)}
		}
		hi, lo := max(a, b), min(a, b)
		return fmt.Sprintf("What is %d - %d?", hi, lo), answer{text: strconv.Itoa(hi - lo)}
	}
}

func generateText(difficulty Difficulty, rng Rand) (string, answer) {
	words, ok := Words[difficulty]
	if !ok {
		words = Words[DifficultyMedium]
	}
	w := words[rng.Intn(len(words))]
	return fmt.Sprintf("Type the word: %s", w), answer{text: w}
}

func generateSlider(difficulty Difficulty, rng Rand) (string, answer) {
	target := 1 + rng.Intn(100)
	return fmt.Sprintf("Move the slider to %d", target), answer{
		target:    target,
		tolerance: difficulty.sliderTolerance(),
	}
}

// check reports whether response solves a challenge of kind.
func (a answer) check(kind Kind, response string) bool {
	response = strings.TrimSpace(response)

	if kind == KindSlider {
		v, err := strconv.ParseFloat(response, 64)
		if err != nil {
			return false
		}
		diff := v - float64(a.target)
		if diff < 0 {
			diff = -diff
		}
		return diff <= float64(a.tolerance)
	}
	return strings.EqualFold(response, a.text)
}
