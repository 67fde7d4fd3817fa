// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package riskprofile

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Signals is the client-reported environment collected by the boundary layer.
type Signals struct {
	UserAgent      string   `json:"user_agent" validate:"max=1024"`
	Screen         string   `json:"screen" validate:"omitempty,max=64,screen"` // "1920x1080" or "1920x1080x24"
	Timezone       string   `json:"timezone" validate:"max=64"`
	TimezoneOffset int      `json:"timezone_offset" validate:"min=-900,max=900"` // minutes
	Language       string   `json:"language" validate:"max=64"`
	Platform       string   `json:"platform" validate:"max=64"`
	CanvasHash     string   `json:"canvas_hash,omitempty" validate:"max=256"`
	WebGLHash      string   `json:"webgl_hash,omitempty" validate:"max=256"`
	Fonts          []string `json:"fonts,omitempty" validate:"max=512"`
	Plugins        []string `json:"plugins,omitempty" validate:"max=256"`
}

// Fingerprint is an immutable device snapshot. Slices are private copies and
// must not be modified by callers.
type Fingerprint struct {
	ID             string    `json:"id"`
	UserAgent      string    `json:"user_agent"`
	Screen         string    `json:"screen"`
	Timezone       string    `json:"timezone"`
	TimezoneOffset int       `json:"timezone_offset"`
	Language       string    `json:"language"`
	Platform       string    `json:"platform"`
	CanvasHash     string    `json:"canvas_hash,omitempty"`
	WebGLHash      string    `json:"webgl_hash,omitempty"`
	Fonts          []string  `json:"fonts,omitempty"`
	Plugins        []string  `json:"plugins,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FingerprintID derives the stable device ID: the hex BLAKE2b-256 digest of
// "agent|screen|language|platform|tzOffset".
func FingerprintID(s Signals) string {
	canonical := strings.Join([]string{
		s.UserAgent,
		s.Screen,
		s.Language,
		s.Platform,
		strconv.Itoa(s.TimezoneOffset),
	}, "|")
	sum := blake2b.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// newFingerprint builds a Fingerprint from s at now.
func newFingerprint(s Signals, now time.Time) Fingerprint {
	return Fingerprint{
		ID:             FingerprintID(s),
		UserAgent:      s.UserAgent,
		Screen:         s.Screen,
		Timezone:       s.Timezone,
		TimezoneOffset: s.TimezoneOffset,
		Language:       s.Language,
		Platform:       s.Platform,
		CanvasHash:     s.CanvasHash,
		WebGLHash:      s.WebGLHash,
		Fonts:          sortedCopy(s.Fonts),
		Plugins:        sortedCopy(s.Plugins),
		CreatedAt:      now,
	}
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// resolution returns the "WxH" part of a screen descriptor.
func resolution(screen string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(screen)), "x")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "x" + parts[1]
}
