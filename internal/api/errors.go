// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import "errors"

var (
	// ErrEmptyBody is returned when a request that needs a JSON body has none.
	ErrEmptyBody = errors.New("request body is empty")

	// ErrBodyTooLarge is returned when a request body exceeds maxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)
