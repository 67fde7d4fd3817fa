// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tollgate/internal/auth"
	"github.com/tomtom215/tollgate/internal/validation"
)

// maxBodyBytes bounds every request body. The largest legitimate body is a
// signals bundle with a font list.
const maxBodyBytes = 64 << 10

// sanitizeLogValue replaces control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxErr):
			return ErrBodyTooLarge
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return nil
}

// bindJSON decodes and validates a request body. On failure it writes the
// error response and returns false.
//
//	var req CheckAttemptRequest
//	if !bindJSON(w, r, &req) {
//	    return
//	}
func bindJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	if err := decodeJSON(w, r, dst); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, err.Error())
			return false
		}
		rw.BadRequest(err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return false
	}
	return true
}

// operatorName is the validated operator on the request, or "anonymous"
// when operator auth is off.
func operatorName(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Operator
	}
	return "anonymous"
}
