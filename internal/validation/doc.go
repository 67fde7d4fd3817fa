// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

// Package validation validates API request bodies with go-playground/validator v10.
//
// A single validator instance is shared (it caches struct metadata). Error
// field names come from json tags so messages match what clients sent:
//
//	type checkRequest struct {
//	    Identifier string `json:"identifier" validate:"required,max=256"`
//	    IP         string `json:"ip,omitempty" validate:"omitempty,ip"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Error():   "identifier is required"
//	    // verr.Details(): map[identifier:identifier is required]
//	}
//
// Custom tags:
//   - screen: "WxH" or "WxHxDepth", as reported by browsers
package validation
