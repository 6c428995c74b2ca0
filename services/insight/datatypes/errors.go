// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"fmt"
)

// Sentinel errors for the insight core. Callers classify failures with
// errors.Is / errors.As; the orchestration layer maps the classes to
// user-facing messaging and HTTP status codes.
var (
	// ErrInsufficientData indicates too few raw records in the requested
	// window. Retrying with a wider window may succeed.
	ErrInsufficientData = errors.New("insufficient data points for aggregation")

	// ErrInsufficientParticipants indicates fewer than the minimum number
	// of budget-eligible tenants. This is the hard privacy floor; it is
	// never relaxed.
	ErrInsufficientParticipants = errors.New("insufficient eligible tenants for aggregation")

	// ErrInsufficientSimilarTenants indicates fewer than the minimum number
	// of qualifying peers for a prediction.
	ErrInsufficientSimilarTenants = errors.New("insufficient similar tenants for prediction")

	// ErrTrainingNotSupported indicates the configured prediction backend
	// has no training capability.
	ErrTrainingNotSupported = errors.New("prediction backend does not support training")
)

// ValidationError reports malformed caller input. It is surfaced
// immediately and never retried.
type ValidationError struct {
	// Field names the offending input field when known.
	Field string

	// Reason is a human-readable description of the violation.
	Reason string

	// Err is the underlying validation failure, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: field %q: %s", e.Field, e.Reason)
	}
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PrivacyError reports a fail-closed aggregation refusal: either not enough
// raw data points or not enough eligible tenants. The wrapped sentinel
// (ErrInsufficientData or ErrInsufficientParticipants) distinguishes the two.
type PrivacyError struct {
	// SegmentKey is the canonical key of the refused segment.
	SegmentKey string

	// Got and Want describe the failed minimum.
	Got  int
	Want int

	// Err is one of the privacy sentinels above.
	Err error
}

func (e *PrivacyError) Error() string {
	return fmt.Sprintf("privacy: segment %q: %v (got %d, need %d)", e.SegmentKey, e.Err, e.Got, e.Want)
}

func (e *PrivacyError) Unwrap() error { return e.Err }

// ModelError reports a prediction failure: not enough similar tenants, or a
// backend-specific failure that survived the heuristic fallback.
type ModelError struct {
	// Backend names the backend that failed ("heuristic", "trained", ...).
	Backend string

	// Err is the underlying cause.
	Err error
}

func (e *ModelError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("model: backend %s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("model: %v", e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// PersistenceError reports a store read or write failure. Stores retry once
// locally before surfacing it; it is never silently swallowed.
type PersistenceError struct {
	// Op is the failed operation, e.g. "persist_benchmark".
	Op string

	// Err is the underlying store failure.
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPrivacyError reports whether err is (or wraps) a PrivacyError.
func IsPrivacyError(err error) bool {
	var pe *PrivacyError
	return errors.As(err, &pe)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsModelError reports whether err is (or wraps) a ModelError.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// IsPersistenceError reports whether err is (or wraps) a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
