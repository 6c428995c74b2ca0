// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries, storage keys, or time-series (Flux) queries. Using these
// validators prevents injection attacks (Flux injection, key-scheme
// corruption) before an identifier is interpolated anywhere.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// tenantIDPattern matches valid tenant identifiers.
// Allows: letters, digits, hyphens, underscores. Max length: 64 characters.
var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,63}$`)

// labelPattern matches valid segment/category label values.
// Lowercase to keep canonical segment keys case-stable.
var labelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-.]{0,63}$`)

// ValidateTenantID validates a tenant identifier before it is used in a
// Flux query or a storage key.
//
// Valid tenant IDs:
//   - 1-64 characters
//   - Letters A-Z a-z, digits 0-9
//   - Hyphens and underscores after the first character
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateTenantID(tenantID); err != nil {
//	    return nil, fmt.Errorf("invalid tenant id: %w", err)
//	}
//	// Safe to use in a Flux query
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid tenant id format: %q (must be 1-64 alphanumeric chars, hyphens, or underscores)", tenantID)
	}
	return nil
}

// ValidateLabel validates a segment dimension value or category name.
//
// Valid labels:
//   - 1-64 characters
//   - Lowercase letters, digits
//   - Hyphens, underscores, dots after the first character
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("invalid label format: %q (must be 1-64 lowercase alphanumeric chars, hyphens, underscores, or dots)", label)
	}
	return nil
}

// ValidateLabels validates multiple label values, skipping empty ones
// (an empty segment dimension means "not constrained").
// Returns an error listing all invalid labels if any fail validation.
func ValidateLabels(labels ...string) error {
	var invalid []string
	for _, l := range labels {
		if l == "" {
			continue
		}
		if err := ValidateLabel(l); err != nil {
			invalid = append(invalid, l)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid labels: %v", invalid)
	}
	return nil
}

// SanitizeLabel normalizes and validates a label value.
// Returns the lowercase label if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	safe, err := validation.SanitizeLabel(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeLabel(label string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if err := ValidateLabel(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
