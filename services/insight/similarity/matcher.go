// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package similarity provides the pure scoring functions of the insight
// core: profile-to-profile similarity and historical success scoring.
//
// Everything here is stateless and safe to run fully in parallel across
// tenants and requests.
package similarity

import (
	"math"
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// teamSizeSpread is the team-size difference at which the factor bottoms
// out at zero.
const teamSizeSpread = 10.0

// Score computes the similarity between a candidate profile and a
// historical profile, in [0, 1].
//
// Description:
//
//	Five factors are considered: category (exact match), target audience
//	(token Jaccard), geographic focus (exact match), team size
//	(max(0, 1-|Δ|/10)), and marketing budget (min(a/b, b/a)). A factor
//	only enters the average when BOTH profiles provide the field; missing
//	fields are excluded rather than scored zero, so sparse profiles are
//	not unfairly penalized. With no comparable factors the score is 0.
func Score(candidate, historical datatypes.TenantProfile) float64 {
	var sum float64
	var factors int

	if candidate.Category != "" && historical.Category != "" {
		if strings.EqualFold(candidate.Category, historical.Category) {
			sum += 1
		}
		factors++
	}

	if candidate.TargetAudience != "" && historical.TargetAudience != "" {
		sum += tokenJaccard(candidate.TargetAudience, historical.TargetAudience)
		factors++
	}

	if candidate.GeographicFocus != "" && historical.GeographicFocus != "" {
		if strings.EqualFold(candidate.GeographicFocus, historical.GeographicFocus) {
			sum += 1
		}
		factors++
	}

	if candidate.TeamSize > 0 && historical.TeamSize > 0 {
		delta := math.Abs(float64(candidate.TeamSize - historical.TeamSize))
		sum += math.Max(0, 1-delta/teamSizeSpread)
		factors++
	}

	if candidate.MarketingBudget > 0 && historical.MarketingBudget > 0 {
		sum += math.Min(candidate.MarketingBudget/historical.MarketingBudget,
			historical.MarketingBudget/candidate.MarketingBudget)
		factors++
	}

	if factors == 0 {
		return 0
	}
	return sum / float64(factors)
}

// tokenJaccard computes the Jaccard similarity of the lowercase token sets
// of two free-text fields.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// tokenSet splits text into a set of lowercase alphanumeric tokens.
func tokenSet(text string) map[string]bool {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}
