// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package benchmark

import (
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// fundamentalsThreshold is the conversion rate below which the segment has
// a fundamentals problem no tactical tweak will fix.
const fundamentalsThreshold = 0.02

// Recommendation tiers keyed by percentile rank.
var (
	bottomQuartileRecs = []string{
		"Improve page load speed",
		"Simplify your checkout and conversion flow",
		"Optimize landing pages for mobile visitors",
		"Test social-proof elements in ad creatives",
	}
	belowMedianRecs = []string{
		"Improve product presentation with richer imagery",
		"Add exit-intent offers to recover abandoning visitors",
		"Run A/B tests on headlines and calls to action",
	}
	thirdQuartileRecs = []string{
		"Increase average order value with cross-sells",
		"Personalize product recommendations",
	}
	topQuartileRecs = []string{
		"Maintain your current strategy",
		"Replicate this playbook in adjacent segments",
	}

	fundamentalsWarning = "Conversion rate is below 2%: revisit fundamentals " +
		"(product-market fit, pricing, trust signals) before tactical optimization"
)

// PercentileRank ranks a value against historical values, in [0, 100].
//
// Description:
//
//	Counts historical values strictly less than v, divided by the total,
//	times 100. An empty history returns 50: a neutral default so a brand
//	new segment is reported mid-pack rather than best or worst. That is a
//	product choice, not a statistical answer.
func PercentileRank(v float64, historical []float64) float64 {
	if len(historical) == 0 {
		return 50
	}
	below := 0
	for _, h := range historical {
		if h < v {
			below++
		}
	}
	return float64(below) * 100 / float64(len(historical))
}

// Recommend produces the recommendation list for a segment given its
// current conversion rate and percentile rank.
//
// Description:
//
//	A fixed tiered rule table keyed by percentile quartile. A fundamentals
//	warning is appended whenever the absolute rate is under 2%, regardless
//	of how the segment ranks against its own history.
func Recommend(rate, percentile float64, seg segment.Descriptor) []string {
	var recs []string
	switch {
	case percentile < 25:
		recs = append(recs, bottomQuartileRecs...)
	case percentile < 50:
		recs = append(recs, belowMedianRecs...)
	case percentile < 75:
		recs = append(recs, thirdQuartileRecs...)
	default:
		recs = append(recs, topQuartileRecs...)
	}

	if seg.DeviceType == "mobile" && percentile < 50 {
		recs = append(recs, "Audit mobile-specific friction: tap targets, keyboard types, autofill")
	}

	if rate < fundamentalsThreshold {
		recs = append(recs, fundamentalsWarning)
	}
	return recs
}
