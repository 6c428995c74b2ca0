// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package similarity

import (
	"math"
	"sort"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Success-score composition weights and normalization anchors.
const (
	minHistoryRecords = 10

	revenueAnchor    = 10000.0 // cumulative revenue saturating the revenue score
	conversionAnchor = 0.03    // mean conversion rate saturating the conversion score

	revenueWeight     = 0.4
	conversionWeight  = 0.3
	growthWeight      = 0.2
	consistencyWeight = 0.1

	growthWindow = 3 // revenue points per side of the growth comparison
)

// SuccessScore derives a historical tenant's success score from its
// time-ordered metric history, in [0, 1].
//
// Description:
//
//	Returns exactly 0 for histories with fewer than 10 records: too thin
//	to score rather than merely scoring low. Otherwise blends four
//	sub-scores:
//
//	  revenue     min(1, Σrevenue / 10000)                weight 0.4
//	  conversion  min(1, mean(rates) / 0.03)              weight 0.3
//	  growth      recent-3 vs prior-3 revenue means,      weight 0.2
//	              (rate+0.5)/1.5 clamped to [0,1]
//	              (covers the -50%..+100% range)
//	  consistency max(0, 1 - CV(monthly revenue totals)), weight 0.1
//	              0 with fewer than 3 distinct months
func SuccessScore(history []datatypes.TenantHistoryRecord) float64 {
	if len(history) < minHistoryRecords {
		return 0
	}

	ordered := make([]datatypes.TenantHistoryRecord, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	score := revenueWeight*revenueScore(ordered) +
		conversionWeight*conversionScore(ordered) +
		growthWeight*growthScore(ordered) +
		consistencyWeight*consistencyScore(ordered)
	return math.Min(1, math.Max(0, score))
}

// CumulativeRevenue sums all revenue observations in a history. Used both
// for the revenue sub-score and as the peer outcome value behind prediction
// confidence intervals.
func CumulativeRevenue(history []datatypes.TenantHistoryRecord) float64 {
	var total float64
	for _, r := range history {
		if r.Type == datatypes.MetricRevenue {
			total += r.Value
		}
	}
	return total
}

func revenueScore(ordered []datatypes.TenantHistoryRecord) float64 {
	return math.Min(1, CumulativeRevenue(ordered)/revenueAnchor)
}

func conversionScore(ordered []datatypes.TenantHistoryRecord) float64 {
	var sum float64
	var count int
	for _, r := range ordered {
		if r.Type == datatypes.MetricConversion {
			sum += r.Value
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Min(1, (sum/float64(count))/conversionAnchor)
}

// growthScore compares the mean of the most recent 3 revenue points to the
// mean of the 3 before them. Histories with fewer than 6 revenue points, or
// a zero baseline, score at the neutral zero-growth level.
func growthScore(ordered []datatypes.TenantHistoryRecord) float64 {
	var revenues []float64
	for _, r := range ordered {
		if r.Type == datatypes.MetricRevenue {
			revenues = append(revenues, r.Value)
		}
	}

	growthRate := 0.0
	if len(revenues) >= 2*growthWindow {
		recent := mean(revenues[len(revenues)-growthWindow:])
		prior := mean(revenues[len(revenues)-2*growthWindow : len(revenues)-growthWindow])
		if prior > 0 {
			growthRate = (recent - prior) / prior
		}
	}
	return math.Min(1, math.Max(0, (growthRate+0.5)/1.5))
}

// consistencyScore rewards stable month-over-month revenue via the
// coefficient of variation of monthly totals.
func consistencyScore(ordered []datatypes.TenantHistoryRecord) float64 {
	monthly := make(map[string]float64)
	for _, r := range ordered {
		if r.Type == datatypes.MetricRevenue {
			monthly[r.Timestamp.UTC().Format("2006-01")] += r.Value
		}
	}
	if len(monthly) < 3 {
		return 0
	}

	totals := make([]float64, 0, len(monthly))
	for _, v := range monthly {
		totals = append(totals, v)
	}
	m := mean(totals)
	if m <= 0 {
		return 0
	}

	var variance float64
	for _, v := range totals {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(totals))
	cv := math.Sqrt(variance) / m
	return math.Max(0, 1-cv)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
