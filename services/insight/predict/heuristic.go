// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"context"
	"math"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Heuristic cold-start constants.
const (
	// coldStartMonthlyBase is the revenue floor for a month when no peer
	// outcome data exists at all.
	coldStartMonthlyBase = 500.0

	// coldStartBudgetLift scales the normalized budget feature into extra
	// monthly revenue when starting cold.
	coldStartBudgetLift = 5000.0

	// visitsPerRevenueUnit converts predicted revenue into predicted
	// visits for the traffic projection.
	visitsPerRevenueUnit = 20.0

	// maxMonthlyGrowth is the compounding month-over-month growth applied
	// at success probability 1.
	maxMonthlyGrowth = 0.10
)

// Success probability feature weights. They sum to 1 so the raw blend is
// already in [0, 1].
const (
	wPeerSuccess  = 0.25
	wExpertise    = 0.15
	wBudget       = 0.15
	wOpenMarket   = 0.15
	wTeamSize     = 0.10
	wProductRange = 0.10
	wPeerDensity  = 0.10
)

// Heuristic is the deterministic cold-start prediction backend.
//
// Description:
//
//	Produces predictions from fixed feature-weighted formulas and peer
//	outcome averages, with no trained state. The same features and peers
//	always yield the same outcome. This is the fallback target when a
//	trained backend fails, and the primary backend before any model has
//	been trained.
//
// Thread Safety: Stateless; safe for concurrent use.
type Heuristic struct{}

// NewHeuristic creates the heuristic backend.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Trainable() bool { return false }

// Train is not supported; the heuristic has no parameters to fit.
func (h *Heuristic) Train(context.Context, []TrainingSample) (datatypes.TrainingReport, error) {
	return datatypes.TrainingReport{}, datatypes.ErrTrainingNotSupported
}

// Predict produces the cold-start outcome.
//
// Description:
//
//	Success probability is a fixed weighted blend of the feature vector.
//	The monthly revenue base is the mean peer monthly revenue when any
//	peer reported revenue, otherwise a budget-anchored floor. Projections
//	compound a success-scaled monthly growth rate; traffic follows
//	revenue at a fixed visits-per-revenue ratio.
func (h *Heuristic) Predict(_ context.Context, features FeatureVector, peers []Peer) (Outcome, error) {
	p := successProbability(features)

	monthlyBase := peerMonthlyRevenue(peers)
	if monthlyBase <= 0 {
		monthlyBase = coldStartMonthlyBase + coldStartBudgetLift*features.Budget
	}
	// Scale the base by how promising the profile looks: 0.5x at p=0, 1.5x
	// at p=1.
	monthlyBase *= 0.5 + p

	growth := 1 + maxMonthlyGrowth*p
	revenue := projectCumulative(monthlyBase, growth)
	traffic := projectCumulative(monthlyBase*visitsPerRevenueUnit, growth)

	return Outcome{
		Revenue:            revenue,
		Traffic:            traffic,
		SuccessProbability: p,
	}, nil
}

// successProbability blends the feature vector into [0, 1]. Market
// competitiveness contributes inverted: an open market helps.
func successProbability(f FeatureVector) float64 {
	p := wPeerSuccess*f.PeerSuccessMean +
		wExpertise*f.Expertise +
		wBudget*f.Budget +
		wOpenMarket*(1-f.Competitiveness) +
		wTeamSize*f.TeamSize +
		wProductRange*f.ProductCount +
		wPeerDensity*f.PeerDensity
	return clamp01(p)
}

// peerMonthlyRevenue averages cumulative peer revenue down to a monthly
// figure, assuming outcomes accrued over roughly a year.
func peerMonthlyRevenue(peers []Peer) float64 {
	var sum float64
	count := 0
	for _, p := range peers {
		if p.RevenueOutcome > 0 {
			sum += p.RevenueOutcome
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) / 12
}

// projectCumulative compounds a monthly base at the given growth factor and
// returns cumulative totals at the standard horizons.
func projectCumulative(monthlyBase, growth float64) datatypes.Projection {
	var proj datatypes.Projection
	cumulative := 0.0
	monthly := monthlyBase
	for month := 1; month <= 12; month++ {
		cumulative += monthly
		switch month {
		case 1:
			proj.Month1 = round2(cumulative)
		case 3:
			proj.Month3 = round2(cumulative)
		case 6:
			proj.Month6 = round2(cumulative)
		case 12:
			proj.Month12 = round2(cumulative)
		}
		monthly *= growth
	}
	return proj
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
