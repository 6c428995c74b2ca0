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
	"math"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Min-max normalization ranges and saturation points for numeric features.
const (
	teamSizeMin = 1.0
	teamSizeMax = 50.0

	budgetMax = 100000.0

	productCountMin = 1.0
	productCountMax = 100.0

	// categorySaturation is the tenant count at which a category is
	// considered fully competitive.
	categorySaturation = 50.0

	// peerSaturation is the peer count at which peer density saturates.
	peerSaturation = 10.0
)

// Expertise ordinal encoding.
var expertiseLevels = map[datatypes.Expertise]float64{
	datatypes.ExpertiseBeginner:     0.2,
	datatypes.ExpertiseIntermediate: 0.6,
	datatypes.ExpertiseAdvanced:     1.0,
}

// FeatureVector is the fixed 11-dimensional backend input. Every component
// is in [0, 1].
type FeatureVector struct {
	Category        float64
	Audience        float64
	Geography       float64
	ContentStrategy float64
	Expertise       float64
	TeamSize        float64
	Budget          float64
	ProductCount    float64

	// Competitiveness is categoryTenantCount/50 capped at 1.
	Competitiveness float64

	// PeerSuccessMean is the mean success score across matched peers.
	PeerSuccessMean float64

	// PeerDensity is min(1, peerCount/10).
	PeerDensity float64
}

// Values returns the vector in its fixed dimension order.
func (f FeatureVector) Values() [11]float64 {
	return [11]float64{
		f.Category, f.Audience, f.Geography, f.ContentStrategy,
		f.Expertise, f.TeamSize, f.Budget, f.ProductCount,
		f.Competitiveness, f.PeerSuccessMean, f.PeerDensity,
	}
}

// PeerStats summarizes the matched peer population for feature encoding and
// rule evaluation.
type PeerStats struct {
	Count            int
	MeanSuccessScore float64
}

// BuildFeatures encodes a validated profile into the backend feature
// vector.
//
// Description:
//
//	Categorical fields go through the fixed vocabularies; expertise is an
//	ordinal (beginner 0.2, intermediate 0.6, advanced 1.0, unknown treated
//	as intermediate); numeric fields are min-max normalized and clamped.
func BuildFeatures(vocab *Vocab, profile datatypes.TenantProfile, peers PeerStats, categoryTenantCount int) FeatureVector {
	expertise, ok := expertiseLevels[profile.TechnicalExpertise]
	if !ok {
		expertise = expertiseLevels[datatypes.ExpertiseIntermediate]
	}
	return FeatureVector{
		Category:        vocab.EncodeCategory(profile.Category),
		Audience:        vocab.EncodeAudience(profile.TargetAudience),
		Geography:       vocab.EncodeGeography(profile.GeographicFocus),
		ContentStrategy: vocab.EncodeContentStrategy(profile.ContentStrategy),
		Expertise:       expertise,
		TeamSize:        minMax(float64(profile.TeamSize), teamSizeMin, teamSizeMax),
		Budget:          minMax(profile.MarketingBudget, 0, budgetMax),
		ProductCount:    minMax(float64(len(profile.InitialProducts)), productCountMin, productCountMax),
		Competitiveness: math.Min(1, float64(categoryTenantCount)/categorySaturation),
		PeerSuccessMean: clamp01(peers.MeanSuccessScore),
		PeerDensity:     math.Min(1, float64(peers.Count)/peerSaturation),
	}
}

func minMax(v, lo, hi float64) float64 {
	return clamp01((v - lo) / (hi - lo))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
