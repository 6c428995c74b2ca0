// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package privacy

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Confidence sub-score caps. Participant count saturates at 10 tenants,
// sample size at 1000 sessions.
const (
	confidenceParticipantCap = 10
	confidenceSampleCap      = 1000
)

// NoiseInjector generates Laplace-mechanism noise for differentially
// private aggregates.
//
// Thread Safety: Safe for concurrent use. The default injector draws from
// the shared math/rand/v2 generator; seeded injectors serialize access to
// their private source.
type NoiseInjector struct {
	// randFloat returns a uniform draw from [0, 1).
	randFloat func() float64
}

// NewNoiseInjector returns an injector backed by the process-wide random
// source.
func NewNoiseInjector() *NoiseInjector {
	return &NoiseInjector{randFloat: rand.Float64}
}

// NewSeededNoiseInjector returns an injector with a deterministic source.
// Intended for tests that need reproducible noise.
func NewSeededNoiseInjector(seed uint64) *NoiseInjector {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &NoiseInjector{
		randFloat: func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return rng.Float64()
		},
	}
}

// SampleLaplace draws one sample from the Laplace distribution with mean 0
// and the given scale, via inverse-CDF sampling.
func (n *NoiseInjector) SampleLaplace(scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	// u in (-0.5, 0.5); redraw the measure-zero endpoint so the log stays finite.
	u := n.randFloat() - 0.5
	for 1-2*math.Abs(u) <= 0 {
		u = n.randFloat() - 0.5
	}
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}

// ApplyPrivacy perturbs a true mean with Laplace noise scaled by
// sensitivity/epsilon and clamps the result to [0, 1].
//
// Description:
//
//	Clamping keeps conversion rates in their valid range but introduces
//	asymmetric bias for true means near 0 or 1 (mass that would fall
//	outside the range piles up on the boundary). This is a known, accepted
//	imprecision kept for compatibility with stored benchmark histories.
//
// Inputs:
//   - trueMean: The exact aggregate in [0, 1].
//   - epsilon: Differential-privacy parameter. Smaller epsilon, more noise.
//   - sensitivity: Max change one participant can cause. 1.0 here.
func (n *NoiseInjector) ApplyPrivacy(trueMean, epsilon, sensitivity float64) float64 {
	if epsilon <= 0 {
		epsilon = 0.1
	}
	if sensitivity <= 0 {
		sensitivity = 1.0
	}
	noisy := trueMean + n.SampleLaplace(sensitivity/epsilon)
	return math.Min(1, math.Max(0, noisy))
}

// ConfidenceLevel scores how trustworthy a noisy aggregate is, in [0, 1].
//
// Description:
//
//	Heuristic equal-weight blend of three normalized sub-scores:
//	participant count (capped at 10), total sample size (capped at 1000),
//	and inverse noise magnitude 1/(1+noise). Not a statistical confidence
//	level; a presentation-ranking signal.
func (n *NoiseInjector) ConfidenceLevel(participantCount, totalSampleSize int, noiseMagnitude float64) float64 {
	participantScore := math.Min(1, float64(participantCount)/confidenceParticipantCap)
	sampleScore := math.Min(1, float64(totalSampleSize)/confidenceSampleCap)
	noiseScore := 1 / (1 + math.Abs(noiseMagnitude))
	return (participantScore + sampleScore + noiseScore) / 3
}
