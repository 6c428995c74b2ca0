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
	"errors"
	"math"
	"sync"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Training hyperparameters. Fixed so training is deterministic for a given
// sample set.
const (
	trainEpochs        = 500
	trainLearningRate  = 0.05
	minTrainingSamples = 10

	// Horizon fractions of the 12-month cumulative total, matching the
	// heuristic's compounding ramp at moderate growth.
	month1Fraction = 0.06
	month3Fraction = 0.20
	month6Fraction = 0.44
)

// Linear is the trainable prediction backend: one linear model per target
// (12-month revenue, 12-month traffic, success probability) over the
// 11-dimensional feature vector plus a bias term.
//
// Description:
//
//	Targets are log-scaled for revenue and traffic so a handful of large
//	tenants cannot dominate the fit. Until Train has run, Predict refuses;
//	wrap with WithFallback(NewLinear(), NewHeuristic(), ...) to get the
//	documented cold-start behavior.
//
// Thread Safety: Safe for concurrent use. Predict takes a read lock on the
// weights; Train swaps them under a write lock.
type Linear struct {
	mu      sync.RWMutex
	trained bool

	revenueWeights [12]float64
	trafficWeights [12]float64
	successWeights [12]float64
}

// ErrModelNotTrained is returned by Predict before the first Train call.
var ErrModelNotTrained = errors.New("linear backend has no trained weights")

// NewLinear creates an untrained linear backend.
func NewLinear() *Linear { return &Linear{} }

func (l *Linear) Name() string { return "linear" }

func (l *Linear) Trainable() bool { return true }

// Predict evaluates the trained models on the feature vector.
func (l *Linear) Predict(_ context.Context, features FeatureVector, _ []Peer) (Outcome, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.trained {
		return Outcome{}, ErrModelNotTrained
	}

	x := features.Values()
	revenue12 := math.Max(0, math.Expm1(dot(l.revenueWeights, x)))
	traffic12 := math.Max(0, math.Expm1(dot(l.trafficWeights, x)))
	success := clamp01(dot(l.successWeights, x))

	return Outcome{
		Revenue:            spreadHorizons(revenue12),
		Traffic:            spreadHorizons(traffic12),
		SuccessProbability: success,
	}, nil
}

// Train fits all three models with full-batch gradient descent.
//
// Description:
//
//	Revenue and traffic regress log1p(realized value); success is a linear
//	probability fit against the 0/1 succeeded label. The report carries a
//	1 - normalized-MAE accuracy per metric, clamped to [0, 1].
func (l *Linear) Train(_ context.Context, samples []TrainingSample) (datatypes.TrainingReport, error) {
	if len(samples) < minTrainingSamples {
		return datatypes.TrainingReport{}, &datatypes.ModelError{
			Backend: l.Name(),
			Err:     datatypes.ErrInsufficientData,
		}
	}

	features := make([][11]float64, len(samples))
	revenueTargets := make([]float64, len(samples))
	trafficTargets := make([]float64, len(samples))
	successTargets := make([]float64, len(samples))
	for i, s := range samples {
		features[i] = s.Features.Values()
		revenueTargets[i] = math.Log1p(math.Max(0, s.Revenue))
		trafficTargets[i] = math.Log1p(math.Max(0, s.Traffic))
		if s.Succeeded {
			successTargets[i] = 1
		}
	}

	revenueWeights := fit(features, revenueTargets)
	trafficWeights := fit(features, trafficTargets)
	successWeights := fit(features, successTargets)

	report := datatypes.TrainingReport{
		Applicable: true,
		AccuracyByMetric: map[string]float64{
			"revenue": accuracy(features, revenueTargets, revenueWeights),
			"traffic": accuracy(features, trafficTargets, trafficWeights),
			"success": accuracy(features, successTargets, successWeights),
		},
		TrainingSampleCount: len(samples),
	}

	l.mu.Lock()
	l.revenueWeights = revenueWeights
	l.trafficWeights = trafficWeights
	l.successWeights = successWeights
	l.trained = true
	l.mu.Unlock()

	return report, nil
}

// dot applies weights to a feature vector; weight index 11 is the bias.
func dot(w [12]float64, x [11]float64) float64 {
	sum := w[11]
	for i, v := range x {
		sum += w[i] * v
	}
	return sum
}

// fit runs full-batch gradient descent on squared error.
func fit(features [][11]float64, targets []float64) [12]float64 {
	var w [12]float64
	n := float64(len(targets))
	for epoch := 0; epoch < trainEpochs; epoch++ {
		var grad [12]float64
		for i, x := range features {
			pred := w[11]
			for j := 0; j < 11; j++ {
				pred += w[j] * x[j]
			}
			residual := pred - targets[i]
			for j := 0; j < 11; j++ {
				grad[j] += residual * x[j]
			}
			grad[11] += residual
		}
		for j := range w {
			w[j] -= trainLearningRate * grad[j] / n
		}
	}
	return w
}

// accuracy reports 1 - MAE/meanAbsTarget, clamped to [0, 1]. A constant
// zero target set scores 0.
func accuracy(features [][11]float64, targets []float64, w [12]float64) float64 {
	var absErr, absTarget float64
	for i, x := range features {
		pred := w[11]
		for j := 0; j < 11; j++ {
			pred += w[j] * x[j]
		}
		absErr += math.Abs(pred - targets[i])
		absTarget += math.Abs(targets[i])
	}
	if absTarget == 0 {
		return 0
	}
	return clamp01(1 - absErr/absTarget)
}

// spreadHorizons distributes a 12-month cumulative total across the
// standard reporting horizons with fixed ramp fractions.
func spreadHorizons(total float64) datatypes.Projection {
	return datatypes.Projection{
		Month1:  round2(total * month1Fraction),
		Month3:  round2(total * month3Fraction),
		Month6:  round2(total * month6Fraction),
		Month12: round2(total),
	}
}
