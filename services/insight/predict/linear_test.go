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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// syntheticSamples builds a corpus where budget drives revenue.
func syntheticSamples(n int) []TrainingSample {
	samples := make([]TrainingSample, n)
	for i := range samples {
		budget := float64(i) / float64(n-1)
		samples[i] = TrainingSample{
			Features:  FeatureVector{Budget: budget, Expertise: 0.6},
			Revenue:   1000 + 40000*budget,
			Traffic:   20000 + 800000*budget,
			Succeeded: budget > 0.5,
		}
	}
	return samples
}

func TestLinearPredictBeforeTrainRefuses(t *testing.T) {
	l := NewLinear()
	_, err := l.Predict(context.Background(), FeatureVector{}, nil)
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestLinearTrainTooFewSamples(t *testing.T) {
	l := NewLinear()
	_, err := l.Train(context.Background(), syntheticSamples(5))
	require.Error(t, err)
	assert.True(t, datatypes.IsModelError(err))
	assert.ErrorIs(t, err, datatypes.ErrInsufficientData)
}

func TestLinearTrainThenPredict(t *testing.T) {
	l := NewLinear()
	report, err := l.Train(context.Background(), syntheticSamples(40))
	require.NoError(t, err)

	assert.True(t, report.Applicable)
	assert.Equal(t, 40, report.TrainingSampleCount)
	for _, metric := range []string{"revenue", "traffic", "success"} {
		acc, ok := report.AccuracyByMetric[metric]
		assert.True(t, ok, metric)
		assert.GreaterOrEqual(t, acc, 0.0)
		assert.LessOrEqual(t, acc, 1.0)
	}

	low, err := l.Predict(context.Background(), FeatureVector{Budget: 0.1, Expertise: 0.6}, nil)
	require.NoError(t, err)
	high, err := l.Predict(context.Background(), FeatureVector{Budget: 0.9, Expertise: 0.6}, nil)
	require.NoError(t, err)

	// The fitted model must recover the budget-revenue relationship.
	assert.Greater(t, high.Revenue.Month12, low.Revenue.Month12)
	assert.Greater(t, high.Traffic.Month12, low.Traffic.Month12)
	assert.GreaterOrEqual(t, high.SuccessProbability, low.SuccessProbability)

	// Projections are non-negative and horizon-ordered.
	assert.GreaterOrEqual(t, low.Revenue.Month1, 0.0)
	assert.GreaterOrEqual(t, high.Revenue.Month12, high.Revenue.Month6)
}

func TestLinearTrainDeterministic(t *testing.T) {
	a, b := NewLinear(), NewLinear()
	samples := syntheticSamples(30)

	reportA, err := a.Train(context.Background(), samples)
	require.NoError(t, err)
	reportB, err := b.Train(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, reportA, reportB)

	outA, err := a.Predict(context.Background(), FeatureVector{Budget: 0.4}, nil)
	require.NoError(t, err)
	outB, err := b.Predict(context.Background(), FeatureVector{Budget: 0.4}, nil)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}
