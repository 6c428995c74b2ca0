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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// failingBackend always errors.
type failingBackend struct{}

func (failingBackend) Name() string    { return "failing" }
func (failingBackend) Trainable() bool { return true }
func (failingBackend) Predict(context.Context, FeatureVector, []Peer) (Outcome, error) {
	return Outcome{}, errors.New("model unavailable")
}
func (failingBackend) Train(context.Context, []TrainingSample) (datatypes.TrainingReport, error) {
	return datatypes.TrainingReport{Applicable: true, TrainingSampleCount: 7}, nil
}

func TestHeuristicDeterministic(t *testing.T) {
	h := NewHeuristic()
	features := FeatureVector{Expertise: 0.6, Budget: 0.3, TeamSize: 0.2, PeerSuccessMean: 0.5, PeerDensity: 0.4}
	peers := []Peer{{TenantID: "a", RevenueOutcome: 12000}, {TenantID: "b", RevenueOutcome: 24000}}

	first, err := h.Predict(context.Background(), features, peers)
	require.NoError(t, err)
	second, err := h.Predict(context.Background(), features, peers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHeuristicOutcomeShape(t *testing.T) {
	h := NewHeuristic()
	out, err := h.Predict(context.Background(), FeatureVector{Budget: 0.5, Expertise: 1}, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.SuccessProbability, 0.0)
	assert.LessOrEqual(t, out.SuccessProbability, 1.0)

	// Cumulative projections grow across horizons.
	assert.Greater(t, out.Revenue.Month3, out.Revenue.Month1)
	assert.Greater(t, out.Revenue.Month6, out.Revenue.Month3)
	assert.Greater(t, out.Revenue.Month12, out.Revenue.Month6)
	assert.Greater(t, out.Traffic.Month12, out.Traffic.Month6)
}

func TestHeuristicStrongerProfileScoresHigher(t *testing.T) {
	h := NewHeuristic()
	weak, err := h.Predict(context.Background(), FeatureVector{}, nil)
	require.NoError(t, err)
	strong, err := h.Predict(context.Background(), FeatureVector{
		Expertise: 1, Budget: 1, TeamSize: 0.5, ProductCount: 0.5,
		PeerSuccessMean: 0.9, PeerDensity: 1,
	}, nil)
	require.NoError(t, err)

	assert.Greater(t, strong.SuccessProbability, weak.SuccessProbability)
	assert.Greater(t, strong.Revenue.Month12, weak.Revenue.Month12)
}

func TestHeuristicUsesPeerRevenue(t *testing.T) {
	h := NewHeuristic()
	features := FeatureVector{Expertise: 0.6}

	cold, err := h.Predict(context.Background(), features, nil)
	require.NoError(t, err)
	warm, err := h.Predict(context.Background(), features, []Peer{
		{TenantID: "a", RevenueOutcome: 500000},
		{TenantID: "b", RevenueOutcome: 700000},
	})
	require.NoError(t, err)

	assert.Greater(t, warm.Revenue.Month12, cold.Revenue.Month12)
}

func TestHeuristicTrainNotSupported(t *testing.T) {
	h := NewHeuristic()
	assert.False(t, h.Trainable())
	_, err := h.Train(context.Background(), nil)
	assert.ErrorIs(t, err, datatypes.ErrTrainingNotSupported)
}

func TestWithFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	b := WithFallback(NewHeuristic(), failingBackend{}, nil)
	out, err := b.Predict(context.Background(), FeatureVector{Budget: 0.5}, nil)
	require.NoError(t, err)
	assert.Greater(t, out.Revenue.Month12, 0.0)
}

func TestWithFallbackFallsBackOnPrimaryFailure(t *testing.T) {
	b := WithFallback(failingBackend{}, NewHeuristic(), nil)
	out, err := b.Predict(context.Background(), FeatureVector{Budget: 0.5}, nil)
	require.NoError(t, err)
	assert.Greater(t, out.Revenue.Month12, 0.0)
}

func TestWithFallbackDoubleFailureIsModelError(t *testing.T) {
	b := WithFallback(failingBackend{}, failingBackend{}, nil)
	_, err := b.Predict(context.Background(), FeatureVector{}, nil)
	require.Error(t, err)
	assert.True(t, datatypes.IsModelError(err))
}

func TestWithFallbackTrainTargetsPrimary(t *testing.T) {
	b := WithFallback(failingBackend{}, NewHeuristic(), nil)
	assert.True(t, b.Trainable())
	report, err := b.Train(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, report.TrainingSampleCount)
}
