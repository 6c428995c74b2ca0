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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func candidateProfile() datatypes.TenantProfile {
	return datatypes.TenantProfile{
		Category:           "fashion",
		TargetAudience:     "young professionals",
		TeamSize:           4,
		MarketingBudget:    2500,
		InitialProducts:    []string{"dresses", "accessories"},
		TechnicalExpertise: datatypes.ExpertiseIntermediate,
	}
}

// richHistory builds months of revenue and conversion records.
func richHistory(start time.Time, months int, monthlyRevenue float64) []datatypes.TenantHistoryRecord {
	var history []datatypes.TenantHistoryRecord
	for i := 0; i < months; i++ {
		ts := start.AddDate(0, i, 0)
		history = append(history,
			datatypes.TenantHistoryRecord{Type: datatypes.MetricRevenue, Value: monthlyRevenue, Timestamp: ts},
			datatypes.TenantHistoryRecord{Type: datatypes.MetricConversion, Value: 0.035, Timestamp: ts},
			datatypes.TenantHistoryRecord{Type: datatypes.MetricView, Value: 5000, Timestamp: ts},
		)
	}
	return history
}

func seedPeer(store *storage.Memory, id string, monthlyRevenue float64) {
	store.AddTenants(datatypes.HistoricalTenant{
		ID: id,
		Profile: datatypes.TenantProfile{
			Category:        "fashion",
			TargetAudience:  "young professionals",
			TeamSize:        5,
			MarketingBudget: 3000,
		},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		History:   richHistory(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 6, monthlyRevenue),
	})
}

func newTestEngine(t *testing.T, store *storage.Memory, backend Backend) *Engine {
	t.Helper()
	if backend == nil {
		backend = NewHeuristic()
	}
	e, err := NewEngine(DefaultEngineConfig(), testVocab(t), backend, store, nil)
	require.NoError(t, err)
	e.now = func() time.Time { return testNow }
	return e
}

func TestPredictRejectsInvalidProfile(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory(), nil)

	tests := []struct {
		name   string
		mutate func(*datatypes.TenantProfile)
	}{
		{"missing category", func(p *datatypes.TenantProfile) { p.Category = "" }},
		{"missing audience", func(p *datatypes.TenantProfile) { p.TargetAudience = "" }},
		{"zero team size", func(p *datatypes.TenantProfile) { p.TeamSize = 0 }},
		{"negative budget", func(p *datatypes.TenantProfile) { p.MarketingBudget = -1 }},
		{"no products", func(p *datatypes.TenantProfile) { p.InitialProducts = nil }},
		{"bad expertise", func(p *datatypes.TenantProfile) { p.TechnicalExpertise = "wizard" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := candidateProfile()
			tc.mutate(&p)
			_, err := e.Predict(context.Background(), p)
			require.Error(t, err)
			assert.True(t, datatypes.IsValidationError(err))
		})
	}
}

func TestPredictTwoPeersFailsClosed(t *testing.T) {
	store := storage.NewMemory()
	seedPeer(store, "peer-1", 1200)
	seedPeer(store, "peer-2", 900)
	e := newTestEngine(t, store, nil)

	_, err := e.Predict(context.Background(), candidateProfile())
	require.Error(t, err)
	assert.True(t, datatypes.IsModelError(err))
	assert.ErrorIs(t, err, datatypes.ErrInsufficientSimilarTenants)
}

// failingTenantStore fails every corpus read, counting attempts.
type failingTenantStore struct {
	storage.TenantStore
	calls int
}

func (f *failingTenantStore) QueryAllTenants(ctx context.Context) ([]datatypes.HistoricalTenant, error) {
	f.calls++
	return nil, errors.New("store unavailable")
}

func TestPredictStoreFailureIsPersistenceError(t *testing.T) {
	store := &failingTenantStore{}
	e, err := NewEngine(DefaultEngineConfig(), testVocab(t), NewHeuristic(), store, nil)
	require.NoError(t, err)
	e.now = func() time.Time { return testNow }

	_, err = e.Predict(context.Background(), candidateProfile())
	require.Error(t, err)
	assert.True(t, datatypes.IsPersistenceError(err))
	assert.Equal(t, 2, store.calls, "one retry before giving up")
}

func TestPredictDisqualifiesYoungAndThinPeers(t *testing.T) {
	store := storage.NewMemory()
	seedPeer(store, "peer-1", 1200)
	seedPeer(store, "peer-2", 900)

	// Younger than 90 days: never a peer, even with a rich history.
	store.AddTenants(datatypes.HistoricalTenant{
		ID:        "too-young",
		Profile:   candidateProfile(),
		CreatedAt: testNow.AddDate(0, 0, -30),
		History:   richHistory(testNow.AddDate(0, -6, 0), 6, 1000),
	})
	// Old enough but with a thin history.
	store.AddTenants(datatypes.HistoricalTenant{
		ID:        "thin-history",
		Profile:   candidateProfile(),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		History:   richHistory(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 2, 1000),
	})

	e := newTestEngine(t, store, nil)
	_, err := e.Predict(context.Background(), candidateProfile())
	assert.ErrorIs(t, err, datatypes.ErrInsufficientSimilarTenants)
}

func TestPredictHappyPath(t *testing.T) {
	store := storage.NewMemory()
	seedPeer(store, "peer-1", 1500)
	seedPeer(store, "peer-2", 1100)
	seedPeer(store, "peer-3", 2000)
	e := newTestEngine(t, store, nil)

	p, err := e.Predict(context.Background(), candidateProfile())
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, e.VocabVersion(), p.VocabVersion)
	assert.NotZero(t, p.CreatedAt)

	assert.GreaterOrEqual(t, p.SuccessProbability, 0.0)
	assert.LessOrEqual(t, p.SuccessProbability, 1.0)
	assert.Greater(t, p.PredictedRevenue.Month12, 0.0)
	assert.Greater(t, p.PredictedTraffic.Month12, 0.0)

	// Peers with steady six-month revenue clear the success reporting bar.
	assert.ElementsMatch(t, []string{"peer-1", "peer-2", "peer-3"}, p.SimilarSuccessfulTenants)

	assert.NotEmpty(t, p.RecommendedStrategies)
	assert.Contains(t, p.RecommendedStrategies, "Start from the playbooks of similar successful tenants")
}

func TestPredictConfidenceIntervalNeverNegative(t *testing.T) {
	store := storage.NewMemory()
	// Wildly spread peer outcomes force 1.96·stddev past the point estimate.
	seedPeer(store, "peer-1", 10)
	seedPeer(store, "peer-2", 50000)
	seedPeer(store, "peer-3", 20)
	e := newTestEngine(t, store, nil)

	p, err := e.Predict(context.Background(), candidateProfile())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, p.ConfidenceIntervals.Revenue.Low, 0.0)
	assert.GreaterOrEqual(t, p.ConfidenceIntervals.Traffic.Low, 0.0)
	assert.GreaterOrEqual(t, p.ConfidenceIntervals.Revenue.High, p.ConfidenceIntervals.Revenue.Low)
	assert.GreaterOrEqual(t, p.ConfidenceIntervals.Traffic.High, p.ConfidenceIntervals.Traffic.Low)
}

func TestIntervalWithoutOutcomesIsHalfPoint(t *testing.T) {
	iv := interval(1000, nil)
	assert.Equal(t, 500.0, iv.Low)
	assert.Equal(t, 1500.0, iv.High)
}

func TestTrainNotApplicableForHeuristic(t *testing.T) {
	e := newTestEngine(t, storage.NewMemory(), nil)
	report, err := e.Train(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Applicable)
}

func TestTrainFitsLinearBackend(t *testing.T) {
	store := storage.NewMemory()
	for i := 0; i < 12; i++ {
		seedPeer(store, string(rune('a'+i)), 500+200*float64(i))
	}
	e := newTestEngine(t, store, NewLinear())

	report, err := e.Train(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Applicable)
	assert.Equal(t, 12, report.TrainingSampleCount)
	assert.NotEmpty(t, report.AccuracyByMetric)
}
