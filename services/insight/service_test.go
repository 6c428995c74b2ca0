// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianInsight/services/insight/aggregate"
	"github.com/AleutianAI/AleutianInsight/services/insight/benchmark"
	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/predict"
	"github.com/AleutianAI/AleutianInsight/services/insight/privacy"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

var (
	landingMobile  = segment.Descriptor{PageType: "landing", DeviceType: "mobile"}
	landingDesktop = segment.Descriptor{PageType: "landing", DeviceType: "desktop"}
)

type testStack struct {
	service *Service
	store   *storage.Memory
	ledger  *privacy.Ledger
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	store := storage.NewMemory()

	ledger, err := privacy.NewLedger(privacy.DefaultLedgerConfig())
	require.NoError(t, err)

	aggregator, err := aggregate.New(aggregate.DefaultConfig(), ledger,
		privacy.NewSeededNoiseInjector(99), store, nil)
	require.NoError(t, err)

	vocab, err := predict.LoadVocab()
	require.NoError(t, err)
	engine, err := predict.NewEngine(predict.DefaultEngineConfig(), vocab,
		predict.NewHeuristic(), store, nil)
	require.NoError(t, err)

	service, err := New(DefaultConfig(), aggregator, benchmark.NewStore(store, nil),
		engine, ledger, store, store, nil)
	require.NoError(t, err)

	return &testStack{service: service, store: store, ledger: ledger}
}

// seedSegmentRecords loads recent records for five tenants in a segment.
func seedSegmentRecords(store *storage.Memory, seg segment.Descriptor, rates []float64) {
	ts := time.Now().UTC().Add(-24 * time.Hour)
	for i, rate := range rates {
		store.AddConversionRecords(datatypes.ConversionRecord{
			TenantID:       string(rune('a' + i)),
			Segment:        seg,
			ConversionRate: rate,
			SampleSize:     120,
			Timestamp:      ts,
		})
	}
}

func TestGetConversionInsights(t *testing.T) {
	stack := newTestStack(t)
	seedSegmentRecords(stack.store, landingMobile, []float64{0.02, 0.03, 0.025, 0.018, 0.04})

	insight, err := stack.service.GetConversionInsights(context.Background(), landingMobile, 30)
	require.NoError(t, err)

	assert.Equal(t, 5, insight.Benchmark.ParticipantCount)
	assert.Equal(t, landingMobile.Key(), insight.Benchmark.SegmentKey)
	// First benchmark for a segment ranks at the neutral default.
	assert.Equal(t, 50.0, insight.PercentileRank)
	assert.NotEmpty(t, insight.Recommendations)

	// The benchmark was persisted for future ranking.
	history, err := stack.store.QueryBenchmarkHistory(context.Background(), landingMobile.Key(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGetConversionInsightsFailsClosedOnThinData(t *testing.T) {
	stack := newTestStack(t)
	seedSegmentRecords(stack.store, landingMobile, []float64{0.02, 0.03})

	_, err := stack.service.GetConversionInsights(context.Background(), landingMobile, 30)
	require.Error(t, err)
	assert.True(t, datatypes.IsPrivacyError(err))
	assert.ErrorIs(t, err, datatypes.ErrInsufficientParticipants)

	// Nothing was persisted for the refused segment.
	history, herr := stack.store.QueryBenchmarkHistory(context.Background(), landingMobile.Key(), 0)
	require.NoError(t, herr)
	assert.Empty(t, history)
}

func TestGetOptimizationOpportunities(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	ts := time.Now().UTC().Add(-24 * time.Hour)

	// The tenant underperforms on mobile, slightly trails on desktop.
	stack.store.AddConversionRecords(
		datatypes.ConversionRecord{TenantID: "tenant-x", Segment: landingMobile, ConversionRate: 0.01, SampleSize: 100, Timestamp: ts},
		datatypes.ConversionRecord{TenantID: "tenant-x", Segment: landingDesktop, ConversionRate: 0.029, SampleSize: 100, Timestamp: ts},
	)
	require.NoError(t, stack.store.PersistBenchmark(ctx, datatypes.AggregatedBenchmark{
		ID: "bm-m", SegmentKey: landingMobile.Key(), Value: 0.03, ParticipantCount: 5,
		CreatedAt: time.Now().UnixMilli(),
	}))
	require.NoError(t, stack.store.PersistBenchmark(ctx, datatypes.AggregatedBenchmark{
		ID: "bm-d", SegmentKey: landingDesktop.Key(), Value: 0.03, ParticipantCount: 5,
		CreatedAt: time.Now().UnixMilli(),
	}))

	opps, err := stack.service.GetOptimizationOpportunities(ctx, "tenant-x", 30)
	require.NoError(t, err)

	// Desktop misses the >10% improvement bar (0.03 vs 0.029); only mobile
	// qualifies.
	require.Len(t, opps, 1)
	assert.Equal(t, landingMobile, opps[0].Segment)
	assert.InDelta(t, 0.01, opps[0].CurrentRate, 1e-9)
	assert.InDelta(t, 0.03, opps[0].BenchmarkRate, 1e-9)
	assert.InDelta(t, 2.0, opps[0].Improvement, 1e-9)
	assert.Equal(t, datatypes.PriorityHigh, opps[0].Priority)
	assert.NotEmpty(t, opps[0].Recommendations)
}

func TestGetOptimizationOpportunitiesSortedDescending(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	ts := time.Now().UTC().Add(-24 * time.Hour)

	stack.store.AddConversionRecords(
		datatypes.ConversionRecord{TenantID: "tenant-x", Segment: landingMobile, ConversionRate: 0.005, SampleSize: 100, Timestamp: ts},
		datatypes.ConversionRecord{TenantID: "tenant-x", Segment: landingDesktop, ConversionRate: 0.02, SampleSize: 100, Timestamp: ts},
	)
	for _, seg := range []segment.Descriptor{landingMobile, landingDesktop} {
		require.NoError(t, stack.store.PersistBenchmark(ctx, datatypes.AggregatedBenchmark{
			ID: "bm-" + seg.Key(), SegmentKey: seg.Key(), Value: 0.03, ParticipantCount: 4,
			CreatedAt: time.Now().UnixMilli(),
		}))
	}

	opps, err := stack.service.GetOptimizationOpportunities(ctx, "tenant-x", 30)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Greater(t, opps[0].Improvement, opps[1].Improvement)
	assert.Equal(t, landingMobile, opps[0].Segment)
}

func TestGetOptimizationOpportunitiesRejectsBadTenantID(t *testing.T) {
	stack := newTestStack(t)
	_, err := stack.service.GetOptimizationOpportunities(context.Background(), `x" or true`, 30)
	require.Error(t, err)
	assert.True(t, datatypes.IsValidationError(err))
}

func TestPredictSiteSuccessPersists(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	created := time.Now().UTC().AddDate(0, -8, 0)
	for _, id := range []string{"p1", "p2", "p3"} {
		var history []datatypes.TenantHistoryRecord
		for i := 0; i < 6; i++ {
			ts := created.AddDate(0, i, 0)
			history = append(history,
				datatypes.TenantHistoryRecord{Type: datatypes.MetricRevenue, Value: 1200, Timestamp: ts},
				datatypes.TenantHistoryRecord{Type: datatypes.MetricConversion, Value: 0.03, Timestamp: ts},
			)
		}
		stack.store.AddTenants(datatypes.HistoricalTenant{
			ID: id,
			Profile: datatypes.TenantProfile{
				Category: "fashion", TargetAudience: "young professionals",
				TeamSize: 5, MarketingBudget: 3000,
			},
			CreatedAt: created,
			History:   history,
		})
	}

	p, err := stack.service.PredictSiteSuccess(ctx, datatypes.TenantProfile{
		Category:           "fashion",
		TargetAudience:     "young professionals",
		TeamSize:           4,
		MarketingBudget:    2500,
		InitialProducts:    []string{"dresses"},
		TechnicalExpertise: datatypes.ExpertiseIntermediate,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	stored, err := stack.store.QueryPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestPredictSiteSuccessValidationError(t *testing.T) {
	stack := newTestStack(t)
	_, err := stack.service.PredictSiteSuccess(context.Background(), datatypes.TenantProfile{})
	require.Error(t, err)
	assert.True(t, datatypes.IsValidationError(err))
}

func TestTrainModelsNotApplicable(t *testing.T) {
	stack := newTestStack(t)
	report, err := stack.service.TrainModels(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Applicable)
}

func TestResetBudgets(t *testing.T) {
	stack := newTestStack(t)
	stack.ledger.Consume("a", 0.5)
	stack.ledger.Consume("b", 0.5)

	cleared, err := stack.service.ResetBudgets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 1.0, stack.ledger.Remaining("a"))
}
