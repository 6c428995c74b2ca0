// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package insight is the public surface of the analytics core: privacy
// preserving cross-tenant benchmarks and predictive success scores.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianInsight/pkg/validation"
	"github.com/AleutianAI/AleutianInsight/services/insight/aggregate"
	"github.com/AleutianAI/AleutianInsight/services/insight/benchmark"
	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/predict"
	"github.com/AleutianAI/AleutianInsight/services/insight/privacy"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

// Opportunity thresholds.
const (
	// minImprovement filters opportunities to those worth acting on.
	minImprovement = 0.10

	// Priority cut points on relative improvement.
	highImprovement   = 0.50
	mediumImprovement = 0.25
)

// Config configures the insight service.
type Config struct {
	// RequestTimeout bounds every public operation. Default: 30s.
	RequestTimeout time.Duration

	// OpportunityConcurrency bounds parallel per-segment benchmark
	// lookups. Default: 4.
	OpportunityConcurrency int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:         30 * time.Second,
		OpportunityConcurrency: 4,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.OpportunityConcurrency < 1 {
		return fmt.Errorf("opportunity concurrency must be >= 1, got %d", c.OpportunityConcurrency)
	}
	return nil
}

// Service is the orchestrator over the insight core.
//
// Description:
//
//	Wires the aggregator, benchmark store, insight generation, and the
//	prediction engine into the four public operations plus the budget
//	reset. Every operation is wrapped in the request timeout and fails
//	closed: a timeout or cancellation yields an error, never a partial
//	result.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	config      Config
	aggregator  *aggregate.Aggregator
	benchmarks  *benchmark.Store
	engine      *predict.Engine
	ledger      *privacy.Ledger
	conversions storage.ConversionStore
	predictions storage.PredictionStore
	logger      *slog.Logger
}

// New creates the insight service.
func New(
	config Config,
	aggregator *aggregate.Aggregator,
	benchmarks *benchmark.Store,
	engine *predict.Engine,
	ledger *privacy.Ledger,
	conversions storage.ConversionStore,
	predictions storage.PredictionStore,
	logger *slog.Logger,
) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %w", err)
	}
	if aggregator == nil || benchmarks == nil || engine == nil || ledger == nil {
		return nil, errors.New("aggregator, benchmark store, engine, and ledger are required")
	}
	if conversions == nil || predictions == nil {
		return nil, errors.New("conversion and prediction stores are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:      config,
		aggregator:  aggregator,
		benchmarks:  benchmarks,
		engine:      engine,
		ledger:      ledger,
		conversions: conversions,
		predictions: predictions,
		logger:      logger.With(slog.String("component", "insight_service")),
	}, nil
}

// GetConversionInsights aggregates the segment, persists the benchmark, and
// ranks it against the stored history.
//
// Description:
//
//	The percentile rank is computed against the history as it stood
//	before this aggregation, so a segment's first benchmark ranks at the
//	neutral 50 rather than against itself.
//
// Outputs:
//   - datatypes.ConversionInsight: Benchmark, percentile, recommendations.
//   - error: PrivacyError on insufficient data or participants, or a
//     store failure.
func (s *Service) GetConversionInsights(ctx context.Context, seg segment.Descriptor, windowDays int) (datatypes.ConversionInsight, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	prior, err := s.benchmarks.HistoricalValues(ctx, seg.Key(), 0)
	if err != nil {
		return datatypes.ConversionInsight{}, err
	}

	bm, err := s.aggregator.Collect(ctx, seg, windowDays)
	if err != nil {
		return datatypes.ConversionInsight{}, err
	}
	if err := s.benchmarks.Put(ctx, bm); err != nil {
		return datatypes.ConversionInsight{}, err
	}

	percentile := benchmark.PercentileRank(bm.Value, prior)
	return datatypes.ConversionInsight{
		Benchmark:       bm,
		PercentileRank:  percentile,
		Recommendations: benchmark.Recommend(bm.Value, percentile, seg),
	}, nil
}

// GetOptimizationOpportunities compares a tenant's own segment rates to the
// latest stored benchmarks.
//
// Description:
//
//	The tenant's records in the window are grouped by segment; each
//	segment with a stored benchmark history is checked in parallel.
//	Segments where the benchmark beats the tenant's rate by more than 10%
//	become opportunities, sorted by improvement descending. Segments with
//	no stored benchmark yet are skipped: this read path never spends
//	privacy budget to create one.
func (s *Service) GetOptimizationOpportunities(ctx context.Context, tenantID string, windowDays int) ([]datatypes.OptimizationOpportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if err := validation.ValidateTenantID(tenantID); err != nil {
		return nil, &datatypes.ValidationError{Field: "tenant_id", Reason: err.Error(), Err: err}
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	end := time.Now().UTC()
	var records []datatypes.ConversionRecord
	err := storage.WithRetry(ctx, "query_tenant_records", func(ctx context.Context) error {
		var qerr error
		records, qerr = s.conversions.QueryTenantConversionRecords(ctx, tenantID, end.AddDate(0, 0, -windowDays), end)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	type segmentRate struct {
		seg  segment.Descriptor
		rate float64
	}
	bySegment := make(map[string]*segmentRate)
	weights := make(map[string]float64)
	for _, r := range records {
		key := r.Segment.Key()
		if _, ok := bySegment[key]; !ok {
			bySegment[key] = &segmentRate{seg: r.Segment}
		}
		bySegment[key].rate += r.ConversionRate * float64(r.SampleSize)
		weights[key] += float64(r.SampleSize)
	}
	for key, sr := range bySegment {
		if weights[key] > 0 {
			sr.rate /= weights[key]
		}
	}

	var mu sync.Mutex
	var opportunities []datatypes.OptimizationOpportunity

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.OpportunityConcurrency)
	for key, sr := range bySegment {
		g.Go(func() error {
			history, err := s.benchmarks.History(gctx, key, 0)
			if err != nil {
				return err
			}
			if len(history) == 0 || sr.rate <= 0 {
				return nil
			}
			latest := history[0]
			improvement := (latest.Value - sr.rate) / sr.rate
			if improvement <= minImprovement {
				return nil
			}

			values := make([]float64, len(history))
			for i, bm := range history {
				values[i] = bm.Value
			}
			percentile := benchmark.PercentileRank(sr.rate, values)

			mu.Lock()
			opportunities = append(opportunities, datatypes.OptimizationOpportunity{
				Segment:         sr.seg,
				CurrentRate:     sr.rate,
				BenchmarkRate:   latest.Value,
				Improvement:     improvement,
				Priority:        priorityFor(improvement),
				Recommendations: benchmark.Recommend(sr.rate, percentile, sr.seg),
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Improvement > opportunities[j].Improvement
	})
	return opportunities, nil
}

// PredictSiteSuccess predicts outcomes for a prospective tenant and
// persists the result for later accuracy evaluation.
func (s *Service) PredictSiteSuccess(ctx context.Context, profile datatypes.TenantProfile) (datatypes.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	p, err := s.engine.Predict(ctx, profile)
	if err != nil {
		return datatypes.Prediction{}, err
	}

	err = storage.WithRetry(ctx, "persist_prediction", func(ctx context.Context) error {
		return s.predictions.PersistPrediction(ctx, profile, p)
	})
	if err != nil {
		return datatypes.Prediction{}, err
	}

	s.logger.InfoContext(ctx, "prediction persisted",
		slog.String("prediction_id", p.ID),
		slog.String("vocab_version", p.VocabVersion))
	return p, nil
}

// TrainModels fits the configured prediction backend on the historical
// corpus. Reports not-applicable for untrainable backends.
func (s *Service) TrainModels(ctx context.Context) (datatypes.TrainingReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	return s.engine.Train(ctx)
}

// ResetBudgets restores every tenant to the full privacy budget.
// Administrative operation; returns the number of entries cleared.
func (s *Service) ResetBudgets(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cleared := s.ledger.Reset()
	s.logger.WarnContext(ctx, "privacy budgets reset", slog.Int("cleared", cleared))
	return cleared, nil
}

func priorityFor(improvement float64) datatypes.Priority {
	switch {
	case improvement >= highImprovement:
		return datatypes.PriorityHigh
	case improvement >= mediumImprovement:
		return datatypes.PriorityMedium
	default:
		return datatypes.PriorityLow
	}
}
