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
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/similarity"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

// EngineConfig configures peer selection and interval construction.
type EngineConfig struct {
	// MinSimilarity is the exclusive similarity threshold for peers.
	// Default: 0.3.
	MinSimilarity float64

	// MinPeerAge is how old a historical tenant must be to qualify as a
	// peer. Default: 90 days.
	MinPeerAge time.Duration

	// MinPeerHistory is the minimum history record count for a peer.
	// Default: 10.
	MinPeerHistory int

	// MinPeers is the qualifying-peer floor below which prediction fails.
	// Default: 3.
	MinPeers int

	// SuccessReportThreshold is the success score above which a peer is
	// listed in SimilarSuccessfulTenants. Default: 0.5.
	SuccessReportThreshold float64
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinSimilarity:          0.3,
		MinPeerAge:             90 * 24 * time.Hour,
		MinPeerHistory:         10,
		MinPeers:               3,
		SuccessReportThreshold: 0.5,
	}
}

// Validate checks if the configuration is valid.
func (c *EngineConfig) Validate() error {
	if c.MinSimilarity < 0 || c.MinSimilarity >= 1 {
		return fmt.Errorf("min similarity must be in [0, 1), got %v", c.MinSimilarity)
	}
	if c.MinPeerAge < 0 {
		return fmt.Errorf("min peer age must be >= 0, got %v", c.MinPeerAge)
	}
	if c.MinPeerHistory < 1 {
		return fmt.Errorf("min peer history must be >= 1, got %d", c.MinPeerHistory)
	}
	if c.MinPeers < 3 {
		return fmt.Errorf("min peers must be >= 3, got %d", c.MinPeers)
	}
	if c.SuccessReportThreshold < 0 || c.SuccessReportThreshold > 1 {
		return fmt.Errorf("success report threshold must be in [0, 1], got %v", c.SuccessReportThreshold)
	}
	return nil
}

// Engine turns a prospective tenant profile into a full Prediction.
//
// Description:
//
//	The pipeline validates the profile, selects qualifying peers from the
//	historical tenant corpus, encodes the feature vector through the fixed
//	vocabularies, delegates numbers to the configured backend, and wraps
//	the result with confidence intervals and rule-based guidance. It fails
//	closed below the three-peer floor.
//
// Thread Safety: Safe for concurrent use.
type Engine struct {
	config  EngineConfig
	vocab   *Vocab
	backend Backend
	tenants storage.TenantStore
	logger  *slog.Logger

	validate *validator.Validate

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(config EngineConfig, vocab *Vocab, backend Backend, tenants storage.TenantStore, logger *slog.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if vocab == nil || backend == nil || tenants == nil {
		return nil, errors.New("vocab, backend, and tenant store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:   config,
		vocab:    vocab,
		backend:  backend,
		tenants:  tenants,
		logger:   logger.With(slog.String("component", "prediction_engine")),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}, nil
}

// VocabVersion returns the active encoder vocabulary version.
func (e *Engine) VocabVersion() string { return e.vocab.Version }

// Predict produces a full prediction for a candidate profile.
//
// Outputs:
//   - datatypes.Prediction: Complete, never partial.
//   - error: ValidationError on bad input, ModelError wrapping
//     ErrInsufficientSimilarTenants below the peer floor, or a backend or
//     store failure.
func (e *Engine) Predict(ctx context.Context, profile datatypes.TenantProfile) (datatypes.Prediction, error) {
	if err := e.validateProfile(profile); err != nil {
		return datatypes.Prediction{}, err
	}

	peers, err := e.selectPeers(ctx, profile)
	if err != nil {
		return datatypes.Prediction{}, err
	}
	if len(peers) < e.config.MinPeers {
		e.logger.InfoContext(ctx, "prediction refused below peer floor",
			slog.Int("peers", len(peers)),
			slog.Int("floor", e.config.MinPeers))
		return datatypes.Prediction{}, &datatypes.ModelError{
			Backend: e.backend.Name(),
			Err:     datatypes.ErrInsufficientSimilarTenants,
		}
	}

	stats := peerStats(peers)
	var categoryCount int
	err = storage.WithRetry(ctx, "query_category_tenant_count", func(ctx context.Context) error {
		var qerr error
		categoryCount, qerr = e.tenants.QueryCategoryTenantCount(ctx, profile.Category)
		return qerr
	})
	if err != nil {
		return datatypes.Prediction{}, err
	}
	features := BuildFeatures(e.vocab, profile, stats, categoryCount)

	outcome, err := e.backend.Predict(ctx, features, peers)
	if err != nil {
		var me *datatypes.ModelError
		if !errors.As(err, &me) {
			err = &datatypes.ModelError{Backend: e.backend.Name(), Err: err}
		}
		return datatypes.Prediction{}, err
	}

	var successfulPeers []string
	for _, p := range peers {
		if p.SuccessScore > e.config.SuccessReportThreshold {
			successfulPeers = append(successfulPeers, p.TenantID)
		}
	}

	return datatypes.Prediction{
		ID:                 uuid.NewString(),
		VocabVersion:       e.vocab.Version,
		PredictedRevenue:   outcome.Revenue,
		PredictedTraffic:   outcome.Traffic,
		SuccessProbability: outcome.SuccessProbability,

		RiskFactors:           RiskFactors(profile, stats),
		GrowthOpportunities:   GrowthOpportunities(profile, stats, features.Competitiveness),
		RecommendedStrategies: RecommendedStrategies(profile),

		SimilarSuccessfulTenants: successfulPeers,
		ConfidenceIntervals: datatypes.ConfidenceIntervals{
			Revenue: interval(outcome.Revenue.Month12, revenueOutcomes(peers)),
			Traffic: interval(outcome.Traffic.Month12, trafficOutcomes(peers)),
		},
		CreatedAt: e.now().UTC().UnixMilli(),
	}, nil
}

// Train fits the backend on the full historical tenant corpus.
//
// Description:
//
//	With an untrainable backend this is a no-op reporting Applicable
//	false, not an error: asking a heuristic deployment to train is an
//	expected admin action, not a fault.
func (e *Engine) Train(ctx context.Context) (datatypes.TrainingReport, error) {
	if !e.backend.Trainable() {
		return datatypes.TrainingReport{Applicable: false}, nil
	}

	var tenants []datatypes.HistoricalTenant
	err := storage.WithRetry(ctx, "query_tenants_for_training", func(ctx context.Context) error {
		var qerr error
		tenants, qerr = e.tenants.QueryAllTenants(ctx)
		return qerr
	})
	if err != nil {
		return datatypes.TrainingReport{}, err
	}

	var samples []TrainingSample
	for _, t := range tenants {
		if len(t.History) < e.config.MinPeerHistory {
			continue
		}
		score := similarity.SuccessScore(t.History)
		var categoryCount int
		err := storage.WithRetry(ctx, "query_category_tenant_count", func(ctx context.Context) error {
			var qerr error
			categoryCount, qerr = e.tenants.QueryCategoryTenantCount(ctx, t.Profile.Category)
			return qerr
		})
		if err != nil {
			return datatypes.TrainingReport{}, err
		}
		samples = append(samples, TrainingSample{
			Features:  BuildFeatures(e.vocab, t.Profile, PeerStats{}, categoryCount),
			Revenue:   similarity.CumulativeRevenue(t.History),
			Traffic:   cumulativeViews(t.History),
			Succeeded: score >= e.config.SuccessReportThreshold,
		})
	}

	report, err := e.backend.Train(ctx, samples)
	if err != nil {
		return datatypes.TrainingReport{}, err
	}
	e.logger.InfoContext(ctx, "backend trained",
		slog.String("backend", e.backend.Name()),
		slog.Int("samples", report.TrainingSampleCount))
	return report, nil
}

// validateProfile maps validator/v10 failures onto the ValidationError
// taxonomy.
func (e *Engine) validateProfile(profile datatypes.TenantProfile) error {
	err := e.validate.Struct(profile)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &datatypes.ValidationError{
			Field:  first.Field(),
			Reason: fmt.Sprintf("failed %q constraint", first.Tag()),
			Err:    err,
		}
	}
	return &datatypes.ValidationError{Reason: "invalid profile", Err: err}
}

// selectPeers scans the historical corpus for qualifying peers.
func (e *Engine) selectPeers(ctx context.Context, profile datatypes.TenantProfile) ([]Peer, error) {
	var tenants []datatypes.HistoricalTenant
	err := storage.WithRetry(ctx, "query_tenants", func(ctx context.Context) error {
		var qerr error
		tenants, qerr = e.tenants.QueryAllTenants(ctx)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	var peers []Peer
	for _, t := range tenants {
		if t.Age(now) <= e.config.MinPeerAge {
			continue
		}
		if len(t.History) < e.config.MinPeerHistory {
			continue
		}
		sim := similarity.Score(profile, t.Profile)
		if sim <= e.config.MinSimilarity {
			continue
		}
		peers = append(peers, Peer{
			TenantID:       t.ID,
			Similarity:     sim,
			SuccessScore:   similarity.SuccessScore(t.History),
			RevenueOutcome: similarity.CumulativeRevenue(t.History),
			TrafficOutcome: cumulativeViews(t.History),
		})
	}
	return peers, nil
}

func peerStats(peers []Peer) PeerStats {
	if len(peers) == 0 {
		return PeerStats{}
	}
	var sum float64
	for _, p := range peers {
		sum += p.SuccessScore
	}
	return PeerStats{
		Count:            len(peers),
		MeanSuccessScore: sum / float64(len(peers)),
	}
}

func revenueOutcomes(peers []Peer) []float64 {
	var out []float64
	for _, p := range peers {
		if p.RevenueOutcome > 0 {
			out = append(out, p.RevenueOutcome)
		}
	}
	return out
}

func trafficOutcomes(peers []Peer) []float64 {
	var out []float64
	for _, p := range peers {
		if p.TrafficOutcome > 0 {
			out = append(out, p.TrafficOutcome)
		}
	}
	return out
}

// interval builds the confidence interval around a point estimate.
//
// Description:
//
//	point ± 1.96·stddev of peer outcomes; ±50% of the point when no peer
//	outcome data exists. The lower bound is floored at zero: a negative
//	revenue or traffic bound is meaningless.
func interval(point float64, outcomes []float64) datatypes.Interval {
	if len(outcomes) == 0 {
		return datatypes.Interval{
			Low:  math.Max(0, round2(point*0.5)),
			High: round2(point * 1.5),
		}
	}

	var sum float64
	for _, v := range outcomes {
		sum += v
	}
	mean := sum / float64(len(outcomes))
	var variance float64
	for _, v := range outcomes {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(outcomes))
	margin := 1.96 * math.Sqrt(variance)

	return datatypes.Interval{
		Low:  math.Max(0, round2(point-margin)),
		High: round2(point + margin),
	}
}

// cumulativeViews sums all view observations in a history.
func cumulativeViews(history []datatypes.TenantHistoryRecord) float64 {
	var total float64
	for _, r := range history {
		if r.Type == datatypes.MetricView {
			total += r.Value
		}
	}
	return total
}
