// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate builds privacy-preserving cross-tenant conversion
// benchmarks from raw per-tenant records.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/privacy"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

// minParticipants is the hard privacy floor on distinct contributing
// tenants. Not configurable: no deployment may relax it.
const minParticipants = 3

// Config configures the conversion aggregator.
type Config struct {
	// MinDataPoints is the minimum total sample size across raw records in
	// the window before an aggregation is attempted. Default: 50.
	MinDataPoints int

	// Epsilon is the differential-privacy parameter for the injected
	// noise. Smaller epsilon, more noise. Default: 0.1.
	Epsilon float64

	// Sensitivity is the maximum change one participant can cause in the
	// aggregate. Default: 1.0.
	Sensitivity float64

	// WindowDays is the default lookback window when the caller passes
	// none. Default: 30.
	WindowDays int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinDataPoints: 50,
		Epsilon:       0.1,
		Sensitivity:   1.0,
		WindowDays:    30,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MinDataPoints < 1 {
		return fmt.Errorf("min data points must be >= 1, got %d", c.MinDataPoints)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", c.Epsilon)
	}
	if c.Sensitivity <= 0 {
		return fmt.Errorf("sensitivity must be positive, got %v", c.Sensitivity)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("window days must be >= 1, got %d", c.WindowDays)
	}
	return nil
}

// Aggregator computes noisy cross-tenant conversion benchmarks.
//
// Description:
//
//	The pipeline fetches raw records for a segment and window, groups them
//	by tenant, drops tenants without privacy budget, spends budget for the
//	rest, and perturbs the resulting mean with Laplace noise. It fails
//	closed: below the data minimum or the three-tenant participant floor
//	the caller gets an error, never a degraded benchmark.
//
// Thread Safety: Safe for concurrent use. The ledger serializes budget
// spends per tenant; everything else here is stateless per call.
type Aggregator struct {
	config Config
	ledger *privacy.Ledger
	noise  *privacy.NoiseInjector
	store  storage.ConversionStore
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates an Aggregator.
func New(config Config, ledger *privacy.Ledger, noise *privacy.NoiseInjector, store storage.ConversionStore, logger *slog.Logger) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregator config: %w", err)
	}
	if ledger == nil || noise == nil || store == nil {
		return nil, errors.New("ledger, noise injector, and store are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		config: config,
		ledger: ledger,
		noise:  noise,
		store:  store,
		logger: logger.With(slog.String("component", "aggregator")),
		now:    time.Now,
	}, nil
}

// Collect computes the noisy benchmark for a segment over a lookback
// window.
//
// Description:
//
//	Per-tenant rates are sample-size weighted, so a tenant reporting many
//	small windows counts the same as one reporting a single big one. The
//	cross-tenant mean is then unweighted: each tenant contributes equally
//	regardless of traffic volume, bounding any single tenant's influence
//	at 1/participantCount before noise is even added.
//
// Outputs:
//   - datatypes.AggregatedBenchmark: The noisy aggregate. Never partial.
//   - error: PrivacyError wrapping ErrInsufficientData or
//     ErrInsufficientParticipants, or a store failure.
func (a *Aggregator) Collect(ctx context.Context, seg segment.Descriptor, windowDays int) (datatypes.AggregatedBenchmark, error) {
	if windowDays <= 0 {
		windowDays = a.config.WindowDays
	}
	end := a.now().UTC()
	start := end.AddDate(0, 0, -windowDays)
	key := seg.Key()

	var records []datatypes.ConversionRecord
	err := storage.WithRetry(ctx, "query_conversion_records", func(ctx context.Context) error {
		var qerr error
		records, qerr = a.store.QueryConversionRecords(ctx, seg, start, end)
		return qerr
	})
	if err != nil {
		aggregationRuns.WithLabelValues(statusStoreError).Inc()
		return datatypes.AggregatedBenchmark{}, err
	}

	rawSamples := 0
	for _, r := range records {
		rawSamples += r.SampleSize
	}
	if rawSamples < a.config.MinDataPoints {
		aggregationRuns.WithLabelValues(statusInsufficientData).Inc()
		return datatypes.AggregatedBenchmark{}, &datatypes.PrivacyError{
			SegmentKey: key,
			Got:        rawSamples,
			Want:       a.config.MinDataPoints,
			Err:        datatypes.ErrInsufficientData,
		}
	}

	byTenant := make(map[string][]datatypes.ConversionRecord)
	for _, r := range records {
		byTenant[r.TenantID] = append(byTenant[r.TenantID], r)
	}

	// Deterministic tenant order so budget spends do not depend on map
	// iteration.
	tenantIDs := make([]string, 0, len(byTenant))
	for id := range byTenant {
		tenantIDs = append(tenantIDs, id)
	}
	sort.Strings(tenantIDs)

	var tenantMeans []float64
	totalSamples := 0
	for _, id := range tenantIDs {
		// The spend is atomic with the budget check: a tenant at or below
		// the reserve is excluded entirely, with no partial consumption.
		if _, ok := a.ledger.TryConsume(id, a.config.Epsilon); !ok {
			excludedTenants.WithLabelValues(reasonNoBudget).Inc()
			a.logger.DebugContext(ctx, "tenant excluded from aggregation",
				slog.String("segment_key", key),
				slog.String("reason", reasonNoBudget))
			continue
		}
		mean, samples := weightedMean(byTenant[id])
		tenantMeans = append(tenantMeans, mean)
		totalSamples += samples
	}

	if len(tenantMeans) < minParticipants {
		aggregationRuns.WithLabelValues(statusInsufficientParticipants).Inc()
		a.logger.WarnContext(ctx, "aggregation below participant floor",
			slog.String("segment_key", key),
			slog.Int("eligible", len(tenantMeans)))
		return datatypes.AggregatedBenchmark{}, &datatypes.PrivacyError{
			SegmentKey: key,
			Got:        len(tenantMeans),
			Want:       minParticipants,
			Err:        datatypes.ErrInsufficientParticipants,
		}
	}

	var sum float64
	for _, m := range tenantMeans {
		sum += m
	}
	trueMean := sum / float64(len(tenantMeans))

	noisy := a.noise.ApplyPrivacy(trueMean, a.config.Epsilon, a.config.Sensitivity)
	confidence := a.noise.ConfidenceLevel(len(tenantMeans), totalSamples, math.Abs(noisy-trueMean))

	aggregationRuns.WithLabelValues(statusSuccess).Inc()
	participantCounts.Observe(float64(len(tenantMeans)))
	a.logger.InfoContext(ctx, "aggregation complete",
		slog.String("segment_key", key),
		slog.Int("participant_count", len(tenantMeans)),
		slog.Int("total_samples", totalSamples))

	return datatypes.AggregatedBenchmark{
		ID:               uuid.NewString(),
		SegmentKey:       key,
		Value:            noisy,
		ParticipantCount: len(tenantMeans),
		ConfidenceLevel:  confidence,
		CreatedAt:        a.now().UTC().UnixMilli(),
	}, nil
}

// weightedMean computes the sample-size-weighted mean rate over one
// tenant's records and the total sample count behind it.
func weightedMean(records []datatypes.ConversionRecord) (float64, int) {
	var weighted float64
	samples := 0
	for _, r := range records {
		if r.SampleSize < 1 {
			continue
		}
		weighted += r.ConversionRate * float64(r.SampleSize)
		samples += r.SampleSize
	}
	if samples == 0 {
		return 0, 0
	}
	return weighted / float64(samples), samples
}
