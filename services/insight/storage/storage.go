// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the persistence interfaces the insight core
// consumes, and ships three implementations:
//
//   - memory: in-process maps, for tests and single-node defaults
//   - badger: embedded BadgerDB for benchmarks, tenants, and predictions
//   - influx: InfluxDB for raw conversion-record time series
//
// The core never performs network I/O itself; everything flows through
// these interfaces so the orchestration layer chooses the backing stores.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ConversionStore supplies raw per-tenant conversion records.
type ConversionStore interface {
	// QueryConversionRecords returns all records matching the segment in
	// [start, end). Dimensions absent from the descriptor are unconstrained.
	QueryConversionRecords(ctx context.Context, seg segment.Descriptor, start, end time.Time) ([]datatypes.ConversionRecord, error)

	// QueryTenantConversionRecords returns one tenant's records in
	// [start, end) across all segments.
	QueryTenantConversionRecords(ctx context.Context, tenantID string, start, end time.Time) ([]datatypes.ConversionRecord, error)
}

// TenantStore supplies the historical tenant corpus for similarity matching
// and prediction.
type TenantStore interface {
	// QueryTenant returns one historical tenant with profile and history.
	// Returns ErrNotFound if the tenant does not exist.
	QueryTenant(ctx context.Context, tenantID string) (datatypes.HistoricalTenant, error)

	// QueryAllTenants returns the full historical corpus.
	QueryAllTenants(ctx context.Context) ([]datatypes.HistoricalTenant, error)

	// QueryCategoryTenantCount returns the number of tenants in a category.
	QueryCategoryTenantCount(ctx context.Context, category string) (int, error)
}

// BenchmarkStore persists aggregated benchmarks. Append-only: there is no
// update or delete, only inserts and history reads.
type BenchmarkStore interface {
	// PersistBenchmark appends a benchmark to its segment history.
	PersistBenchmark(ctx context.Context, b datatypes.AggregatedBenchmark) error

	// QueryBenchmarkHistory returns up to limit benchmarks for the segment
	// key, newest first.
	QueryBenchmarkHistory(ctx context.Context, segmentKey string, limit int) ([]datatypes.AggregatedBenchmark, error)
}

// PredictionStore persists predictions together with the input profile so
// accuracy can be evaluated later against realized tenant histories.
type PredictionStore interface {
	// PersistPrediction stores a prediction and its input.
	PersistPrediction(ctx context.Context, input datatypes.TenantProfile, p datatypes.Prediction) error

	// QueryPrediction returns a stored prediction by ID.
	// Returns ErrNotFound if it does not exist.
	QueryPrediction(ctx context.Context, id string) (datatypes.Prediction, error)
}

// WithRetry runs op, retrying exactly once on failure, and wraps a final
// failure in a datatypes.PersistenceError.
//
// Description:
//
//	One local retry is the whole policy: persistence failures must surface
//	to the caller, never be silently swallowed, and never turn into a
//	retry storm. Context cancellation is not retried.
func WithRetry(ctx context.Context, opName string, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		// Absence is an answer, not a store failure.
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &datatypes.PersistenceError{Op: opName, Err: err}
	}
	if err = op(ctx); err == nil {
		return nil
	}
	return &datatypes.PersistenceError{Op: opName, Err: err}
}
