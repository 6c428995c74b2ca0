// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package benchmark persists aggregated benchmarks and turns them into
// percentile ranks and actionable recommendations.
package benchmark

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/storage"
)

// DefaultHistoryLimit bounds History queries when the caller passes no
// explicit limit.
const DefaultHistoryLimit = 100

// Store is the append-only benchmark history layer.
//
// Description:
//
//	Wraps a storage.BenchmarkStore with the standard one-retry write
//	policy. Benchmarks are never updated or deleted once written; the
//	history for a segment only grows.
//
// Thread Safety: safe for concurrent use when the underlying store is.
type Store struct {
	backend storage.BenchmarkStore
	logger  *slog.Logger
}

// NewStore creates a Store over the given backend.
func NewStore(backend storage.BenchmarkStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		logger:  logger.With(slog.String("component", "benchmark_store")),
	}
}

// Put appends a benchmark to its segment's history.
func (s *Store) Put(ctx context.Context, bm datatypes.AggregatedBenchmark) error {
	err := storage.WithRetry(ctx, "persist_benchmark", func(ctx context.Context) error {
		return s.backend.PersistBenchmark(ctx, bm)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "benchmark persist failed",
			slog.String("segment_key", bm.SegmentKey),
			slog.Any("error", err))
		return err
	}
	s.logger.DebugContext(ctx, "benchmark persisted",
		slog.String("segment_key", bm.SegmentKey),
		slog.Int("participant_count", bm.ParticipantCount))
	return nil
}

// History returns up to limit benchmarks for a segment, newest first. A
// limit of 0 or less uses DefaultHistoryLimit.
func (s *Store) History(ctx context.Context, segmentKey string, limit int) ([]datatypes.AggregatedBenchmark, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var history []datatypes.AggregatedBenchmark
	err := storage.WithRetry(ctx, "query_benchmark_history", func(ctx context.Context) error {
		var qerr error
		history, qerr = s.backend.QueryBenchmarkHistory(ctx, segmentKey, limit)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// HistoricalValues returns just the benchmark values for a segment, newest
// first. Convenience for percentile ranking.
func (s *Store) HistoricalValues(ctx context.Context, segmentKey string, limit int) ([]float64, error) {
	history, err := s.History(ctx, segmentKey, limit)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(history))
	for i, bm := range history {
		values[i] = bm.Value
	}
	return values, nil
}
