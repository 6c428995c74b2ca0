// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// Memory is an in-process implementation of every store interface.
//
// Intended for tests and single-node development setups, mirroring the
// in-memory configuration the embedded stores expose.
//
// Thread Safety: Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	records     []datatypes.ConversionRecord
	tenants     map[string]datatypes.HistoricalTenant
	benchmarks  map[string][]datatypes.AggregatedBenchmark
	predictions map[string]datatypes.Prediction
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tenants:     make(map[string]datatypes.HistoricalTenant),
		benchmarks:  make(map[string][]datatypes.AggregatedBenchmark),
		predictions: make(map[string]datatypes.Prediction),
	}
}

// Interface conformance.
var (
	_ ConversionStore = (*Memory)(nil)
	_ TenantStore     = (*Memory)(nil)
	_ BenchmarkStore  = (*Memory)(nil)
	_ PredictionStore = (*Memory)(nil)
)

// AddConversionRecords seeds raw conversion records.
func (m *Memory) AddConversionRecords(records ...datatypes.ConversionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// AddTenants seeds historical tenants.
func (m *Memory) AddTenants(tenants ...datatypes.HistoricalTenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
}

// matchesSegment reports whether a record falls inside the descriptor:
// every dimension present on the query must match the record's dimension.
func matchesSegment(rec segment.Descriptor, query segment.Descriptor) bool {
	if query.PageType != "" && rec.PageType != query.PageType {
		return false
	}
	if query.TrafficSource != "" && rec.TrafficSource != query.TrafficSource {
		return false
	}
	if query.DeviceType != "" && rec.DeviceType != query.DeviceType {
		return false
	}
	if query.Category != "" && rec.Category != query.Category {
		return false
	}
	return true
}

// QueryConversionRecords implements ConversionStore.
func (m *Memory) QueryConversionRecords(ctx context.Context, seg segment.Descriptor, start, end time.Time) ([]datatypes.ConversionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []datatypes.ConversionRecord
	for _, r := range m.records {
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		if matchesSegment(r.Segment, seg) {
			out = append(out, r)
		}
	}
	return out, nil
}

// QueryTenantConversionRecords implements ConversionStore.
func (m *Memory) QueryTenantConversionRecords(ctx context.Context, tenantID string, start, end time.Time) ([]datatypes.ConversionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []datatypes.ConversionRecord
	for _, r := range m.records {
		if r.TenantID != tenantID {
			continue
		}
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// QueryTenant implements TenantStore.
func (m *Memory) QueryTenant(ctx context.Context, tenantID string) (datatypes.HistoricalTenant, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.HistoricalTenant{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[tenantID]
	if !ok {
		return datatypes.HistoricalTenant{}, ErrNotFound
	}
	return t, nil
}

// QueryAllTenants implements TenantStore.
func (m *Memory) QueryAllTenants(ctx context.Context) ([]datatypes.HistoricalTenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]datatypes.HistoricalTenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// QueryCategoryTenantCount implements TenantStore.
func (m *Memory) QueryCategoryTenantCount(ctx context.Context, category string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, t := range m.tenants {
		// Categories fold case so the count agrees with similarity matching.
		if strings.EqualFold(t.Profile.Category, category) {
			count++
		}
	}
	return count, nil
}

// PersistBenchmark implements BenchmarkStore. Append-only.
func (m *Memory) PersistBenchmark(ctx context.Context, b datatypes.AggregatedBenchmark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.benchmarks[b.SegmentKey] = append(m.benchmarks[b.SegmentKey], b)
	return nil
}

// QueryBenchmarkHistory implements BenchmarkStore. Newest first.
func (m *Memory) QueryBenchmarkHistory(ctx context.Context, segmentKey string, limit int) ([]datatypes.AggregatedBenchmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.benchmarks[segmentKey]
	out := make([]datatypes.AggregatedBenchmark, len(history))
	copy(out, history)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PersistPrediction implements PredictionStore.
func (m *Memory) PersistPrediction(ctx context.Context, _ datatypes.TenantProfile, p datatypes.Prediction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[p.ID] = p
	return nil
}

// QueryPrediction implements PredictionStore.
func (m *Memory) QueryPrediction(ctx context.Context, id string) (datatypes.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Prediction{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.predictions[id]
	if !ok {
		return datatypes.Prediction{}, ErrNotFound
	}
	return p, nil
}
