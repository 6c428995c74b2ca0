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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Key prefixes for the embedded store. Segment keys and tenant IDs pass
// through pkg/validation before reaching this layer, so the ':' separator
// cannot appear inside a component.
const (
	benchmarkPrefix  = "bm:"
	tenantPrefix     = "tenant:"
	predictionPrefix = "pred:"
)

// BadgerConfig holds configuration for the embedded store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is the logger for store operations.
	// If nil, slog.Default() is used; BadgerDB's own logging is disabled.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults rooted at dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Path:       dir,
		SyncWrites: true,
	}
}

// InMemoryBadgerConfig returns configuration optimized for testing.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// Badger is an embedded implementation of TenantStore, BenchmarkStore, and
// PredictionStore on BadgerDB.
//
// Description:
//
//	Values are JSON. Benchmarks are stored under
//	"bm:<segmentKey>:<reverse-timestamp>:<id>" so a forward prefix scan
//	yields newest-first history without sorting; the store is append-only
//	by construction (keys embed a unique ID, nothing overwrites).
//
// Thread Safety: Safe for concurrent use (BadgerDB transactions).
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

var (
	_ TenantStore     = (*Badger)(nil)
	_ BenchmarkStore  = (*Badger)(nil)
	_ PredictionStore = (*Badger)(nil)
)

// OpenBadger opens the embedded store with the given configuration.
//
// Outputs:
//   - *Badger: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path must not be empty for persistent store")
		}
		if err := os.MkdirAll(filepath.Clean(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logger.Info("embedded store opened",
		slog.String("component", "badger_store"),
		slog.Bool("in_memory", cfg.InMemory),
		slog.String("path", cfg.Path),
	)
	return &Badger{db: db, logger: logger.With(slog.String("component", "badger_store"))}, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// benchmarkKey builds the append-only benchmark key. CreatedAt is inverted
// so lexicographic order is newest first.
func benchmarkKey(segmentKey string, createdAt int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", benchmarkPrefix, segmentKey, math.MaxInt64-createdAt, id))
}

// PersistBenchmark implements BenchmarkStore.
func (b *Badger) PersistBenchmark(ctx context.Context, bm datatypes.AggregatedBenchmark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(bm)
	if err != nil {
		return fmt.Errorf("marshal benchmark: %w", err)
	}
	key := benchmarkKey(bm.SegmentKey, bm.CreatedAt, bm.ID)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// QueryBenchmarkHistory implements BenchmarkStore. Newest first.
func (b *Badger) QueryBenchmarkHistory(ctx context.Context, segmentKey string, limit int) ([]datatypes.AggregatedBenchmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(benchmarkPrefix + segmentKey + ":")
	var out []datatypes.AggregatedBenchmark

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var bm datatypes.AggregatedBenchmark
				if err := json.Unmarshal(val, &bm); err != nil {
					return fmt.Errorf("unmarshal benchmark: %w", err)
				}
				out = append(out, bm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutTenant stores or replaces a historical tenant. Used by ingestion and
// test seeding; the core only reads tenants.
func (b *Badger) PutTenant(ctx context.Context, t datatypes.HistoricalTenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tenant: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tenantPrefix+t.ID), value)
	})
}

// QueryTenant implements TenantStore.
func (b *Badger) QueryTenant(ctx context.Context, tenantID string) (datatypes.HistoricalTenant, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.HistoricalTenant{}, err
	}
	var out datatypes.HistoricalTenant
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tenantPrefix + tenantID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return datatypes.HistoricalTenant{}, err
	}
	return out, nil
}

// QueryAllTenants implements TenantStore.
func (b *Badger) QueryAllTenants(ctx context.Context) ([]datatypes.HistoricalTenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(tenantPrefix)
	var out []datatypes.HistoricalTenant

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var t datatypes.HistoricalTenant
				if err := json.Unmarshal(val, &t); err != nil {
					return fmt.Errorf("unmarshal tenant: %w", err)
				}
				out = append(out, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryCategoryTenantCount implements TenantStore.
func (b *Badger) QueryCategoryTenantCount(ctx context.Context, category string) (int, error) {
	tenants, err := b.QueryAllTenants(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, t := range tenants {
		// Categories fold case so the count agrees with similarity matching.
		if strings.EqualFold(t.Profile.Category, category) {
			count++
		}
	}
	return count, nil
}

// storedPrediction couples a prediction with the profile that produced it.
type storedPrediction struct {
	Input      datatypes.TenantProfile `json:"input"`
	Prediction datatypes.Prediction    `json:"prediction"`
}

// PersistPrediction implements PredictionStore.
func (b *Badger) PersistPrediction(ctx context.Context, input datatypes.TenantProfile, p datatypes.Prediction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(storedPrediction{Input: input, Prediction: p})
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(predictionPrefix+p.ID), value)
	})
}

// QueryPrediction implements PredictionStore.
func (b *Badger) QueryPrediction(ctx context.Context, id string) (datatypes.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Prediction{}, err
	}
	var out storedPrediction
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(predictionPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return datatypes.Prediction{}, err
	}
	return out.Prediction, nil
}

// RunGC runs one value-log garbage collection cycle. Callers schedule this;
// the store itself never spawns background work.
func (b *Badger) RunGC(discardRatio float64) {
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	if err := b.db.RunValueLogGC(discardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		b.logger.Warn("value log gc failed", slog.String("error", err.Error()))
	}
}
