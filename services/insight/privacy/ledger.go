// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package privacy implements the differential-privacy primitives of the
// insight core: the per-tenant consumable privacy budget ledger and the
// Laplace-mechanism noise injector.
package privacy

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// shardCount is the number of ledger shards. Power of two so the hash can
// be masked instead of divided.
const shardCount = 32

// LedgerConfig configures the privacy budget ledger.
type LedgerConfig struct {
	// Initial is the budget granted to a tenant on first sight.
	// Default: 1.0 (full budget).
	Initial float64

	// Reserve is the threshold below which a tenant is excluded from
	// aggregation. HasBudget returns false once remaining <= Reserve.
	// Default: 0.1.
	Reserve float64

	// DefaultCost is consumed per aggregation when no explicit amount is
	// given. Set to the configured noise epsilon. Default: 0.1.
	DefaultCost float64
}

// DefaultLedgerConfig returns production defaults.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Initial:     1.0,
		Reserve:     0.1,
		DefaultCost: 0.1,
	}
}

// Validate checks if the configuration is valid.
func (c *LedgerConfig) Validate() error {
	if c.Initial <= 0 || c.Initial > 1 {
		return fmt.Errorf("initial budget must be in (0, 1], got %v", c.Initial)
	}
	if c.Reserve < 0 || c.Reserve >= c.Initial {
		return fmt.Errorf("reserve must be in [0, initial), got %v", c.Reserve)
	}
	if c.DefaultCost <= 0 {
		return errors.New("default cost must be positive")
	}
	return nil
}

// ledgerShard holds the budgets for one slice of the tenant key space.
type ledgerShard struct {
	mu        sync.Mutex
	remaining map[string]float64
}

// Ledger is the per-tenant consumable privacy budget store.
//
// Description:
//
//	Budgets live in a fixed array of shards keyed by an FNV hash of the
//	tenant ID, so concurrent Consume calls for different tenants do not
//	contend while Consume calls for the same tenant are serialized. This
//	prevents two concurrent aggregations from both observing sufficient
//	budget and both spending it.
//
//	A tenant's remaining budget is monotonically non-increasing between
//	resets. Reset is an exclusive maintenance operation: it takes every
//	shard lock before clearing, so it never interleaves with an in-flight
//	Consume.
//
// Thread Safety: Safe for concurrent use.
type Ledger struct {
	config LedgerConfig
	shards [shardCount]ledgerShard
}

// NewLedger creates a ledger with the given configuration.
func NewLedger(config LedgerConfig) (*Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	l := &Ledger{config: config}
	for i := range l.shards {
		l.shards[i].remaining = make(map[string]float64)
	}
	return l, nil
}

// shardFor returns the shard owning tenantID.
func (l *Ledger) shardFor(tenantID string) *ledgerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return &l.shards[h.Sum32()&(shardCount-1)]
}

// HasBudget reports whether the tenant has budget above the reserve
// threshold. Tenants at or below the reserve are silently excluded from
// aggregation; this is not an error condition.
func (l *Ledger) HasBudget(tenantID string) bool {
	return l.Remaining(tenantID) > l.config.Reserve
}

// Remaining returns the tenant's remaining budget. Unseen tenants hold the
// full initial budget.
func (l *Ledger) Remaining(tenantID string) float64 {
	s := l.shardFor(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.remaining[tenantID]; ok {
		return r
	}
	return l.config.Initial
}

// Consume spends budget for the tenant and returns the new remaining value.
//
// Description:
//
//	Remaining is clamped at zero: consuming more than is left never
//	produces a negative balance. An amount <= 0 spends the configured
//	DefaultCost (the noise epsilon of the aggregation that triggered the
//	spend).
//
// Thread Safety: Serialized per tenant via the owning shard lock.
func (l *Ledger) Consume(tenantID string, amount float64) float64 {
	if amount <= 0 {
		amount = l.config.DefaultCost
	}
	s := l.shardFor(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, ok := s.remaining[tenantID]
	if !ok {
		remaining = l.config.Initial
	}
	remaining -= amount
	if remaining < 0 {
		remaining = 0
	}
	s.remaining[tenantID] = remaining
	return remaining
}

// TryConsume spends budget only if the tenant is above the reserve
// threshold, under a single lock acquisition.
//
// Description:
//
//	The check and the spend happen atomically. Two concurrent aggregations
//	racing on the same tenant cannot both observe sufficient budget and
//	both spend it; the loser of the race sees the post-spend balance and
//	is refused. An amount <= 0 spends the configured DefaultCost.
//
// Outputs:
//   - float64: The remaining budget after the call, spent or not.
//   - bool: Whether the spend happened.
func (l *Ledger) TryConsume(tenantID string, amount float64) (float64, bool) {
	if amount <= 0 {
		amount = l.config.DefaultCost
	}
	s := l.shardFor(tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, ok := s.remaining[tenantID]
	if !ok {
		remaining = l.config.Initial
	}
	if remaining <= l.config.Reserve {
		return remaining, false
	}
	remaining -= amount
	if remaining < 0 {
		remaining = 0
	}
	s.remaining[tenantID] = remaining
	return remaining, true
}

// Snapshot returns a copy of all tracked budgets. Tenants that were never
// charged are not present (their budget is the initial value).
func (l *Ledger) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for id, r := range s.remaining {
			out[id] = r
		}
		s.mu.Unlock()
	}
	return out
}

// Reset clears every ledger entry, restoring all tenants to the initial
// budget. Administrative operation only; never called from a request path.
//
// Description:
//
//	Acquires all shard locks in index order before clearing any entry, so
//	the reset is atomic with respect to concurrent Consume calls: a
//	consume observes either the entire old state or the entire new one.
//
// Outputs:
//   - int: The number of tenant entries cleared.
func (l *Ledger) Reset() int {
	for i := range l.shards {
		l.shards[i].mu.Lock()
	}
	defer func() {
		for i := range l.shards {
			l.shards[i].mu.Unlock()
		}
	}()

	cleared := 0
	for i := range l.shards {
		cleared += len(l.shards[i].remaining)
		l.shards[i].remaining = make(map[string]float64)
	}
	return cleared
}
