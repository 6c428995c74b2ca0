// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package privacy

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(DefaultLedgerConfig())
	require.NoError(t, err)
	return l
}

func TestLedgerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  LedgerConfig
		wantErr bool
	}{
		{"defaults", DefaultLedgerConfig(), false},
		{"zero initial", LedgerConfig{Initial: 0, Reserve: 0.1, DefaultCost: 0.1}, true},
		{"initial above one", LedgerConfig{Initial: 1.5, Reserve: 0.1, DefaultCost: 0.1}, true},
		{"reserve at initial", LedgerConfig{Initial: 1, Reserve: 1, DefaultCost: 0.1}, true},
		{"negative reserve", LedgerConfig{Initial: 1, Reserve: -0.1, DefaultCost: 0.1}, true},
		{"zero cost", LedgerConfig{Initial: 1, Reserve: 0.1, DefaultCost: 0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLedgerUnseenTenantHasFullBudget(t *testing.T) {
	l := newTestLedger(t)
	assert.Equal(t, 1.0, l.Remaining("tenant-a"))
	assert.True(t, l.HasBudget("tenant-a"))
}

func TestLedgerConsumeNeverGoesNegative(t *testing.T) {
	l := newTestLedger(t)

	remaining := l.Consume("tenant-a", 0.7)
	assert.InDelta(t, 0.3, remaining, 1e-9)

	// Overspend clamps at zero.
	remaining = l.Consume("tenant-a", 5.0)
	assert.Equal(t, 0.0, remaining)
	assert.Equal(t, 0.0, l.Remaining("tenant-a"))
}

func TestLedgerHasBudgetRespectsReserve(t *testing.T) {
	l := newTestLedger(t)

	l.Consume("tenant-a", 0.85)
	assert.True(t, l.HasBudget("tenant-a"), "remaining 0.15 is above the 0.1 reserve")

	l.Consume("tenant-a", 0.05)
	assert.False(t, l.HasBudget("tenant-a"), "remaining 0.1 is not above the reserve")
}

func TestLedgerConsumeDefaultCost(t *testing.T) {
	l := newTestLedger(t)
	remaining := l.Consume("tenant-a", 0)
	assert.InDelta(t, 0.9, remaining, 1e-9)
}

func TestLedgerMonotoneBetweenResets(t *testing.T) {
	l := newTestLedger(t)
	prev := l.Remaining("tenant-a")
	for i := 0; i < 20; i++ {
		cur := l.Consume("tenant-a", 0.07)
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestLedgerReset(t *testing.T) {
	l := newTestLedger(t)
	l.Consume("tenant-a", 0.5)
	l.Consume("tenant-b", 0.95)

	cleared := l.Reset()
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 1.0, l.Remaining("tenant-a"))
	assert.True(t, l.HasBudget("tenant-b"))
	assert.Empty(t, l.Snapshot())
}

func TestLedgerConcurrentConsumeSameTenant(t *testing.T) {
	l := newTestLedger(t)

	// 100 goroutines each spend 0.2; the balance must clamp at 0,
	// never underflow, regardless of interleaving.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := l.Consume("tenant-a", 0.2)
			assert.GreaterOrEqual(t, got, 0.0)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0.0, l.Remaining("tenant-a"))
}

func TestLedgerConcurrentConsumeDistinctTenants(t *testing.T) {
	l := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("tenant-%03d", i)
			for j := 0; j < 5; j++ {
				l.Consume(id, 0.1)
			}
		}(i)
	}
	wg.Wait()

	snapshot := l.Snapshot()
	require.Len(t, snapshot, 64)
	for id, remaining := range snapshot {
		assert.InDelta(t, 0.5, remaining, 1e-9, "tenant %s", id)
	}
}

func TestLedgerTryConsumeRefusesAtReserve(t *testing.T) {
	l := newTestLedger(t)

	// Nine default-cost spends drop the balance to the reserve.
	for i := 0; i < 9; i++ {
		_, ok := l.TryConsume("tenant-a", 0)
		assert.True(t, ok)
	}
	remaining, ok := l.TryConsume("tenant-a", 0)
	assert.False(t, ok)
	assert.InDelta(t, 0.1, remaining, 1e-9)
}

func TestLedgerTryConsumeNoDoubleSpendUnderRace(t *testing.T) {
	l, err := NewLedger(LedgerConfig{Initial: 1.0, Reserve: 0.1, DefaultCost: 0.1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.TryConsume("contended", 0.1); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Budget covers exactly nine spends above the reserve.
	assert.Equal(t, 9, granted)
	assert.False(t, l.HasBudget("contended"))
}
