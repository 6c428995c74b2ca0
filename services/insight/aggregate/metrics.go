// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Conversion Aggregation
// =============================================================================

var (
	// aggregationRuns counts aggregation pipeline runs.
	// Labels: status (success, insufficient_data, insufficient_participants, store_error)
	aggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "aggregate",
		Name:      "runs_total",
		Help:      "Total aggregation pipeline runs by status",
	}, []string{"status"})

	// excludedTenants counts tenants dropped from an aggregation.
	// Labels: reason (no_budget)
	excludedTenants = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "insight",
		Subsystem: "aggregate",
		Name:      "excluded_tenants_total",
		Help:      "Total tenants excluded from aggregation by reason",
	}, []string{"reason"})

	// participantCounts tracks the distribution of eligible tenant counts
	// on successful aggregations.
	participantCounts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "insight",
		Subsystem: "aggregate",
		Name:      "participants",
		Help:      "Eligible tenant count per successful aggregation",
		Buckets:   []float64{3, 5, 10, 25, 50, 100, 250},
	})
)

const (
	statusSuccess                  = "success"
	statusInsufficientData         = "insufficient_data"
	statusInsufficientParticipants = "insufficient_participants"
	statusStoreError               = "store_error"

	reasonNoBudget = "no_budget"
)
