// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the gateway-level metrics for the insight service.
//
// Description:
//
//	Counters and histograms recorded by the gateway middleware. All use
//	the "insight_" prefix. Pipeline-internal metrics (aggregation runs,
//	tenant exclusions, participant counts) live as Prometheus collectors
//	in the aggregate package and share the /metrics endpoint.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts total HTTP requests by method, route, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// --- Prediction Metrics ---

	// PredictionsTotal counts prediction requests by status.
	PredictionsTotal metric.Int64Counter

	// PredictionDuration records end-to-end prediction duration in seconds.
	PredictionDuration metric.Float64Histogram

	// --- Privacy Metrics ---

	// BudgetResetsTotal counts administrative ledger resets.
	BudgetResetsTotal metric.Int64Counter

	// --- Error Metrics ---

	// ErrorsTotal counts error responses by route and status.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all instruments initialized.
//	error - Non-nil if metric registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"insight_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"insight_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	// --- Prediction Metrics ---
	m.PredictionsTotal, err = meter.Int64Counter(
		"insight_predictions_total",
		metric.WithDescription("Total prediction requests by status"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create predictions_total: %w", err)
	}

	m.PredictionDuration, err = meter.Float64Histogram(
		"insight_prediction_duration_seconds",
		metric.WithDescription("End-to-end prediction duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create prediction_duration: %w", err)
	}

	// --- Privacy Metrics ---
	m.BudgetResetsTotal, err = meter.Int64Counter(
		"insight_budget_resets_total",
		metric.WithDescription("Total administrative privacy budget resets"),
		metric.WithUnit("{reset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create budget_resets_total: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"insight_errors_total",
		metric.WithDescription("Total error responses by route and status"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
