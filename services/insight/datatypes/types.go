// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides type definitions shared across the Aleutian
// Insight core: conversion records, privacy budgets, aggregated benchmarks,
// tenant profiles and histories, and prediction results.
package datatypes

import (
	"time"

	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// =============================================================================
// ENUMS
// =============================================================================

// MetricType classifies a tenant history record.
type MetricType string

const (
	MetricRevenue    MetricType = "revenue"
	MetricConversion MetricType = "conversion"
	MetricView       MetricType = "view"
	MetricOrder      MetricType = "order"
)

// Expertise is the self-reported technical expertise of a tenant.
//
// Valid values: "beginner", "intermediate", "advanced".
type Expertise string

const (
	ExpertiseBeginner     Expertise = "beginner"
	ExpertiseIntermediate Expertise = "intermediate"
	ExpertiseAdvanced     Expertise = "advanced"
)

// Priority ranks an optimization opportunity for presentation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// =============================================================================
// INGESTED DATA (read-only inside the core)
// =============================================================================

// ConversionRecord is one tenant's observed conversion rate for a segment
// over some collection window. Records are created by ingestion outside the
// core and are never mutated here.
type ConversionRecord struct {
	// TenantID identifies the reporting tenant. Never exposed in aggregates.
	TenantID string `json:"tenant_id"`

	// Segment the record was observed in.
	Segment segment.Descriptor `json:"segment"`

	// ConversionRate is the observed rate in [0, 1].
	ConversionRate float64 `json:"conversion_rate"`

	// SampleSize is the number of sessions behind the rate. Always >= 1.
	SampleSize int `json:"sample_size"`

	// Timestamp is when the record was collected.
	Timestamp time.Time `json:"timestamp"`
}

// TenantHistoryRecord is one time-ordered metric observation for a
// historical tenant.
type TenantHistoryRecord struct {
	Type      MetricType `json:"type"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}

// TenantProfile describes a tenant (historical or prospective) for
// similarity matching and prediction.
//
// Validation tags are enforced by the prediction engine before any
// similarity or scoring work happens.
type TenantProfile struct {
	Category           string    `json:"category" yaml:"category" validate:"required"`
	TargetAudience     string    `json:"target_audience" yaml:"target_audience" validate:"required"`
	GeographicFocus    string    `json:"geographic_focus,omitempty" yaml:"geographic_focus,omitempty"`
	ContentStrategy    string    `json:"content_strategy,omitempty" yaml:"content_strategy,omitempty"`
	TeamSize           int       `json:"team_size" yaml:"team_size" validate:"min=1"`
	MarketingBudget    float64   `json:"marketing_budget" yaml:"marketing_budget" validate:"min=0"`
	InitialProducts    []string  `json:"initial_products" yaml:"initial_products" validate:"min=1,dive,required"`
	TechnicalExpertise Expertise `json:"technical_expertise" yaml:"technical_expertise" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// HistoricalTenant pairs a tenant profile with its realized metric history.
type HistoricalTenant struct {
	ID        string                `json:"id"`
	Profile   TenantProfile         `json:"profile"`
	CreatedAt time.Time             `json:"created_at"`
	History   []TenantHistoryRecord `json:"history"`
}

// Age returns how long the tenant has existed relative to now.
func (h HistoricalTenant) Age(now time.Time) time.Duration {
	return now.Sub(h.CreatedAt)
}

// =============================================================================
// AGGREGATION OUTPUT
// =============================================================================

// AggregatedBenchmark is a privacy-preserving cross-tenant aggregate for one
// segment. It never contains tenant-identifying data and is stored
// append-only per segment key.
type AggregatedBenchmark struct {
	// ID is a unique identifier assigned at creation.
	ID string `json:"id"`

	// SegmentKey is the canonical segment key (segment.Descriptor.Key).
	SegmentKey string `json:"segment_key"`

	// Value is the noisy aggregate conversion rate, clamped to [0, 1].
	Value float64 `json:"value"`

	// ParticipantCount is the number of distinct contributing tenants.
	// Always >= 3: aggregation fails closed below the privacy floor.
	ParticipantCount int `json:"participant_count"`

	// ConfidenceLevel in [0, 1] reflects participant count, total sample
	// size, and injected noise magnitude.
	ConfidenceLevel float64 `json:"confidence_level"`

	// CreatedAt is when the aggregate was computed (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`
}

// ConversionInsight is the benchmark for a segment plus its position in the
// stored history and the recommendations derived from it.
type ConversionInsight struct {
	Benchmark       AggregatedBenchmark `json:"benchmark"`
	PercentileRank  float64             `json:"percentile_rank"`
	Recommendations []string            `json:"recommendations"`
}

// OptimizationOpportunity describes a segment where a tenant underperforms
// the cross-tenant benchmark.
type OptimizationOpportunity struct {
	Segment         segment.Descriptor `json:"segment"`
	CurrentRate     float64            `json:"current_rate"`
	BenchmarkRate   float64            `json:"benchmark_rate"`
	Improvement     float64            `json:"improvement"`
	Priority        Priority           `json:"priority"`
	Recommendations []string           `json:"recommendations"`
}

// =============================================================================
// PREDICTION OUTPUT
// =============================================================================

// Projection holds predicted values at the standard horizons.
type Projection struct {
	Month1  float64 `json:"month_1"`
	Month3  float64 `json:"month_3"`
	Month6  float64 `json:"month_6"`
	Month12 float64 `json:"month_12"`
}

// Interval is a confidence interval around a point prediction.
// Low is always >= 0.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Prediction is the full output of a site success prediction. It is created
// once per request and persisted for later accuracy evaluation against
// realized tenant histories.
type Prediction struct {
	// ID is a unique identifier assigned at creation.
	ID string `json:"id"`

	// VocabVersion is the feature-encoder vocabulary version used, so a
	// stored prediction can be reproduced across instances and restarts.
	VocabVersion string `json:"vocab_version"`

	PredictedRevenue Projection `json:"predicted_revenue"`
	PredictedTraffic Projection `json:"predicted_traffic"`

	// SuccessProbability is in [0, 1].
	SuccessProbability float64 `json:"success_probability"`

	RiskFactors           []string `json:"risk_factors"`
	GrowthOpportunities   []string `json:"growth_opportunities"`
	RecommendedStrategies []string `json:"recommended_strategies"`

	// SimilarSuccessfulTenants lists the IDs of matched peers with a
	// success score above the reporting threshold.
	SimilarSuccessfulTenants []string `json:"similar_successful_tenants"`

	ConfidenceIntervals ConfidenceIntervals `json:"confidence_intervals"`

	// CreatedAt is when the prediction was made (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`
}

// ConfidenceIntervals groups the intervals for each predicted quantity.
type ConfidenceIntervals struct {
	Revenue Interval `json:"revenue"`
	Traffic Interval `json:"traffic"`
}

// TrainingReport summarizes a model training run.
type TrainingReport struct {
	// Applicable is false when the configured backend is not trainable;
	// the remaining fields are zero in that case.
	Applicable bool `json:"applicable"`

	AccuracyByMetric    map[string]float64 `json:"accuracy_by_metric,omitempty"`
	TrainingSampleCount int                `json:"training_sample_count"`
}
