// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Peer is one qualifying historical tenant matched to a candidate profile.
type Peer struct {
	// TenantID identifies the matched tenant.
	TenantID string

	// Similarity is the profile similarity score in (0.3, 1].
	Similarity float64

	// SuccessScore is the tenant's realized success score in [0, 1].
	SuccessScore float64

	// RevenueOutcome is the tenant's cumulative realized revenue.
	RevenueOutcome float64

	// TrafficOutcome is the tenant's cumulative realized view count.
	TrafficOutcome float64
}

// Outcome is the numeric output of a prediction backend. Rule-based fields
// of a Prediction (risks, opportunities, strategies) are generated outside
// the backend.
type Outcome struct {
	Revenue            datatypes.Projection
	Traffic            datatypes.Projection
	SuccessProbability float64
}

// TrainingSample pairs an encoded historical profile with its realized
// outcomes.
type TrainingSample struct {
	Features FeatureVector

	// Revenue and Traffic are the realized cumulative values.
	Revenue float64
	Traffic float64

	// Succeeded indicates a realized success score at or above 0.5.
	Succeeded bool
}

// Backend is a prediction strategy.
//
// Description:
//
//	Implementations are selected once at construction and never branched
//	on per call. A backend that cannot learn reports Trainable false and
//	returns ErrTrainingNotSupported from Train.
//
// Thread Safety: Implementations must be safe for concurrent Predict calls.
type Backend interface {
	// Name identifies the backend in errors and telemetry.
	Name() string

	// Predict produces the numeric outcome for an encoded profile and its
	// matched peers.
	Predict(ctx context.Context, features FeatureVector, peers []Peer) (Outcome, error)

	// Trainable reports whether Train does anything.
	Trainable() bool

	// Train fits the backend to realized outcomes.
	Train(ctx context.Context, samples []TrainingSample) (datatypes.TrainingReport, error)
}

// fallbackBackend is the one documented automatic-fallback behavior: a
// failing primary falls back to the secondary, and only a double failure
// surfaces to the caller.
type fallbackBackend struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger
}

// WithFallback decorates primary so that Predict failures are retried on
// fallback. Training always targets the primary.
func WithFallback(primary, fallback Backend, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallbackBackend{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "prediction_backend")),
	}
}

func (b *fallbackBackend) Name() string {
	return b.primary.Name() + "+" + b.fallback.Name()
}

func (b *fallbackBackend) Predict(ctx context.Context, features FeatureVector, peers []Peer) (Outcome, error) {
	out, err := b.primary.Predict(ctx, features, peers)
	if err == nil {
		return out, nil
	}
	b.logger.WarnContext(ctx, "primary backend failed, falling back",
		slog.String("primary", b.primary.Name()),
		slog.String("fallback", b.fallback.Name()),
		slog.Any("error", err))

	out, ferr := b.fallback.Predict(ctx, features, peers)
	if ferr != nil {
		return Outcome{}, &datatypes.ModelError{Backend: b.Name(), Err: ferr}
	}
	return out, nil
}

func (b *fallbackBackend) Trainable() bool { return b.primary.Trainable() }

func (b *fallbackBackend) Train(ctx context.Context, samples []TrainingSample) (datatypes.TrainingReport, error) {
	return b.primary.Train(ctx, samples)
}
