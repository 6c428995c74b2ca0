// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AleutianAI/AleutianInsight/services/insight/telemetry"
)

func newTelemetryRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(Telemetry(metrics))
	router.GET("/api/v1/insights", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	router.POST("/api/v1/predictions", func(c *gin.Context) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{})
	})
	return router, reader
}

func collectedNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestTelemetryRecordsRequests(t *testing.T) {
	router, reader := newTelemetryRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/insights", nil))
	require.Equal(t, http.StatusOK, w.Code)

	names := collectedNames(t, reader)
	assert.True(t, names["insight_http_requests_total"])
	assert.True(t, names["insight_http_request_duration_seconds"])
	assert.False(t, names["insight_predictions_total"])
}

func TestTelemetryRecordsPredictionErrors(t *testing.T) {
	router, reader := newTelemetryRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/predictions", nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	names := collectedNames(t, reader)
	assert.True(t, names["insight_predictions_total"])
	assert.True(t, names["insight_prediction_duration_seconds"])
	assert.True(t, names["insight_errors_total"])
}
