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
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianInsight/services/insight/telemetry"
)

const (
	predictionsRoute = "/api/v1/predictions"
	budgetResetRoute = "/api/v1/admin/budgets/reset"
)

// Telemetry records request metrics for every handled route.
//
// Description:
//
//	Records count and duration per route template, error responses, and
//	the prediction and budget-reset specifics the operations dashboards
//	watch. Routes gin does not know (404s) are grouped under "unmatched".
func Telemetry(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start).Seconds()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(status)),
		)

		ctx := c.Request.Context()
		m.HTTPRequestsTotal.Add(ctx, 1, attrs)
		m.HTTPRequestDuration.Record(ctx, elapsed, attrs)

		if status >= http.StatusBadRequest {
			m.ErrorsTotal.Add(ctx, 1, attrs)
		}

		switch route {
		case predictionsRoute:
			statusAttr := metric.WithAttributes(attribute.String("status", strconv.Itoa(status)))
			m.PredictionsTotal.Add(ctx, 1, statusAttr)
			m.PredictionDuration.Record(ctx, elapsed, statusAttr)
		case budgetResetRoute:
			if status == http.StatusOK {
				m.BudgetResetsTotal.Add(ctx, 1)
			}
		}
	}
}
