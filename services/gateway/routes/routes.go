// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianInsight/services/gateway/handlers"
	"github.com/AleutianAI/AleutianInsight/services/gateway/middleware"
	"github.com/AleutianAI/AleutianInsight/services/insight"
)

// SetupRoutes wires the insight service onto the router.
func SetupRoutes(router *gin.Engine, svc *insight.Service, limiter *middleware.RateLimiter) {
	router.Use(otelgin.Middleware("insight-gateway"))

	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		v1.GET("/insights", handlers.GetInsights(svc))
		v1.GET("/opportunities", handlers.GetOpportunities(svc))
		v1.POST("/predictions", handlers.PostPrediction(svc))
		v1.POST("/train", handlers.PostTrain(svc))

		admin := v1.Group("/admin")
		{
			admin.POST("/budgets/reset", handlers.PostBudgetReset(svc))
		}
	}
}
