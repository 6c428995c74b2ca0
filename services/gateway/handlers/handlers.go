// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers exposes the insight core over HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianInsight/services/insight"
	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
	"github.com/AleutianAI/AleutianInsight/services/insight/segment"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps the core error taxonomy onto HTTP status codes.
//
// Description:
//
//	ValidationError is the caller's fault (400). PrivacyError and
//	ModelError are well-formed requests the core refuses to answer (422).
//	PersistenceError is a bad backend (502). Anything else is a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case datatypes.IsValidationError(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "validation"})
	case datatypes.IsPrivacyError(err):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "privacy"})
	case datatypes.IsModelError(err):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "model"})
	case datatypes.IsPersistenceError(err):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "persistence"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse{Error: err.Error(), Kind: "timeout"})
	default:
		slog.Error("unclassified handler error", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: "internal"})
	}
}

// segmentFromQuery builds a segment descriptor from request query params.
func segmentFromQuery(c *gin.Context) segment.Descriptor {
	return segment.Descriptor{
		PageType:      c.Query("page_type"),
		TrafficSource: c.Query("traffic_source"),
		DeviceType:    c.Query("device_type"),
		Category:      c.Query("category"),
	}
}

func windowDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("window_days", "30"))
	if err != nil || days < 1 {
		return 30
	}
	return days
}

// GetInsights handles GET /api/v1/insights.
func GetInsights(svc *insight.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.GetConversionInsights(c.Request.Context(), segmentFromQuery(c), windowDays(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetOpportunities handles GET /api/v1/opportunities.
func GetOpportunities(svc *insight.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Query("tenant_id")
		if tenantID == "" {
			writeError(c, datatypes.NewValidationError("tenant_id", "required query parameter"))
			return
		}
		result, err := svc.GetOptimizationOpportunities(c.Request.Context(), tenantID, windowDays(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"opportunities": result})
	}
}

// PostPrediction handles POST /api/v1/predictions.
func PostPrediction(svc *insight.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile datatypes.TenantProfile
		if err := c.ShouldBindJSON(&profile); err != nil {
			writeError(c, &datatypes.ValidationError{Reason: "malformed profile body", Err: err})
			return
		}
		result, err := svc.PredictSiteSuccess(c.Request.Context(), profile)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// PostTrain handles POST /api/v1/train.
func PostTrain(svc *insight.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.TrainModels(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// PostBudgetReset handles POST /api/v1/admin/budgets/reset.
func PostBudgetReset(svc *insight.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cleared, err := svc.ResetBudgets(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": cleared})
	}
}

// HealthCheck handles GET /healthz.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
