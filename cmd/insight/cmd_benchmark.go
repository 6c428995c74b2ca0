// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

func segmentQuery() url.Values {
	query := url.Values{}
	if pageType != "" {
		query.Set("page_type", pageType)
	}
	if trafficSource != "" {
		query.Set("traffic_source", trafficSource)
	}
	if deviceType != "" {
		query.Set("device_type", deviceType)
	}
	if siteCategory != "" {
		query.Set("category", siteCategory)
	}
	query.Set("window_days", strconv.Itoa(windowDays))
	return query
}

func runBenchmark(cmd *cobra.Command, args []string) {
	var insight datatypes.ConversionInsight
	callGateway(http.MethodGet, "/api/v1/insights", segmentQuery(), nil, &insight)

	fmt.Printf("Benchmark for segment %s (%d participating tenants)\n",
		insight.Benchmark.SegmentKey, insight.Benchmark.ParticipantCount)
	printJSON(insight)
}

func runOpportunities(cmd *cobra.Command, args []string) {
	if tenantID == "" {
		log.Fatalf("The --tenant flag is required")
	}

	query := url.Values{}
	query.Set("tenant_id", tenantID)
	query.Set("window_days", strconv.Itoa(windowDays))

	var resp struct {
		Opportunities []datatypes.OptimizationOpportunity `json:"opportunities"`
	}
	callGateway(http.MethodGet, "/api/v1/opportunities", query, nil, &resp)

	if len(resp.Opportunities) == 0 {
		fmt.Printf("No segments where tenant %s trails the benchmark.\n", tenantID)
		return
	}
	fmt.Printf("Found %d underperforming segments for tenant %s\n",
		len(resp.Opportunities), tenantID)
	printJSON(resp.Opportunities)
}
