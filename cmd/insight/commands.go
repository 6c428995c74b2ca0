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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL = "http://localhost:8090"

	pageType      string
	trafficSource string
	deviceType    string
	siteCategory  string
	windowDays    int
	tenantID      string
	profilePath   string
	skipConfirm   bool

	rootCmd = &cobra.Command{
		Use:   "insight",
		Short: "A cli for the Aleutian Insight benchmark and prediction service",
		Long: `Insight talks to a running insightd gateway to produce anonymized
				cross-tenant conversion benchmarks, per-tenant optimization
				opportunities, and success predictions for prospective tenants.`,
	}

	// --- Benchmarks ---
	benchmarkCmd = &cobra.Command{
		Use:     "aggregate",
		Short:   "Generate an anonymized conversion benchmark for a segment",
		Aliases: []string{"benchmark"},
		Run:     runBenchmark, // Defined in cmd_benchmark.go
	}

	opportunitiesCmd = &cobra.Command{
		Use:   "opportunities",
		Short: "List segments where a tenant underperforms the benchmark",
		Run:   runOpportunities, // Defined in cmd_benchmark.go
	}

	// --- Predictions ---
	predictCmd = &cobra.Command{
		Use:   "predict [profile.yaml]",
		Short: "Predict success metrics for a prospective tenant profile",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPredict, // Defined in cmd_predict.go
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Retrain the prediction model from accumulated tenant outcomes",
		Run:   runTrain, // Defined in cmd_predict.go
	}

	// --- Privacy Budgets ---
	budgetCmd = &cobra.Command{
		Use:   "budgets",
		Short: "Manage per-tenant privacy budgets",
	}
	budgetResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "DANGER: Reset every tenant's privacy budget to its initial value",
		Run:   runBudgetReset, // Defined in cmd_budget.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", serverURL,
		"Base URL of the insightd gateway (env: INSIGHT_SERVER_URL)")

	rootCmd.AddCommand(benchmarkCmd)
	benchmarkCmd.Flags().StringVar(&pageType, "page-type", "", "Segment page type (e.g. landing, product)")
	benchmarkCmd.Flags().StringVar(&trafficSource, "traffic-source", "", "Segment traffic source (e.g. organic, paid)")
	benchmarkCmd.Flags().StringVar(&deviceType, "device-type", "", "Segment device type (e.g. mobile, desktop)")
	benchmarkCmd.Flags().StringVar(&siteCategory, "category", "", "Segment site category")
	benchmarkCmd.Flags().IntVar(&windowDays, "window", 30, "Aggregation window in days")

	rootCmd.AddCommand(opportunitiesCmd)
	opportunitiesCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID to analyze (required)")
	opportunitiesCmd.Flags().IntVar(&windowDays, "window", 30, "Aggregation window in days")

	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&profilePath, "profile", "", "Path to a YAML tenant profile (alternative to the positional argument)")

	rootCmd.AddCommand(trainCmd)

	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetResetCmd)
	budgetResetCmd.Flags().BoolVar(&skipConfirm, "yes", false, "Skip the interactive confirmation")
}
