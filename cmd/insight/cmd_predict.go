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
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

func runPredict(cmd *cobra.Command, args []string) {
	path := profilePath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		log.Fatalf("Provide a profile YAML file as an argument or via --profile")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read profile file: %v", err)
	}
	var profile datatypes.TenantProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		log.Fatalf("Failed to parse profile YAML: %v", err)
	}

	var prediction datatypes.Prediction
	callGateway(http.MethodPost, "/api/v1/predictions", nil, profile, &prediction)

	fmt.Printf("Prediction for a %s site targeting %s (success probability %.2f)\n",
		profile.Category, profile.TargetAudience, prediction.SuccessProbability)
	printJSON(prediction)
}

func runTrain(cmd *cobra.Command, args []string) {
	var report datatypes.TrainingReport
	callGateway(http.MethodPost, "/api/v1/train", nil, nil, &report)

	if !report.Applicable {
		fmt.Println("The configured prediction backend does not support training.")
		return
	}
	fmt.Printf("Trained on %d samples\n", report.TrainingSampleCount)
	printJSON(report)
}
