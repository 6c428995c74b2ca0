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

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func runBudgetReset(cmd *cobra.Command, args []string) {
	if !skipConfirm {
		// Refuse to reset from a pipe without an explicit --yes.
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			log.Fatalf("Refusing to reset budgets without a terminal. Pass --yes to confirm.")
		}
		var confirmed bool
		prompt := huh.NewConfirm().
			Title("Reset every tenant's privacy budget?").
			Description("Tenants excluded from benchmarks for budget exhaustion become eligible again.").
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			log.Fatalf("Confirmation failed: %v", err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return
		}
	}

	var resp struct {
		Cleared int `json:"cleared"`
	}
	callGateway(http.MethodPost, "/api/v1/admin/budgets/reset", nil, nil, &resp)
	fmt.Printf("Reset %d tenant budgets to the initial allocation.\n", resp.Cleared)
}
