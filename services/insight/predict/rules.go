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
	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

// Rule thresholds over the raw profile and peer statistics.
const (
	riskTeamSize     = 2
	riskBudget       = 1000.0
	riskPeerSuccess  = 0.4
	oppBudget        = 5000.0
	oppProductCount  = 5
	oppPeerSuccess   = 0.6
	oppOpenMarket    = 0.3
	strategyBudget   = 10000.0
	strategyProducts = 10
)

// RiskFactors evaluates the deterministic risk rules over a profile and its
// peer statistics. Rules are independent; any subset may fire.
func RiskFactors(profile datatypes.TenantProfile, peers PeerStats) []string {
	var risks []string
	if profile.TeamSize < riskTeamSize {
		risks = append(risks, "Solo operation: no redundancy if the founder is unavailable")
	}
	if profile.MarketingBudget < riskBudget {
		risks = append(risks, "Marketing budget under 1000 limits customer acquisition")
	}
	if profile.TechnicalExpertise == datatypes.ExpertiseBeginner {
		risks = append(risks, "Beginner technical expertise may slow setup and iteration")
	}
	if len(profile.InitialProducts) == 1 {
		risks = append(risks, "Single-product catalog concentrates demand risk")
	}
	if peers.Count > 0 && peers.MeanSuccessScore < riskPeerSuccess {
		risks = append(risks, "Similar tenants have below-average success in this space")
	}
	return risks
}

// GrowthOpportunities evaluates the deterministic opportunity rules.
func GrowthOpportunities(profile datatypes.TenantProfile, peers PeerStats, competitiveness float64) []string {
	var opps []string
	if profile.MarketingBudget > oppBudget {
		opps = append(opps, "Budget supports multi-channel acquisition from day one")
	}
	if len(profile.InitialProducts) >= oppProductCount {
		opps = append(opps, "Broad catalog enables cross-selling and bundling")
	}
	if profile.TechnicalExpertise == datatypes.ExpertiseAdvanced {
		opps = append(opps, "Advanced expertise unlocks custom integrations and automation")
	}
	if peers.Count > 0 && peers.MeanSuccessScore > oppPeerSuccess {
		opps = append(opps, "Similar tenants perform well: proven demand in this space")
	}
	if competitiveness < oppOpenMarket {
		opps = append(opps, "Low category saturation: room to establish an early position")
	}
	return opps
}

// RecommendedStrategies evaluates the deterministic strategy rules. The
// peer-playbook strategy is always present.
func RecommendedStrategies(profile datatypes.TenantProfile) []string {
	var strategies []string
	if profile.TechnicalExpertise == datatypes.ExpertiseBeginner {
		strategies = append(strategies, "Partner with implementation consultants for the initial build")
	}
	if profile.MarketingBudget > strategyBudget {
		strategies = append(strategies, "Run paid acquisition experiments across at least two channels")
	}
	if len(profile.InitialProducts) > strategyProducts {
		strategies = append(strategies, "Package bundle offers to lift average order value")
	}
	strategies = append(strategies, "Start from the playbooks of similar successful tenants")
	return strategies
}
