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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianInsight/services/insight/datatypes"
)

func TestRiskFactorsAllFire(t *testing.T) {
	profile := datatypes.TenantProfile{
		Category:           "fashion",
		TargetAudience:     "students",
		TeamSize:           1,
		MarketingBudget:    500,
		InitialProducts:    []string{"only-one"},
		TechnicalExpertise: datatypes.ExpertiseBeginner,
	}
	risks := RiskFactors(profile, PeerStats{Count: 5, MeanSuccessScore: 0.2})
	assert.Len(t, risks, 5)
}

func TestRiskFactorsNoneFire(t *testing.T) {
	profile := datatypes.TenantProfile{
		Category:           "fashion",
		TargetAudience:     "students",
		TeamSize:           5,
		MarketingBudget:    5000,
		InitialProducts:    []string{"a", "b"},
		TechnicalExpertise: datatypes.ExpertiseIntermediate,
	}
	assert.Empty(t, RiskFactors(profile, PeerStats{Count: 5, MeanSuccessScore: 0.7}))
}

func TestRiskPeerRuleNeedsPeers(t *testing.T) {
	profile := datatypes.TenantProfile{
		TeamSize: 5, MarketingBudget: 5000,
		InitialProducts: []string{"a", "b"}, TechnicalExpertise: datatypes.ExpertiseIntermediate,
	}
	// Zero peers carries no signal about the space; the rule stays quiet.
	assert.Empty(t, RiskFactors(profile, PeerStats{Count: 0, MeanSuccessScore: 0}))
}

func TestGrowthOpportunities(t *testing.T) {
	profile := datatypes.TenantProfile{
		MarketingBudget:    20000,
		InitialProducts:    []string{"a", "b", "c", "d", "e"},
		TechnicalExpertise: datatypes.ExpertiseAdvanced,
	}
	opps := GrowthOpportunities(profile, PeerStats{Count: 4, MeanSuccessScore: 0.8}, 0.1)
	assert.Len(t, opps, 5)

	assert.Empty(t, GrowthOpportunities(datatypes.TenantProfile{
		MarketingBudget:    100,
		InitialProducts:    []string{"a"},
		TechnicalExpertise: datatypes.ExpertiseBeginner,
	}, PeerStats{Count: 4, MeanSuccessScore: 0.5}, 0.9))
}

func TestRecommendedStrategies(t *testing.T) {
	all := RecommendedStrategies(datatypes.TenantProfile{
		MarketingBudget:    50000,
		InitialProducts:    make([]string, 12),
		TechnicalExpertise: datatypes.ExpertiseBeginner,
	})
	assert.Len(t, all, 4)

	// The peer-playbook strategy is always present.
	minimal := RecommendedStrategies(datatypes.TenantProfile{
		MarketingBudget:    100,
		InitialProducts:    []string{"a"},
		TechnicalExpertise: datatypes.ExpertiseAdvanced,
	})
	assert.Equal(t, []string{"Start from the playbooks of similar successful tenants"}, minimal)
}
